package conf

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/lk2023060901/media-vault-backend/internal/pkg/database"
	"github.com/lk2023060901/media-vault-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-vault-backend/internal/pkg/minio"
	"github.com/spf13/viper"
)

// 存储后端
const (
	StorageBackendFS    = "fs"
	StorageBackendMinIO = "minio"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database database.Config `mapstructure:"database"`
	Storage  StorageConfig   `mapstructure:"storage"`
	MinIO    minio.Config    `mapstructure:"minio"`
	Log      logger.Config   `mapstructure:"log"`
	Upload   UploadConfig    `mapstructure:"upload"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig 物理存储选择：本地文件系统或 MinIO
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // fs, minio
	Root    string `mapstructure:"root"`    // fs 后端的媒体根目录
}

type UploadConfig struct {
	MaxSize      string `mapstructure:"max_size"` // 如 "200MiB"，空值使用默认上限
	DefaultAlbum string `mapstructure:"default_album"`
}

// MaxSizeBytes 解析上传大小上限，未配置时返回 0 由上层取默认值
func (c *UploadConfig) MaxSizeBytes() (int64, error) {
	if c.MaxSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("invalid upload.max_size %q: %w", c.MaxSize, err)
	}
	return int64(n), nil
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := defaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: *database.DefaultConfig(),
		Storage:  StorageConfig{Backend: StorageBackendFS, Root: "data/media"},
		Log:      *logger.DefaultConfig(),
		Upload:   UploadConfig{DefaultAlbum: "default"},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	switch c.Storage.Backend {
	case StorageBackendFS:
		if c.Storage.Root == "" {
			return fmt.Errorf("storage.root is required for the fs backend")
		}
	case StorageBackendMinIO:
		c.MinIO.SetDefaults()
		if err := c.MinIO.Validate(); err != nil {
			return fmt.Errorf("minio config: %w", err)
		}
	default:
		return fmt.Errorf("storage.backend must be fs or minio, got %q", c.Storage.Backend)
	}

	if _, err := c.Upload.MaxSizeBytes(); err != nil {
		return err
	}
	return nil
}
