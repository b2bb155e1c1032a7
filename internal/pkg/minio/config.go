package minio

import (
	"errors"
	"time"
)

// Config represents the configuration for MinIO client
type Config struct {
	// Endpoint is the S3-compatible object storage endpoint
	// Examples: "play.min.io", "localhost:9000"
	Endpoint string `mapstructure:"endpoint"`

	// AccessKeyID is the access key for authentication
	AccessKeyID string `mapstructure:"access_key"`

	// SecretAccessKey is the secret key for authentication
	SecretAccessKey string `mapstructure:"secret_key"`

	// Region is the region of the object storage (optional)
	Region string `mapstructure:"region"`

	// UseSSL determines whether to use HTTPS (true) or HTTP (false)
	UseSSL bool `mapstructure:"use_ssl"`

	// Bucket is the default bucket for blob storage
	Bucket string `mapstructure:"bucket"`

	// ConnectTimeout is the timeout for establishing connections
	// Default: 10 seconds
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: endpoint is required")
	}

	if c.AccessKeyID == "" {
		return errors.New("minio: access key ID is required")
	}

	if c.SecretAccessKey == "" {
		return errors.New("minio: secret access key is required")
	}

	return nil
}

// SetDefaults sets default values for unspecified configuration fields
func (c *Config) SetDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.Bucket == "" {
		c.Bucket = "media-vault"
	}
}
