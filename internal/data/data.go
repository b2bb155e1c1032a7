package data

import (
	"context"
	"fmt"

	"github.com/lk2023060901/media-vault-backend/internal/conf"
	mediadata "github.com/lk2023060901/media-vault-backend/internal/media/data"
	"github.com/lk2023060901/media-vault-backend/internal/pkg/database"
	"github.com/lk2023060901/media-vault-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-vault-backend/internal/pkg/minio"
	"go.uber.org/zap"
)

type Data struct {
	DB          *database.DB
	MinIOClient *minio.Client
	Logger      *logger.Logger
}

func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	// Initialize PostgreSQL
	db, err := database.New(&config.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	if config.Database.AutoMigrate {
		if err := db.AutoMigrate(&mediadata.StorageRecordPO{}, &mediadata.MediaEntryPO{}); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	// MinIO is only needed when it is the selected storage backend
	var minioClient *minio.Client
	if config.Storage.Backend == conf.StorageBackendMinIO {
		minioClient, err = minio.NewClient(&config.MinIO, log.Logger)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to init minio: %w", err)
		}
		if err := minioClient.Ping(context.Background()); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to minio: %w", err)
		}
	}

	d := &Data{
		DB:          db,
		MinIOClient: minioClient,
		Logger:      log,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")
		if err := db.Close(); err != nil {
			log.Error("failed to close database", zap.Error(err))
		}
	}

	log.Info("data layer initialized",
		zap.String("storage_backend", config.Storage.Backend))
	return d, cleanup, nil
}
