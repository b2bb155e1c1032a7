package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lk2023060901/media-vault-backend/internal/conf"
	"github.com/lk2023060901/media-vault-backend/internal/data"
	mediabiz "github.com/lk2023060901/media-vault-backend/internal/media/biz"
	mediadata "github.com/lk2023060901/media-vault-backend/internal/media/data"
	mediaservice "github.com/lk2023060901/media-vault-backend/internal/media/service"
	mediastorage "github.com/lk2023060901/media-vault-backend/internal/media/storage"
	"github.com/lk2023060901/media-vault-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-vault-backend/internal/server"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger with config
	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize global logger
	if err := logger.InitGlobal(&config.Log); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	log.Info("config loaded successfully")

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Initialize blob store
	var blobStore mediabiz.BlobStore
	switch config.Storage.Backend {
	case conf.StorageBackendMinIO:
		blobStore, err = mediastorage.NewMinIOStore(context.Background(), d.MinIOClient)
		if err != nil {
			log.Fatal("failed to initialize minio store", zap.Error(err))
		}
	default:
		blobStore, err = mediastorage.NewFSStore(config.Storage.Root)
		if err != nil {
			log.Fatal("failed to initialize fs store", zap.Error(err))
		}
	}

	// Initialize repositories and use cases
	maxUploadSize, err := config.Upload.MaxSizeBytes()
	if err != nil {
		log.Fatal("invalid upload size limit", zap.Error(err))
	}
	mediaRepo := mediadata.NewMediaRepo(d.DB)
	mediaUseCase := mediabiz.NewMediaUseCase(mediaRepo, blobStore, maxUploadSize, log)

	// Initialize services
	mediaService := mediaservice.NewMediaService(mediaUseCase, config.Upload.DefaultAlbum, log.Logger)

	// Initialize HTTP server
	httpServer := server.NewHTTPServer(config, log, mediaService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully",
		zap.String("storage_backend", config.Storage.Backend))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
