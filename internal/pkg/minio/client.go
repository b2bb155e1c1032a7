package minio

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Client wraps the MinIO client with additional functionality
type Client struct {
	client *minio.Client
	config *Config
	logger *zap.Logger
}

// NewClient creates a new MinIO client
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidArgument
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, WrapErrorWithMessage("NewClient", err, "invalid configuration")
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	}
	if cfg.Region != "" {
		opts.Region = cfg.Region
	}

	minioClient, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, WrapErrorWithMessage("NewClient", err, "failed to create minio client")
	}

	if logger != nil {
		logger.Info("minio client initialized successfully",
			zap.String("endpoint", cfg.Endpoint),
			zap.Bool("use_ssl", cfg.UseSSL),
		)
	}

	return &Client{
		client: minioClient,
		config: cfg,
		logger: logger,
	}, nil
}

// Ping checks if the MinIO server is accessible by listing buckets
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.ListBuckets(ctx); err != nil {
		return WrapErrorWithMessage("Ping", err, "failed to connect to minio server")
	}
	return nil
}

// Config returns the client configuration
func (c *Client) Config() *Config {
	return c.config
}

// GetUnderlyingClient returns the underlying MinIO client
// This is useful for advanced operations not covered by this wrapper
func (c *Client) GetUnderlyingClient() *minio.Client {
	return c.client
}
