package minio

import (
	"context"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// MakeBucketOptions represents options for creating a bucket
type MakeBucketOptions struct {
	// Region is the region of the bucket
	Region string
	// ObjectLocking enables object locking for the bucket
	ObjectLocking bool
}

// MakeBucket creates a new bucket
func (c *Client) MakeBucket(ctx context.Context, bucketName string, opts MakeBucketOptions) error {
	minioOpts := minio.MakeBucketOptions{
		Region:        opts.Region,
		ObjectLocking: opts.ObjectLocking,
	}

	if err := c.client.MakeBucket(ctx, bucketName, minioOpts); err != nil {
		return WrapError("MakeBucket", err, bucketName, "")
	}

	if c.logger != nil {
		c.logger.Info("bucket created", zap.String("bucket", bucketName))
	}

	return nil
}

// BucketExists checks whether a bucket exists
func (c *Client) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	exists, err := c.client.BucketExists(ctx, bucketName)
	if err != nil {
		return false, WrapError("BucketExists", err, bucketName, "")
	}
	return exists, nil
}

// EnsureBucket creates the bucket if it does not already exist
func (c *Client) EnsureBucket(ctx context.Context, bucketName string) error {
	exists, err := c.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.MakeBucket(ctx, bucketName, MakeBucketOptions{Region: c.config.Region})
}
