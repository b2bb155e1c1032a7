package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// PutObjectOptions represents options for uploading an object
type PutObjectOptions struct {
	// ContentType is the content type of the object
	ContentType string
	// UserMetadata is custom metadata for the object
	UserMetadata map[string]string
}

// StatObjectOptions represents options for getting object metadata
type StatObjectOptions struct {
	// VersionID specifies the version of the object
	VersionID string
}

// RemoveObjectOptions represents options for removing an object
type RemoveObjectOptions struct {
	// ForceDelete forces deletion even if object is locked
	ForceDelete bool
}

// UploadInfo represents information about an uploaded object
type UploadInfo struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

// ObjectInfo represents information about a stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// PutObject uploads an object to the given bucket
func (c *Client) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts PutObjectOptions) (UploadInfo, error) {
	minioOpts := minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.UserMetadata,
	}

	info, err := c.client.PutObject(ctx, bucketName, objectName, reader, objectSize, minioOpts)
	if err != nil {
		return UploadInfo{}, WrapError("PutObject", err, bucketName, objectName)
	}

	if c.logger != nil {
		c.logger.Debug("object uploaded",
			zap.String("bucket", bucketName),
			zap.String("object", objectName),
			zap.Int64("size", info.Size),
		)
	}

	return UploadInfo{
		Bucket: info.Bucket,
		Key:    info.Key,
		ETag:   info.ETag,
		Size:   info.Size,
	}, nil
}

// StatObject returns metadata for an object without downloading it
func (c *Client) StatObject(ctx context.Context, bucketName, objectName string, opts StatObjectOptions) (ObjectInfo, error) {
	minioOpts := minio.StatObjectOptions{}
	if opts.VersionID != "" {
		minioOpts.VersionID = opts.VersionID
	}

	info, err := c.client.StatObject(ctx, bucketName, objectName, minioOpts)
	if err != nil {
		return ObjectInfo{}, WrapError("StatObject", err, bucketName, objectName)
	}

	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		Metadata:     info.UserMetadata,
	}, nil
}

// RemoveObject removes an object from the given bucket
func (c *Client) RemoveObject(ctx context.Context, bucketName, objectName string, opts RemoveObjectOptions) error {
	minioOpts := minio.RemoveObjectOptions{
		ForceDelete: opts.ForceDelete,
	}

	if err := c.client.RemoveObject(ctx, bucketName, objectName, minioOpts); err != nil {
		return WrapError("RemoveObject", err, bucketName, objectName)
	}

	if c.logger != nil {
		c.logger.Debug("object removed",
			zap.String("bucket", bucketName),
			zap.String("object", objectName),
		)
	}

	return nil
}
