package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/media-vault-backend/internal/media/biz"
	pkgminio "github.com/lk2023060901/media-vault-backend/internal/pkg/minio"
)

// MinIOStore MinIO 对象存储。对象键与文件系统实现使用同一套位置约定：
// 净化后的相册名/纳秒时间戳_净化后的文件名。
type MinIOStore struct {
	client *pkgminio.Client
	bucket string
}

// NewMinIOStore 创建 MinIO 存储并确保桶存在
func NewMinIOStore(ctx context.Context, client *pkgminio.Client) (*MinIOStore, error) {
	bucket := client.Config().Bucket
	if err := client.EnsureBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return &MinIOStore{client: client, bucket: bucket}, nil
}

// Put 上传字节到新的唯一对象键
func (s *MinIOStore) Put(ctx context.Context, album, name string, data []byte, contentType string) (string, error) {
	objectKey := fmt.Sprintf("%s/%d_%s",
		biz.SanitizePathComponent(album, "default"),
		time.Now().UnixNano(),
		biz.SanitizePathComponent(name, "file"),
	)

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), pkgminio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return objectKey, nil
}

// Delete 删除对象，对象不存在视为成功
func (s *MinIOStore) Delete(ctx context.Context, location string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, location, pkgminio.RemoveObjectOptions{}); err != nil {
		if pkgminio.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// Exists 检查对象是否存在
func (s *MinIOStore) Exists(ctx context.Context, location string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, location, pkgminio.StatObjectOptions{})
	if err != nil {
		if pkgminio.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}
