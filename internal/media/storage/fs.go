// Package storage 提供媒体物理存储的两种实现：本地文件系统与 MinIO 对象存储。
// 存储位置统一使用斜杠分隔的相对路径（相册目录/文件名），由元数据层持有。
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/lk2023060901/media-vault-backend/internal/media/biz"
)

// FSStore 本地文件系统存储
type FSStore struct {
	root string
}

// NewFSStore 创建文件系统存储，root 为媒体根目录
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Put 将字节写入相册目录下的新文件。文件名带纳秒时间戳保证唯一，
// 以 O_EXCL 打开，绝不覆盖已有文件；相册目录创建是幂等的。
func (s *FSStore) Put(ctx context.Context, album, name string, data []byte, contentType string) (string, error) {
	albumDir := biz.SanitizePathComponent(album, "default")
	if err := os.MkdirAll(filepath.Join(s.root, albumDir), 0o755); err != nil {
		return "", fmt.Errorf("create album dir: %w", err)
	}

	baseName := biz.SanitizePathComponent(name, "file")
	var location string
	for attempt := 0; ; attempt++ {
		fileName := fmt.Sprintf("%d_%s", time.Now().UnixNano(), baseName)
		location = path.Join(albumDir, fileName)

		f, err := os.OpenFile(filepath.Join(s.root, albumDir, fileName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) && attempt < 3 {
				continue
			}
			return "", fmt.Errorf("create blob file: %w", err)
		}

		if _, werr := f.Write(data); werr != nil {
			f.Close()
			os.Remove(filepath.Join(s.root, location))
			return "", fmt.Errorf("write blob file: %w", werr)
		}
		if cerr := f.Close(); cerr != nil {
			os.Remove(filepath.Join(s.root, location))
			return "", fmt.Errorf("close blob file: %w", cerr)
		}
		return location, nil
	}
}

// Delete 删除物理文件，文件不存在视为成功
func (s *FSStore) Delete(ctx context.Context, location string) error {
	abs, err := s.resolve(location)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob file: %w", err)
	}
	return nil
}

// Exists 检查物理文件是否存在
func (s *FSStore) Exists(ctx context.Context, location string) (bool, error) {
	abs, err := s.resolve(location)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob file: %w", err)
	}
	return true, nil
}

// resolve 将存储位置解析为根目录下的绝对路径，拒绝越出根目录的位置
func (s *FSStore) resolve(location string) (string, error) {
	if location == "" || path.IsAbs(location) || strings.Contains(location, "..") || strings.Contains(location, "\\") {
		return "", fmt.Errorf("invalid blob location: %q", location)
	}
	return filepath.Join(s.root, filepath.FromSlash(location)), nil
}
