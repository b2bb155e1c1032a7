package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IngestRequest 入库请求
type IngestRequest struct {
	Data         []byte
	ContentType  string // 调用方声明的内容类型
	OriginalName string
	AlbumName    string
}

// IngestResult 入库结果
type IngestResult struct {
	Entry        *MediaEntry
	Record       *StorageRecord
	Deduplicated bool // 命中已有内容，未发生物理写入
}

// Ingest 媒体入库（内容去重）。
// 分类与大小校验在任何变更之前完成；元数据写入（账本 + 目录）在单个事务内
// 提交；物理文件先于事务提交写入，事务失败时尽力清理新写入的文件。
func (uc *MediaUseCase) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyPayload
	}
	if int64(len(req.Data)) > uc.maxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrSizeLimitExceeded, len(req.Data), uc.maxUploadSize)
	}

	// 媒体类型判定
	kind, resolvedType, err := ClassifyMediaKind(req.ContentType, req.OriginalName, req.Data)
	if err != nil {
		return nil, err
	}

	// 计算内容哈希
	sum := sha256.Sum256(req.Data)
	contentHash := hex.EncodeToString(sum[:])

	now := time.Now().UTC()
	record := &StorageRecord{
		ID:          uuid.New().String(),
		ContentHash: contentHash,
		ByteSize:    int64(len(req.Data)),
		ContentType: resolvedType,
		MediaKind:   kind,
		RefCount:    1,
		CreatedAt:   now,
	}
	entry := &MediaEntry{
		ID:           uuid.New().String(),
		OriginalName: req.OriginalName,
		AlbumName:    req.AlbumName,
		CreatedAt:    now,
	}

	// 物理写入只在账本真正未命中时执行，写入位置记录在闭包内供失败清理
	var written string
	write := func(ctx context.Context) (string, error) {
		location, werr := uc.store.Put(ctx, req.AlbumName, req.OriginalName, req.Data, resolvedType)
		if werr != nil {
			return "", fmt.Errorf("%w: %v", ErrStorageWriteFailure, werr)
		}
		written = location
		return location, nil
	}

	resolved, isNew, err := uc.repo.CreateEntry(ctx, entry, record, write)
	if err != nil {
		// 事务未提交，新写入的物理文件不能残留
		uc.cleanupBlob(ctx, written, contentHash)
		return nil, err
	}

	if !isNew && written != "" {
		// 并发去重竞争的失败方：账本已指向胜出方的位置，丢弃自己写入的文件
		uc.cleanupBlob(ctx, written, contentHash)
	}

	uc.logger.Info("media ingested",
		zap.String("entry_id", entry.ID),
		zap.String("storage_id", resolved.ID),
		zap.String("content_hash", contentHash),
		zap.String("media_kind", kind),
		zap.Int64("byte_size", resolved.ByteSize),
		zap.Int("ref_count", resolved.RefCount),
		zap.Bool("deduplicated", !isNew),
	)

	return &IngestResult{
		Entry:        entry,
		Record:       resolved,
		Deduplicated: !isNew,
	}, nil
}

// cleanupBlob 尽力删除失败路径上残留的物理文件，失败仅记录日志
func (uc *MediaUseCase) cleanupBlob(ctx context.Context, location, contentHash string) {
	if location == "" {
		return
	}
	if err := uc.store.Delete(ctx, location); err != nil {
		uc.logger.Warn("failed to clean up orphan blob",
			zap.String("location", location),
			zap.String("content_hash", contentHash),
			zap.Error(err),
		)
	}
}
