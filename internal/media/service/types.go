package service

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lk2023060901/media-vault-backend/internal/media/biz"
)

// UploadResponse 上传响应
type UploadResponse struct {
	EntryID           string    `json:"entry_id"`
	StorageID         string    `json:"storage_id"`
	OriginalName      string    `json:"original_name"`
	AlbumName         string    `json:"album_name"`
	AlbumRelativePath string    `json:"album_relative_path"`
	ContentHash       string    `json:"content_hash"`
	ContentType       string    `json:"content_type"`
	MediaKind         string    `json:"media_kind"`
	ByteSize          int64     `json:"byte_size"`
	ByteSizeHuman     string    `json:"byte_size_human"`
	RefCount          int       `json:"ref_count"`
	Deduplicated      bool      `json:"deduplicated"`
	CreatedAt         time.Time `json:"created_at"`
}

// EntryResponse 列表条目响应
type EntryResponse struct {
	EntryID           string    `json:"entry_id"`
	OriginalName      string    `json:"original_name"`
	AlbumName         string    `json:"album_name"`
	AlbumRelativePath string    `json:"album_relative_path"`
	ContentHash       string    `json:"content_hash"`
	ContentType       string    `json:"content_type"`
	MediaKind         string    `json:"media_kind"`
	ByteSize          int64     `json:"byte_size"`
	ByteSizeHuman     string    `json:"byte_size_human"`
	RefCount          int       `json:"ref_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// AlbumResponse 相册聚合响应
type AlbumResponse struct {
	AlbumName       string    `json:"album_name"`
	EntryCount      int64     `json:"entry_count"`
	TotalBytes      int64     `json:"total_bytes"`
	TotalBytesHuman string    `json:"total_bytes_human"`
	LastUpload      time.Time `json:"last_upload"`
}

// StatsResponse 全局统计响应
type StatsResponse struct {
	TotalEntries    int64  `json:"total_entries"`
	UniqueBlobs     int64  `json:"unique_blobs"`
	DedupeSavings   int64  `json:"dedupe_savings"`
	ImageCount      int64  `json:"image_count"`
	VideoCount      int64  `json:"video_count"`
	TotalBytes      int64  `json:"total_bytes"`
	TotalBytesHuman string `json:"total_bytes_human"`
}

// DeleteResponse 删除响应
type DeleteResponse struct {
	EntryID       string `json:"entry_id"`
	RemainingRefs int    `json:"remaining_refs"`
	Reclaimed     bool   `json:"reclaimed"`
}

// PurgeResponse 全量清空响应
type PurgeResponse struct {
	Entries      int64 `json:"entries"`
	Records      int64 `json:"records"`
	BlobsRemoved int64 `json:"blobs_removed"`
	BlobsMissing int64 `json:"blobs_missing"`
}

// HashCheckResponse 哈希查询响应
type HashCheckResponse struct {
	Exists      bool   `json:"exists"`
	ContentHash string `json:"content_hash"`
	MediaKind   string `json:"media_kind,omitempty"`
	ByteSize    int64  `json:"byte_size,omitempty"`
	RefCount    int    `json:"ref_count,omitempty"`
}

func toUploadResponse(result *biz.IngestResult) *UploadResponse {
	return &UploadResponse{
		EntryID:           result.Entry.ID,
		StorageID:         result.Record.ID,
		OriginalName:      result.Entry.OriginalName,
		AlbumName:         result.Entry.AlbumName,
		AlbumRelativePath: result.Entry.AlbumRelativePath,
		ContentHash:       result.Record.ContentHash,
		ContentType:       result.Record.ContentType,
		MediaKind:         result.Record.MediaKind,
		ByteSize:          result.Record.ByteSize,
		ByteSizeHuman:     humanize.IBytes(uint64(result.Record.ByteSize)),
		RefCount:          result.Record.RefCount,
		Deduplicated:      result.Deduplicated,
		CreatedAt:         result.Entry.CreatedAt,
	}
}

func toEntryResponse(item *biz.EntryWithStorage) *EntryResponse {
	return &EntryResponse{
		EntryID:           item.Entry.ID,
		OriginalName:      item.Entry.OriginalName,
		AlbumName:         item.Entry.AlbumName,
		AlbumRelativePath: item.Entry.AlbumRelativePath,
		ContentHash:       item.Record.ContentHash,
		ContentType:       item.Record.ContentType,
		MediaKind:         item.Record.MediaKind,
		ByteSize:          item.Record.ByteSize,
		ByteSizeHuman:     humanize.IBytes(uint64(item.Record.ByteSize)),
		RefCount:          item.Record.RefCount,
		CreatedAt:         item.Entry.CreatedAt,
	}
}

func toAlbumResponse(album *biz.AlbumSummary) *AlbumResponse {
	return &AlbumResponse{
		AlbumName:       album.AlbumName,
		EntryCount:      album.EntryCount,
		TotalBytes:      album.TotalBytes,
		TotalBytesHuman: humanize.IBytes(uint64(album.TotalBytes)),
		LastUpload:      album.LastUpload,
	}
}

func toStatsResponse(stats *biz.VaultStats) *StatsResponse {
	return &StatsResponse{
		TotalEntries:    stats.TotalEntries,
		UniqueBlobs:     stats.UniqueBlobs,
		DedupeSavings:   stats.DedupeSavings,
		ImageCount:      stats.ImageCount,
		VideoCount:      stats.VideoCount,
		TotalBytes:      stats.TotalBytes,
		TotalBytesHuman: humanize.IBytes(uint64(stats.TotalBytes)),
	}
}
