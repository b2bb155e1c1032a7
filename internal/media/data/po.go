package data

import (
	"time"

	"github.com/lk2023060901/media-vault-backend/internal/media/biz"
)

// StorageRecordPO 存储记录数据库模型，content_hash 上的唯一索引
// 是并发去重的最终仲裁
type StorageRecordPO struct {
	ID          string    `gorm:"type:uuid;primarykey"`
	ContentHash string    `gorm:"column:content_hash;size:64;not null;uniqueIndex:idx_storage_content_hash"`
	Location    string    `gorm:"column:location;size:512;not null"`
	ByteSize    int64     `gorm:"column:byte_size;not null"`
	ContentType string    `gorm:"column:content_type;size:100;not null"`
	MediaKind   string    `gorm:"column:media_kind;size:20;not null;index:idx_storage_media_kind"`
	RefCount    int       `gorm:"column:ref_count;not null;default:1"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

func (StorageRecordPO) TableName() string {
	return "storage_records"
}

// MediaEntryPO 媒体条目数据库模型
type MediaEntryPO struct {
	ID                string    `gorm:"type:uuid;primarykey"`
	StorageID         string    `gorm:"column:storage_id;type:uuid;not null;index:idx_entry_storage_id"`
	OriginalName      string    `gorm:"column:original_name;size:255;not null"`
	AlbumName         string    `gorm:"column:album_name;size:255;not null;index:idx_entry_album_name"`
	AlbumRelativePath string    `gorm:"column:album_relative_path;size:512;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP;index:idx_entry_created_at"`
}

func (MediaEntryPO) TableName() string {
	return "media_entries"
}

func (po *StorageRecordPO) toDomain() *biz.StorageRecord {
	return &biz.StorageRecord{
		ID:          po.ID,
		ContentHash: po.ContentHash,
		Location:    po.Location,
		ByteSize:    po.ByteSize,
		ContentType: po.ContentType,
		MediaKind:   po.MediaKind,
		RefCount:    po.RefCount,
		CreatedAt:   po.CreatedAt,
	}
}

func (po *MediaEntryPO) toDomain() *biz.MediaEntry {
	return &biz.MediaEntry{
		ID:                po.ID,
		StorageID:         po.StorageID,
		OriginalName:      po.OriginalName,
		AlbumName:         po.AlbumName,
		AlbumRelativePath: po.AlbumRelativePath,
		CreatedAt:         po.CreatedAt,
	}
}

func recordToPO(record *biz.StorageRecord) *StorageRecordPO {
	return &StorageRecordPO{
		ID:          record.ID,
		ContentHash: record.ContentHash,
		Location:    record.Location,
		ByteSize:    record.ByteSize,
		ContentType: record.ContentType,
		MediaKind:   record.MediaKind,
		RefCount:    record.RefCount,
		CreatedAt:   record.CreatedAt,
	}
}

func entryToPO(entry *biz.MediaEntry) *MediaEntryPO {
	return &MediaEntryPO{
		ID:                entry.ID,
		StorageID:         entry.StorageID,
		OriginalName:      entry.OriginalName,
		AlbumName:         entry.AlbumName,
		AlbumRelativePath: entry.AlbumRelativePath,
		CreatedAt:         entry.CreatedAt,
	}
}
