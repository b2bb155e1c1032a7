package data

import (
	"context"
	"time"

	"github.com/lk2023060901/media-vault-backend/internal/media/biz"
	"github.com/lk2023060901/media-vault-backend/internal/pkg/database"
	"gorm.io/gorm"
)

// entryRow 条目联合查询的扫描目标
type entryRow struct {
	EntryID           string
	StorageID         string
	OriginalName      string
	AlbumName         string
	AlbumRelativePath string
	EntryCreatedAt    time.Time
	ContentHash       string
	Location          string
	ByteSize          int64
	ContentType       string
	MediaKind         string
	RefCount          int
	RecordCreatedAt   time.Time
}

// ListEntries 条目与存储记录的联合查询，按创建时间倒序
func (r *MediaRepo) ListEntries(ctx context.Context, filter *biz.ListFilter) ([]*biz.EntryWithStorage, error) {
	if filter == nil {
		filter = &biz.ListFilter{}
	}

	var rows []entryRow
	err := r.db.GetDB().WithContext(ctx).
		Table("media_entries").
		Select(`media_entries.id AS entry_id,
			media_entries.storage_id,
			media_entries.original_name,
			media_entries.album_name,
			media_entries.album_relative_path,
			media_entries.created_at AS entry_created_at,
			storage_records.content_hash,
			storage_records.location,
			storage_records.byte_size,
			storage_records.content_type,
			storage_records.media_kind,
			storage_records.ref_count,
			storage_records.created_at AS record_created_at`).
		Joins("JOIN storage_records ON storage_records.id = media_entries.storage_id").
		Scopes(
			database.WhereIf(filter.MediaKind != "", "storage_records.media_kind = ?", filter.MediaKind),
			database.WhereIf(filter.AlbumName != "", "media_entries.album_name = ?", filter.AlbumName),
			database.OrderBy("media_entries.created_at", true),
			database.Limit(filter.Limit, biz.DefaultListLimit),
		).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*biz.EntryWithStorage, 0, len(rows))
	for _, row := range rows {
		out = append(out, &biz.EntryWithStorage{
			Entry: &biz.MediaEntry{
				ID:                row.EntryID,
				StorageID:         row.StorageID,
				OriginalName:      row.OriginalName,
				AlbumName:         row.AlbumName,
				AlbumRelativePath: row.AlbumRelativePath,
				CreatedAt:         row.EntryCreatedAt,
			},
			Record: &biz.StorageRecord{
				ID:          row.StorageID,
				ContentHash: row.ContentHash,
				Location:    row.Location,
				ByteSize:    row.ByteSize,
				ContentType: row.ContentType,
				MediaKind:   row.MediaKind,
				RefCount:    row.RefCount,
				CreatedAt:   row.RecordCreatedAt,
			},
		})
	}
	return out, nil
}

// ListAlbums 按相册聚合条目数、逻辑字节数与最近上传时间，按最近上传倒序。
// 字节数按条目累加，同一内容被多个条目引用时重复计入。
func (r *MediaRepo) ListAlbums(ctx context.Context) ([]*biz.AlbumSummary, error) {
	type albumRow struct {
		AlbumName  string
		EntryCount int64
		TotalBytes int64
		LastUpload time.Time
	}

	var rows []albumRow
	err := r.db.GetDB().WithContext(ctx).
		Table("media_entries").
		Select(`media_entries.album_name,
			COUNT(*) AS entry_count,
			COALESCE(SUM(storage_records.byte_size), 0) AS total_bytes,
			MAX(media_entries.created_at) AS last_upload`).
		Joins("JOIN storage_records ON storage_records.id = media_entries.storage_id").
		Group("media_entries.album_name").
		Order("last_upload DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*biz.AlbumSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, &biz.AlbumSummary{
			AlbumName:  row.AlbumName,
			EntryCount: row.EntryCount,
			TotalBytes: row.TotalBytes,
			LastUpload: row.LastUpload,
		})
	}
	return out, nil
}

// Stats 全局统计。TotalBytes 为去重后的物理字节数，
// 按媒体类型的计数以条目为口径。
// 四个计数在同一只读事务内读取，并发的入库或清空提交不会让
// DedupeSavings 偏离 TotalEntries - UniqueBlobs。
func (r *MediaRepo) Stats(ctx context.Context) (*biz.VaultStats, error) {
	stats := &biz.VaultStats{}

	err := r.tm.ReadOnly(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Model(&MediaEntryPO{}).Count(&stats.TotalEntries).Error; err != nil {
			return err
		}
		if err := tx.Model(&StorageRecordPO{}).Count(&stats.UniqueBlobs).Error; err != nil {
			return err
		}
		stats.DedupeSavings = stats.TotalEntries - stats.UniqueBlobs

		var totalBytes *int64
		if err := tx.Model(&StorageRecordPO{}).
			Select("SUM(byte_size)").
			Scan(&totalBytes).Error; err != nil {
			return err
		}
		if totalBytes != nil {
			stats.TotalBytes = *totalBytes
		}

		type kindRow struct {
			MediaKind string
			Count     int64
		}
		var kinds []kindRow
		err := tx.Table("media_entries").
			Select("storage_records.media_kind, COUNT(*) AS count").
			Joins("JOIN storage_records ON storage_records.id = media_entries.storage_id").
			Group("storage_records.media_kind").
			Scan(&kinds).Error
		if err != nil {
			return err
		}
		for _, row := range kinds {
			switch row.MediaKind {
			case biz.MediaKindImage:
				stats.ImageCount = row.Count
			case biz.MediaKindVideo:
				stats.VideoCount = row.Count
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
