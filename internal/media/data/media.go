package data

import (
	"context"

	"github.com/lk2023060901/media-vault-backend/internal/media/biz"
	"github.com/lk2023060901/media-vault-backend/internal/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 并发哈希冲突时整个事务按去重命中重试的最大次数
const createEntryMaxRetries = 3

// MediaRepo 媒体元数据仓储实现
type MediaRepo struct {
	db *database.DB
	tm *database.TransactionManager
}

// NewMediaRepo 创建媒体仓储
func NewMediaRepo(db *database.DB) *MediaRepo {
	return &MediaRepo{
		db: db,
		tm: database.NewTransactionManager(db),
	}
}

// CreateEntry 获取存储记录并写入条目，全部元数据变更在单个事务内提交。
// 账本未命中时先调用 write 完成物理写入再插入记录；并发插入同一哈希时，
// 失败方因唯一索引冲突整体重试，重试时命中胜出方的记录走引用递增路径。
func (r *MediaRepo) CreateEntry(ctx context.Context, entry *biz.MediaEntry, record *biz.StorageRecord, write biz.BlobWriteFunc) (*biz.StorageRecord, bool, error) {
	var (
		resolved *biz.StorageRecord
		isNew    bool
	)

	err := r.tm.ExecuteWithRetry(ctx, createEntryMaxRetries, func(ctx context.Context, tx *gorm.DB) error {
		isNew = false

		// 记录行加排他锁：并发的最后一条引用删除不得在读取与递增之间删除该记录
		var po StorageRecordPO
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("content_hash = ?", record.ContentHash).
			First(&po).Error
		switch {
		case err == nil:
			// 去重命中：引用计数递增
			res := tx.Model(&StorageRecordPO{}).
				Where("id = ?", po.ID).
				UpdateColumn("ref_count", gorm.Expr("ref_count + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrDuplicatedKey
			}
			po.RefCount++

		case database.IsRecordNotFoundError(err):
			// 未命中：物理写入先于元数据提交；重试时复用已写入的位置
			if record.Location == "" {
				location, werr := write(ctx)
				if werr != nil {
					return werr
				}
				record.Location = location
			}
			po = *recordToPO(record)
			// 唯一索引冲突由 ExecuteWithRetry 捕获，整个事务重试
			if err := tx.Create(&po).Error; err != nil {
				return err
			}
			isNew = true

		default:
			return err
		}

		resolved = po.toDomain()
		entry.StorageID = resolved.ID
		entry.AlbumRelativePath = biz.AlbumRelativePath(entry.AlbumName, resolved.Location)
		return tx.Create(entryToPO(entry)).Error
	})
	if err != nil {
		return nil, false, err
	}
	return resolved, isNew, nil
}

// DeleteEntry 删除条目并释放内容引用。记录行加排他锁防止并发
// 递减与删除交错；计数归零时记录一并删除，物理位置返回给调用方回收。
func (r *MediaRepo) DeleteEntry(ctx context.Context, entryID string) (*biz.ReleaseResult, error) {
	var result *biz.ReleaseResult

	err := r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var entryPO MediaEntryPO
		if err := tx.Where("id = ?", entryID).First(&entryPO).Error; err != nil {
			if database.IsRecordNotFoundError(err) {
				return biz.ErrEntryNotFound
			}
			return err
		}
		// 并发删除同一条目时，后到者的 DELETE 命中 0 行：
		// 必须按 NotFound 中止，否则会二次递减引用计数
		res := tx.Delete(&MediaEntryPO{}, "id = ?", entryID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return biz.ErrEntryNotFound
		}

		var recordPO StorageRecordPO
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", entryPO.StorageID).
			First(&recordPO).Error; err != nil {
			return err
		}

		remaining := recordPO.RefCount - 1
		result = &biz.ReleaseResult{
			Entry:         entryPO.toDomain(),
			RemainingRefs: remaining,
		}
		if remaining <= 0 {
			if err := tx.Delete(&StorageRecordPO{}, "id = ?", recordPO.ID).Error; err != nil {
				return err
			}
			result.RemainingRefs = 0
			result.Reclaimed = true
			result.Location = recordPO.Location
			return nil
		}
		return tx.Model(&StorageRecordPO{}).
			Where("id = ?", recordPO.ID).
			UpdateColumn("ref_count", gorm.Expr("ref_count - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteAll 清空全部条目与存储记录，返回提交时账本中的物理位置列表
func (r *MediaRepo) DeleteAll(ctx context.Context) (*biz.PurgeResult, error) {
	result := &biz.PurgeResult{}

	err := r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Model(&StorageRecordPO{}).Pluck("location", &result.Locations).Error; err != nil {
			return err
		}
		if err := tx.Model(&MediaEntryPO{}).Count(&result.Entries).Error; err != nil {
			return err
		}
		if err := tx.Model(&StorageRecordPO{}).Count(&result.Records).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&MediaEntryPO{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&StorageRecordPO{}).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetRecordByHash 按内容哈希查询存储记录，不存在时返回 nil
func (r *MediaRepo) GetRecordByHash(ctx context.Context, contentHash string) (*biz.StorageRecord, error) {
	var po StorageRecordPO
	err := r.db.GetDB().WithContext(ctx).
		Where("content_hash = ?", contentHash).
		First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return po.toDomain(), nil
}
