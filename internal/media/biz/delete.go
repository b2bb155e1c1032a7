package biz

import (
	"context"

	"go.uber.org/zap"
)

// DeleteResult 单条删除结果。
// Reclaimed 表示账本侧的回收决定（引用归零、记录已删除）；
// 物理文件删除失败不改变该标志，只留下待人工清理的孤儿文件。
type DeleteResult struct {
	Entry         *MediaEntry
	RemainingRefs int
	Reclaimed     bool
}

// PurgeSummary 全量清空结果
type PurgeSummary struct {
	Entries      int64
	Records      int64
	BlobsRemoved int64
	BlobsMissing int64
}

// Delete 删除一条目录项并释放其内容引用。
// 元数据变更（目录删除 + 引用计数递减 / 账本删除）在单个事务内提交，
// 物理文件在事务提交之后删除：崩溃最多残留无引用的孤儿文件，
// 绝不会产生指向缺失文件的账本记录。
func (uc *MediaUseCase) Delete(ctx context.Context, entryID string) (*DeleteResult, error) {
	res, err := uc.repo.DeleteEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if res.Reclaimed && res.Location != "" {
		if derr := uc.store.Delete(ctx, res.Location); derr != nil {
			// 账本已无该记录，文件删除失败只能留待人工清理
			uc.logger.Warn("failed to remove blob after reclaim",
				zap.String("entry_id", entryID),
				zap.String("location", res.Location),
				zap.Error(derr),
			)
		}
	}

	uc.logger.Info("media entry deleted",
		zap.String("entry_id", entryID),
		zap.Int("remaining_refs", res.RemainingRefs),
		zap.Bool("reclaimed", res.Reclaimed),
	)

	return &DeleteResult{
		Entry:         res.Entry,
		RemainingRefs: res.RemainingRefs,
		Reclaimed:     res.Reclaimed,
	}, nil
}

// DeleteAll 清空全部目录项、账本记录与物理文件。
// 元数据在单个事务内清空并收集全部文件位置，之后逐一回收物理文件。
func (uc *MediaUseCase) DeleteAll(ctx context.Context) (*PurgeSummary, error) {
	res, err := uc.repo.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := &PurgeSummary{
		Entries: res.Entries,
		Records: res.Records,
	}
	for _, location := range res.Locations {
		exists, eerr := uc.store.Exists(ctx, location)
		if eerr == nil && !exists {
			summary.BlobsMissing++
			continue
		}
		if derr := uc.store.Delete(ctx, location); derr != nil {
			uc.logger.Warn("failed to remove blob during purge",
				zap.String("location", location),
				zap.Error(derr),
			)
			summary.BlobsMissing++
			continue
		}
		summary.BlobsRemoved++
	}

	uc.logger.Info("media vault purged",
		zap.Int64("entries", summary.Entries),
		zap.Int64("records", summary.Records),
		zap.Int64("blobs_removed", summary.BlobsRemoved),
		zap.Int64("blobs_missing", summary.BlobsMissing),
	)

	return summary, nil
}
