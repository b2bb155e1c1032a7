package biz

import "context"

// ListEntries 列出目录项（含存储记录），按创建时间倒序
func (uc *MediaUseCase) ListEntries(ctx context.Context, filter *ListFilter) ([]*EntryWithStorage, error) {
	if filter == nil {
		filter = &ListFilter{}
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	return uc.repo.ListEntries(ctx, filter)
}

// ListAlbums 列出相册聚合信息，按最近上传时间倒序
func (uc *MediaUseCase) ListAlbums(ctx context.Context) ([]*AlbumSummary, error) {
	return uc.repo.ListAlbums(ctx)
}

// Stats 全局统计
func (uc *MediaUseCase) Stats(ctx context.Context) (*VaultStats, error) {
	return uc.repo.Stats(ctx)
}

// HashExists 判断指定内容哈希是否已在账本中
func (uc *MediaUseCase) HashExists(ctx context.Context, contentHash string) (bool, *StorageRecord, error) {
	record, err := uc.repo.GetRecordByHash(ctx, contentHash)
	if err != nil {
		return false, nil, err
	}
	return record != nil, record, nil
}
