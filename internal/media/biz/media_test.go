package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PNG 文件头，足以被字节探测识别为 image/png
var pngPayload = append([]byte("\x89PNG\r\n\x1a\n"), []byte("fake image body")...)

func contentHashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// fakeBlobStore 内存版物理存储
type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	seq   int

	failDelete bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(ctx context.Context, album, name string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	location := fmt.Sprintf("%s/%d_%s", SanitizePathComponent(album, "default"), s.seq, SanitizePathComponent(name, "file"))
	s.blobs[location] = append([]byte(nil), data...)
	return location, nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return errors.New("permission denied")
	}
	delete(s.blobs, location)
	return nil
}

func (s *fakeBlobStore) Exists(ctx context.Context, location string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[location]
	return ok, nil
}

func (s *fakeBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// fakeMediaRepo 内存版元数据仓储，模拟事务语义与并发哈希冲突
type fakeMediaRepo struct {
	mu      sync.Mutex
	records map[string]*StorageRecord // content_hash -> record
	entries map[string]*MediaEntry    // entry_id -> entry

	failAfterWrite bool           // 物理写入后让事务失败
	raceWinner     *StorageRecord // 物理写入后抢先插入的竞争记录
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{
		records: make(map[string]*StorageRecord),
		entries: make(map[string]*MediaEntry),
	}
}

func (r *fakeMediaRepo) CreateEntry(ctx context.Context, entry *MediaEntry, record *StorageRecord, write BlobWriteFunc) (*StorageRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, hit := r.records[record.ContentHash]
	isNew := false
	if !hit {
		location, err := write(ctx)
		if err != nil {
			return nil, false, err
		}
		if r.failAfterWrite {
			return nil, false, errors.New("transaction aborted")
		}
		if r.raceWinner != nil {
			// 唯一约束冲突：竞争方已插入同哈希记录，按去重命中重试
			r.records[r.raceWinner.ContentHash] = r.raceWinner
			r.raceWinner = nil
			existing = r.records[record.ContentHash]
			existing.RefCount++
		} else {
			record.Location = location
			r.records[record.ContentHash] = record
			existing = record
			isNew = true
		}
	} else {
		existing.RefCount++
	}

	entry.StorageID = existing.ID
	entry.AlbumRelativePath = AlbumRelativePath(entry.AlbumName, existing.Location)
	r.entries[entry.ID] = entry
	return existing, isNew, nil
}

func (r *fakeMediaRepo) DeleteEntry(ctx context.Context, entryID string) (*ReleaseResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[entryID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	delete(r.entries, entryID)

	var record *StorageRecord
	for _, rec := range r.records {
		if rec.ID == entry.StorageID {
			record = rec
			break
		}
	}
	if record == nil {
		return nil, errors.New("ledger record missing for entry")
	}

	record.RefCount--
	res := &ReleaseResult{Entry: entry, RemainingRefs: record.RefCount}
	if record.RefCount == 0 {
		delete(r.records, record.ContentHash)
		res.Reclaimed = true
		res.Location = record.Location
	}
	return res, nil
}

func (r *fakeMediaRepo) DeleteAll(ctx context.Context) (*PurgeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &PurgeResult{
		Entries: int64(len(r.entries)),
		Records: int64(len(r.records)),
	}
	for _, rec := range r.records {
		res.Locations = append(res.Locations, rec.Location)
	}
	r.entries = make(map[string]*MediaEntry)
	r.records = make(map[string]*StorageRecord)
	return res, nil
}

func (r *fakeMediaRepo) GetRecordByHash(ctx context.Context, contentHash string) (*StorageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[contentHash], nil
}

func (r *fakeMediaRepo) ListEntries(ctx context.Context, filter *ListFilter) ([]*EntryWithStorage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*EntryWithStorage
	for _, entry := range r.entries {
		var record *StorageRecord
		for _, rec := range r.records {
			if rec.ID == entry.StorageID {
				record = rec
				break
			}
		}
		if filter.MediaKind != "" && record.MediaKind != filter.MediaKind {
			continue
		}
		if filter.AlbumName != "" && entry.AlbumName != filter.AlbumName {
			continue
		}
		out = append(out, &EntryWithStorage{Entry: entry, Record: record})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Entry.CreatedAt.After(out[j].Entry.CreatedAt)
	})
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeMediaRepo) ListAlbums(ctx context.Context) ([]*AlbumSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byAlbum := make(map[string]*AlbumSummary)
	for _, entry := range r.entries {
		sum, ok := byAlbum[entry.AlbumName]
		if !ok {
			sum = &AlbumSummary{AlbumName: entry.AlbumName}
			byAlbum[entry.AlbumName] = sum
		}
		sum.EntryCount++
		for _, rec := range r.records {
			if rec.ID == entry.StorageID {
				sum.TotalBytes += rec.ByteSize
				break
			}
		}
		if entry.CreatedAt.After(sum.LastUpload) {
			sum.LastUpload = entry.CreatedAt
		}
	}
	var out []*AlbumSummary
	for _, sum := range byAlbum {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpload.After(out[j].LastUpload)
	})
	return out, nil
}

func (r *fakeMediaRepo) Stats(ctx context.Context) (*VaultStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &VaultStats{
		TotalEntries: int64(len(r.entries)),
		UniqueBlobs:  int64(len(r.records)),
	}
	stats.DedupeSavings = stats.TotalEntries - stats.UniqueBlobs
	for _, rec := range r.records {
		stats.TotalBytes += rec.ByteSize
	}
	for _, entry := range r.entries {
		for _, rec := range r.records {
			if rec.ID == entry.StorageID {
				switch rec.MediaKind {
				case MediaKindImage:
					stats.ImageCount++
				case MediaKindVideo:
					stats.VideoCount++
				}
				break
			}
		}
	}
	return stats, nil
}

func newTestUseCase(repo *fakeMediaRepo, store *fakeBlobStore) *MediaUseCase {
	return NewMediaUseCase(repo, store, DefaultMaxUploadSize, nil)
}

// TestIngest_Deduplication 同一内容多次入库：条目各自独立，
// 账本记录唯一且引用计数等于入库次数，物理文件只有一份
func TestIngest_Deduplication(t *testing.T) {
	repo := newFakeMediaRepo()
	store := newFakeBlobStore()
	uc := newTestUseCase(repo, store)
	ctx := context.Background()

	first, err := uc.Ingest(ctx, &IngestRequest{
		Data:         pngPayload,
		ContentType:  "image/png",
		OriginalName: "cat.png",
		AlbumName:    "pets",
	})
	require.NoError(t, err)
	assert.False(t, first.Deduplicated)
	assert.Equal(t, 1, first.Record.RefCount)

	second, err := uc.Ingest(ctx, &IngestRequest{
		Data:         pngPayload,
		ContentType:  "image/png",
		OriginalName: "cat-copy.png",
		AlbumName:    "backup",
	})
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, 2, second.Record.RefCount)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.NotEqual(t, first.Entry.ID, second.Entry.ID)

	third, err := uc.Ingest(ctx, &IngestRequest{
		Data:         pngPayload,
		ContentType:  "image/png",
		OriginalName: "cat.png",
		AlbumName:    "pets",
	})
	require.NoError(t, err)
	assert.True(t, third.Deduplicated)
	assert.Equal(t, 3, third.Record.RefCount)

	assert.Equal(t, 1, store.count())
	assert.Len(t, repo.entries, 3)
	assert.Len(t, repo.records, 1)
}

// TestIngest_RejectionHasNoSideEffects 拒绝的上传不得留下任何条目、记录或文件
func TestIngest_RejectionHasNoSideEffects(t *testing.T) {
	repo := newFakeMediaRepo()
	store := newFakeBlobStore()
	uc := NewMediaUseCase(repo, store, 1024, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *IngestRequest
		wantErr error
	}{
		{
			name:    "空负载",
			req:     &IngestRequest{Data: nil, ContentType: "image/png", OriginalName: "a.png"},
			wantErr: ErrEmptyPayload,
		},
		{
			name: "超出大小上限",
			req: &IngestRequest{
				Data:         make([]byte, 2048),
				ContentType:  "image/png",
				OriginalName: "big.png",
			},
			wantErr: ErrSizeLimitExceeded,
		},
		{
			name: "不支持的内容类型",
			req: &IngestRequest{
				Data:         []byte("hello world, plain text"),
				ContentType:  "text/plain",
				OriginalName: "note.txt",
			},
			wantErr: ErrUnsupportedContentKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Ingest(ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, 0, store.count())
	assert.Empty(t, repo.entries)
	assert.Empty(t, repo.records)
}

// TestIngest_CleanupAfterMetadataFailure 物理写入后元数据事务失败时，
// 新写入的文件必须被清理
func TestIngest_CleanupAfterMetadataFailure(t *testing.T) {
	repo := newFakeMediaRepo()
	repo.failAfterWrite = true
	store := newFakeBlobStore()
	uc := newTestUseCase(repo, store)

	_, err := uc.Ingest(context.Background(), &IngestRequest{
		Data:         pngPayload,
		ContentType:  "image/png",
		OriginalName: "cat.png",
		AlbumName:    "pets",
	})
	require.Error(t, err)
	assert.Equal(t, 0, store.count())
	assert.Empty(t, repo.entries)
}

// TestIngest_ConcurrentRaceLoser 并发入库同一内容的失败方：
// 结果按去重命中返回，自己写入的多余文件被丢弃
func TestIngest_ConcurrentRaceLoser(t *testing.T) {
	repo := newFakeMediaRepo()
	store := newFakeBlobStore()
	uc := newTestUseCase(repo, store)
	ctx := context.Background()

	// 胜出方已写入的文件与账本记录
	winnerLocation, err := store.Put(ctx, "pets", "cat.png", pngPayload, "image/png")
	require.NoError(t, err)

	sum := contentHashOf(pngPayload)
	repo.raceWinner = &StorageRecord{
		ID:          "winner-record",
		ContentHash: sum,
		Location:    winnerLocation,
		ByteSize:    int64(len(pngPayload)),
		ContentType: "image/png",
		MediaKind:   MediaKindImage,
		RefCount:    1,
	}

	result, err := uc.Ingest(ctx, &IngestRequest{
		Data:         pngPayload,
		ContentType:  "image/png",
		OriginalName: "cat.png",
		AlbumName:    "pets",
	})
	require.NoError(t, err)
	assert.True(t, result.Deduplicated)
	assert.Equal(t, "winner-record", result.Record.ID)
	assert.Equal(t, 2, result.Record.RefCount)

	// 只剩胜出方的文件
	assert.Equal(t, 1, store.count())
	exists, _ := store.Exists(ctx, winnerLocation)
	assert.True(t, exists)
}

// TestDelete_ReclaimsOnlyAtZeroRefs 引用计数归零时才回收物理文件
func TestDelete_ReclaimsOnlyAtZeroRefs(t *testing.T) {
	repo := newFakeMediaRepo()
	store := newFakeBlobStore()
	uc := newTestUseCase(repo, store)
	ctx := context.Background()

	first, err := uc.Ingest(ctx, &IngestRequest{
		Data: pngPayload, ContentType: "image/png", OriginalName: "cat.png", AlbumName: "pets",
	})
	require.NoError(t, err)
	second, err := uc.Ingest(ctx, &IngestRequest{
		Data: pngPayload, ContentType: "image/png", OriginalName: "cat2.png", AlbumName: "pets",
	})
	require.NoError(t, err)
	location := first.Record.Location

	res, err := uc.Delete(ctx, first.Entry.ID)
	require.NoError(t, err)
	assert.False(t, res.Reclaimed)
	assert.Equal(t, 1, res.RemainingRefs)
	exists, _ := store.Exists(ctx, location)
	assert.True(t, exists, "仍有引用时不得删除物理文件")

	res, err = uc.Delete(ctx, second.Entry.ID)
	require.NoError(t, err)
	assert.True(t, res.Reclaimed)
	assert.Equal(t, 0, res.RemainingRefs)
	exists, _ = store.Exists(ctx, location)
	assert.False(t, exists, "引用归零后物理文件必须回收")

	// 重复删除同一条目
	_, err = uc.Delete(ctx, second.Entry.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

// TestDelete_BlobFailureKeepsReclaimedFlag 物理删除失败时元数据删除仍然生效，
// Reclaimed 反映账本决定而非文件删除结果
func TestDelete_BlobFailureKeepsReclaimedFlag(t *testing.T) {
	repo := newFakeMediaRepo()
	store := newFakeBlobStore()
	uc := newTestUseCase(repo, store)
	ctx := context.Background()

	result, err := uc.Ingest(ctx, &IngestRequest{
		Data: pngPayload, ContentType: "image/png", OriginalName: "cat.png", AlbumName: "pets",
	})
	require.NoError(t, err)

	store.failDelete = true
	res, err := uc.Delete(ctx, result.Entry.ID)
	require.NoError(t, err)
	assert.True(t, res.Reclaimed, "账本已回收，标志不随文件删除失败翻转")
	assert.Equal(t, 0, res.RemainingRefs)
	assert.Empty(t, repo.entries)
	assert.Empty(t, repo.records)
}

// TestDeleteAll 清空全部元数据与物理文件
func TestDeleteAll(t *testing.T) {
	repo := newFakeMediaRepo()
	store := newFakeBlobStore()
	uc := newTestUseCase(repo, store)
	ctx := context.Background()

	payloads := [][]byte{
		pngPayload,
		append([]byte("\x89PNG\r\n\x1a\n"), []byte("another image")...),
	}
	for i, data := range payloads {
		_, err := uc.Ingest(ctx, &IngestRequest{
			Data: data, ContentType: "image/png",
			OriginalName: fmt.Sprintf("img%d.png", i), AlbumName: "pets",
		})
		require.NoError(t, err)
	}
	// 第一份内容的重复入库
	_, err := uc.Ingest(ctx, &IngestRequest{
		Data: pngPayload, ContentType: "image/png", OriginalName: "dup.png", AlbumName: "backup",
	})
	require.NoError(t, err)

	summary, err := uc.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Entries)
	assert.Equal(t, int64(2), summary.Records)
	assert.Equal(t, int64(2), summary.BlobsRemoved)
	assert.Equal(t, int64(0), summary.BlobsMissing)
	assert.Equal(t, 0, store.count())
	assert.Empty(t, repo.entries)
	assert.Empty(t, repo.records)
}

// TestStats 统计口径：条目数、唯一内容数、去重节省、物理字节数
func TestStats(t *testing.T) {
	repo := newFakeMediaRepo()
	store := newFakeBlobStore()
	uc := newTestUseCase(repo, store)
	ctx := context.Background()

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		_, err := uc.Ingest(ctx, &IngestRequest{
			Data: pngPayload, ContentType: "image/png", OriginalName: name, AlbumName: "pets",
		})
		require.NoError(t, err)
	}
	_, err := uc.Ingest(ctx, &IngestRequest{
		Data: []byte("unique video bytes"), ContentType: "video/mp4",
		OriginalName: "clip.mp4", AlbumName: "trips",
	})
	require.NoError(t, err)

	stats, err := uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalEntries)
	assert.Equal(t, int64(2), stats.UniqueBlobs)
	assert.Equal(t, int64(2), stats.DedupeSavings)
	assert.Equal(t, int64(3), stats.ImageCount)
	assert.Equal(t, int64(1), stats.VideoCount)
	assert.Equal(t, int64(len(pngPayload)+len("unique video bytes")), stats.TotalBytes)
}

// TestHashExists 哈希查询
func TestHashExists(t *testing.T) {
	repo := newFakeMediaRepo()
	store := newFakeBlobStore()
	uc := newTestUseCase(repo, store)
	ctx := context.Background()

	exists, record, err := uc.HashExists(ctx, contentHashOf(pngPayload))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, record)

	_, err = uc.Ingest(ctx, &IngestRequest{
		Data: pngPayload, ContentType: "image/png", OriginalName: "cat.png", AlbumName: "pets",
	})
	require.NoError(t, err)

	exists, record, err = uc.HashExists(ctx, contentHashOf(pngPayload))
	require.NoError(t, err)
	assert.True(t, exists)
	require.NotNil(t, record)
	assert.Equal(t, int64(len(pngPayload)), record.ByteSize)
}

// TestListEntries 列表查询的过滤与条数上限
func TestListEntries(t *testing.T) {
	repo := newFakeMediaRepo()
	store := newFakeBlobStore()
	uc := newTestUseCase(repo, store)
	ctx := context.Background()

	_, err := uc.Ingest(ctx, &IngestRequest{
		Data: pngPayload, ContentType: "image/png", OriginalName: "cat.png", AlbumName: "pets",
	})
	require.NoError(t, err)
	_, err = uc.Ingest(ctx, &IngestRequest{
		Data: []byte("video bytes"), ContentType: "video/mp4", OriginalName: "clip.mp4", AlbumName: "trips",
	})
	require.NoError(t, err)

	all, err := uc.ListEntries(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	images, err := uc.ListEntries(ctx, &ListFilter{MediaKind: MediaKindImage})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "cat.png", images[0].Entry.OriginalName)

	trips, err := uc.ListEntries(ctx, &ListFilter{AlbumName: "trips"})
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, MediaKindVideo, trips[0].Record.MediaKind)

	limited, err := uc.ListEntries(ctx, &ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
