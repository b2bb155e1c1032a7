package biz

import (
	"context"
	"time"

	"github.com/lk2023060901/media-vault-backend/internal/pkg/logger"
)

// 媒体类型
const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

// DefaultListLimit 列表查询的默认条数上限
const DefaultListLimit = 50

// DefaultMaxUploadSize 上传大小默认上限（200 MiB）
const DefaultMaxUploadSize = 200 << 20

// StorageRecord 物理存储记录（按内容哈希去重，一个哈希对应一条记录）
type StorageRecord struct {
	ID          string
	ContentHash string // 完整字节序列的 SHA256 哈希
	Location    string // 物理存储位置（相册目录/文件名 或 对象键）
	ByteSize    int64
	ContentType string
	MediaKind   string // image, video
	RefCount    int    // 引用该记录的媒体条目数
	CreatedAt   time.Time
}

// MediaEntry 逻辑媒体条目（一次上传对应一条，可与其他条目共享物理存储）
type MediaEntry struct {
	ID                string
	StorageID         string // 引用的 StorageRecord ID
	OriginalName      string
	AlbumName         string
	AlbumRelativePath string // 相册下的展示路径
	CreatedAt         time.Time
}

// EntryWithStorage 条目与其物理存储记录的联合视图
type EntryWithStorage struct {
	Entry  *MediaEntry
	Record *StorageRecord
}

// AlbumSummary 相册聚合信息
type AlbumSummary struct {
	AlbumName  string
	EntryCount int64
	TotalBytes int64
	LastUpload time.Time
}

// VaultStats 全局统计
type VaultStats struct {
	TotalEntries  int64
	UniqueBlobs   int64
	DedupeSavings int64 // TotalEntries - UniqueBlobs
	ImageCount    int64
	VideoCount    int64
	TotalBytes    int64 // 物理存储字节数（去重后）
}

// ListFilter 列表查询条件
type ListFilter struct {
	MediaKind string // 可选：image / video
	AlbumName string // 可选
	Limit     int    // 不填时使用 DefaultListLimit
}

// BlobWriteFunc 在账本未命中时执行物理写入，返回存储位置。
// 只有真正的未命中才会被调用，命中路径不做任何物理 I/O。
type BlobWriteFunc func(ctx context.Context) (location string, err error)

// ReleaseResult 删除条目后的引用释放结果
type ReleaseResult struct {
	Entry         *MediaEntry
	RemainingRefs int
	Reclaimed     bool   // 引用计数归零，存储记录已删除
	Location      string // 仅在 Reclaimed 时有效，待物理回收的位置
}

// PurgeResult 全量清空的元数据结果
type PurgeResult struct {
	Entries   int64
	Records   int64
	Locations []string // 提交时账本中的全部物理位置
}

// MediaRepo 媒体元数据仓储接口。
// CreateEntry / DeleteEntry / DeleteAll 的全部元数据变更必须在单个事务内提交。
type MediaRepo interface {
	// CreateEntry 获取账本记录（新建或引用递增）并写入条目。
	// 未命中时调用 write 完成物理写入后再插入记录；并发哈希冲突在内部
	// 以去重命中的方式重试，不向上层暴露。返回记录及是否为新建。
	CreateEntry(ctx context.Context, entry *MediaEntry, record *StorageRecord, write BlobWriteFunc) (*StorageRecord, bool, error)

	// DeleteEntry 删除条目并递减引用计数；计数归零时一并删除存储记录。
	// 条目不存在时返回 ErrEntryNotFound，且不产生任何变更。
	DeleteEntry(ctx context.Context, entryID string) (*ReleaseResult, error)

	// DeleteAll 删除全部条目与存储记录，返回待回收的物理位置列表
	DeleteAll(ctx context.Context) (*PurgeResult, error)

	// GetRecordByHash 按内容哈希查询存储记录，不存在时返回 nil
	GetRecordByHash(ctx context.Context, contentHash string) (*StorageRecord, error)

	// ListEntries 条目与存储记录的联合查询，按创建时间倒序
	ListEntries(ctx context.Context, filter *ListFilter) ([]*EntryWithStorage, error)

	// ListAlbums 按相册聚合，按最近上传时间倒序
	ListAlbums(ctx context.Context) ([]*AlbumSummary, error)

	// Stats 全局统计
	Stats(ctx context.Context) (*VaultStats, error)
}

// BlobStore 物理文件存储接口，纯物理 I/O，不感知哈希与引用计数
type BlobStore interface {
	// Put 将字节写入新的唯一位置，不覆盖已存在的文件；目录创建是幂等的
	Put(ctx context.Context, album, name string, data []byte, contentType string) (location string, err error)

	// Delete 删除物理文件；文件不存在视为成功
	Delete(ctx context.Context, location string) error

	// Exists 检查物理文件是否存在
	Exists(ctx context.Context, location string) (bool, error)
}

// MediaUseCase 媒体用例：入库、删除与查询管线
type MediaUseCase struct {
	repo          MediaRepo
	store         BlobStore
	maxUploadSize int64
	logger        *logger.Logger
}

// NewMediaUseCase 创建媒体用例
func NewMediaUseCase(repo MediaRepo, store BlobStore, maxUploadSize int64, log *logger.Logger) *MediaUseCase {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	if log == nil {
		log = logger.L()
	}
	return &MediaUseCase{
		repo:          repo,
		store:         store,
		maxUploadSize: maxUploadSize,
		logger:        log,
	}
}

// MaxUploadSize 返回上传大小上限
func (uc *MediaUseCase) MaxUploadSize() int64 {
	return uc.maxUploadSize
}
