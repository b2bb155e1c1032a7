package service

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/media-vault-backend/internal/media/biz"
	apperrors "github.com/lk2023060901/media-vault-backend/internal/pkg/errors"
	"github.com/lk2023060901/media-vault-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// MediaService 媒体 HTTP 服务
type MediaService struct {
	uc           *biz.MediaUseCase
	defaultAlbum string
	logger       *zap.Logger
}

// NewMediaService 创建媒体服务
func NewMediaService(uc *biz.MediaUseCase, defaultAlbum string, logger *zap.Logger) *MediaService {
	if defaultAlbum == "" {
		defaultAlbum = "default"
	}
	return &MediaService{
		uc:           uc,
		defaultAlbum: defaultAlbum,
		logger:       logger,
	}
}

// RegisterRoutes 注册媒体路由
func (s *MediaService) RegisterRoutes(r *gin.RouterGroup) {
	media := r.Group("/media")
	{
		media.POST("", s.UploadMedia)
		media.GET("", s.ListMedia)
		media.GET("/hash/:hash", s.CheckHash)
		media.DELETE("/:id", s.DeleteMedia)
		media.DELETE("", s.DeleteAllMedia)
	}
	r.GET("/albums", s.ListAlbums)
	r.GET("/stats", s.GetStats)
}

// UploadMedia 上传媒体文件（multipart 表单，字段 file，可选 album）
func (s *MediaService) UploadMedia(c *gin.Context) {
	// 请求体上限：文件大小上限加表单开销余量
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.uc.MaxUploadSize()+(1<<20))

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.ErrorWithCode(c, apperrors.ErrMediaTooLarge)
			return
		}
		response.Error(c, http.StatusBadRequest, "invalid file or field name is not 'file'")
		return
	}
	defer file.Close()

	// 声明的大小超限时直接拒绝，不读取内容
	if header.Size > s.uc.MaxUploadSize() {
		response.ErrorWithCode(c, apperrors.ErrMediaTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("failed to read uploaded file",
			zap.String("filename", header.Filename),
			zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrMediaReadFailed)
		return
	}

	album := c.PostForm("album")
	if album == "" {
		album = s.defaultAlbum
	}

	result, err := s.uc.Ingest(c.Request.Context(), &biz.IngestRequest{
		Data:         data,
		ContentType:  header.Header.Get("Content-Type"),
		OriginalName: header.Filename,
		AlbumName:    album,
	})
	if err != nil {
		s.logger.Error("failed to ingest media",
			zap.String("filename", header.Filename),
			zap.String("album", album),
			zap.Error(err))
		s.respondError(c, err)
		return
	}

	response.Created(c, toUploadResponse(result))
}

// ListMedia 列出媒体条目，支持 kind / album / limit 查询参数
func (s *MediaService) ListMedia(c *gin.Context) {
	filter := &biz.ListFilter{
		MediaKind: c.Query("kind"),
		AlbumName: c.Query("album"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if filter.MediaKind != "" &&
		filter.MediaKind != biz.MediaKindImage &&
		filter.MediaKind != biz.MediaKindVideo {
		response.BadRequest(c, "kind must be image or video")
		return
	}

	items, err := s.uc.ListEntries(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list media", zap.Error(err))
		s.respondError(c, err)
		return
	}

	out := make([]*EntryResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toEntryResponse(item))
	}
	response.Success(c, gin.H{
		"items": out,
		"count": len(out),
	})
}

// CheckHash 查询内容哈希是否已入库
func (s *MediaService) CheckHash(c *gin.Context) {
	hash := c.Param("hash")
	if len(hash) != 64 {
		response.BadRequest(c, "hash must be a 64-character hex SHA-256 digest")
		return
	}

	exists, record, err := s.uc.HashExists(c.Request.Context(), hash)
	if err != nil {
		s.logger.Error("failed to check hash", zap.String("hash", hash), zap.Error(err))
		s.respondError(c, err)
		return
	}

	resp := &HashCheckResponse{Exists: exists, ContentHash: hash}
	if record != nil {
		resp.MediaKind = record.MediaKind
		resp.ByteSize = record.ByteSize
		resp.RefCount = record.RefCount
	}
	response.Success(c, resp)
}

// DeleteMedia 删除单条媒体条目
func (s *MediaService) DeleteMedia(c *gin.Context) {
	entryID := c.Param("id")

	result, err := s.uc.Delete(c.Request.Context(), entryID)
	if err != nil {
		if !errors.Is(err, biz.ErrEntryNotFound) {
			s.logger.Error("failed to delete media", zap.String("entry_id", entryID), zap.Error(err))
		}
		s.respondError(c, err)
		return
	}

	response.Success(c, &DeleteResponse{
		EntryID:       result.Entry.ID,
		RemainingRefs: result.RemainingRefs,
		Reclaimed:     result.Reclaimed,
	})
}

// DeleteAllMedia 清空全部媒体
func (s *MediaService) DeleteAllMedia(c *gin.Context) {
	summary, err := s.uc.DeleteAll(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to purge media vault", zap.Error(err))
		s.respondError(c, err)
		return
	}

	response.Success(c, &PurgeResponse{
		Entries:      summary.Entries,
		Records:      summary.Records,
		BlobsRemoved: summary.BlobsRemoved,
		BlobsMissing: summary.BlobsMissing,
	})
}

// ListAlbums 列出相册聚合信息
func (s *MediaService) ListAlbums(c *gin.Context) {
	albums, err := s.uc.ListAlbums(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to list albums", zap.Error(err))
		s.respondError(c, err)
		return
	}

	out := make([]*AlbumResponse, 0, len(albums))
	for _, album := range albums {
		out = append(out, toAlbumResponse(album))
	}
	response.Success(c, gin.H{
		"albums": out,
		"count":  len(out),
	})
}

// GetStats 全局统计
func (s *MediaService) GetStats(c *gin.Context) {
	stats, err := s.uc.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to get stats", zap.Error(err))
		s.respondError(c, err)
		return
	}
	response.Success(c, toStatsResponse(stats))
}

// respondError 将领域错误映射为错误码响应
func (s *MediaService) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrEntryNotFound):
		response.ErrorWithCode(c, apperrors.ErrMediaNotFound)
	case errors.Is(err, biz.ErrUnsupportedContentKind):
		response.ErrorWithCode(c, apperrors.ErrMediaUnsupportedKind)
	case errors.Is(err, biz.ErrSizeLimitExceeded):
		response.ErrorWithCode(c, apperrors.ErrMediaTooLarge)
	case errors.Is(err, biz.ErrEmptyPayload):
		response.BadRequest(c, "uploaded file is empty")
	case errors.Is(err, biz.ErrReadFailure):
		response.ErrorWithCode(c, apperrors.ErrMediaReadFailed)
	case errors.Is(err, biz.ErrStorageWriteFailure):
		response.ErrorWithCode(c, apperrors.ErrMediaStorageWrite)
	case errors.Is(err, biz.ErrStorageReadFailure):
		response.ErrorWithCode(c, apperrors.ErrMediaStorageRead)
	default:
		response.HandleError(c, err)
	}
}
