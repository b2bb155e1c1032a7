package biz

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// 声明类型为以下值时视为未分类，需要进一步探测
var genericContentTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
	"multipart/form-data":      true,
}

// ClassifyMediaKind 依据声明的内容类型判定媒体类型；声明类型为通用回退值时
// 先按字节内容探测，再按文件扩展名兜底。既不是图片也不是视频时返回
// ErrUnsupportedContentKind。
func ClassifyMediaKind(declared, filename string, data []byte) (kind, resolvedContentType string, err error) {
	ct := normalizeContentType(declared)

	if genericContentTypes[ct] {
		// 字节内容探测
		if len(data) > 0 {
			detected := mimetype.Detect(data)
			if k, ok := kindOf(detected.String()); ok {
				return k, normalizeContentType(detected.String()), nil
			}
		}
		// 扩展名兜底
		if ext := filepath.Ext(filename); ext != "" {
			if byExt := mime.TypeByExtension(ext); byExt != "" {
				ct = normalizeContentType(byExt)
			}
		}
	}

	if k, ok := kindOf(ct); ok {
		return k, ct, nil
	}

	return "", "", ErrUnsupportedContentKind
}

func kindOf(contentType string) (string, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return MediaKindImage, true
	case strings.HasPrefix(contentType, "video/"):
		return MediaKindVideo, true
	default:
		return "", false
	}
}

// normalizeContentType 去掉参数部分并统一为小写，如 "image/JPEG; q=1" -> "image/jpeg"
func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
