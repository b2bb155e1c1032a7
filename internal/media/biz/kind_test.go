package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClassifyMediaKind 媒体类型判定：声明优先，通用类型走字节探测与扩展名兜底
func TestClassifyMediaKind(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		filename string
		data     []byte
		wantKind string
		wantType string
		wantErr  error
	}{
		{
			name:     "声明为图片",
			declared: "image/jpeg",
			filename: "photo.jpg",
			data:     []byte("not real jpeg bytes"),
			wantKind: MediaKindImage,
			wantType: "image/jpeg",
		},
		{
			name:     "声明为视频",
			declared: "video/mp4",
			filename: "clip.mp4",
			data:     []byte("not real mp4 bytes"),
			wantKind: MediaKindVideo,
			wantType: "video/mp4",
		},
		{
			name:     "声明带参数且大小写混杂",
			declared: "IMAGE/PNG; charset=binary",
			filename: "a.png",
			data:     pngPayload,
			wantKind: MediaKindImage,
			wantType: "image/png",
		},
		{
			name:     "通用类型按字节探测",
			declared: "application/octet-stream",
			filename: "unknown.bin",
			data:     pngPayload,
			wantKind: MediaKindImage,
			wantType: "image/png",
		},
		{
			name:     "空声明按字节探测",
			declared: "",
			filename: "",
			data:     pngPayload,
			wantKind: MediaKindImage,
			wantType: "image/png",
		},
		{
			name:     "探测失败按扩展名兜底",
			declared: "application/octet-stream",
			filename: "holiday.mp4",
			data:     []byte("unrecognizable container bytes"),
			wantKind: MediaKindVideo,
			wantType: "video/mp4",
		},
		{
			name:     "文本类型拒绝",
			declared: "text/plain",
			filename: "note.txt",
			data:     []byte("hello"),
			wantErr:  ErrUnsupportedContentKind,
		},
		{
			name:     "通用类型无法判定时拒绝",
			declared: "application/octet-stream",
			filename: "data.bin",
			data:     []byte("no magic bytes here"),
			wantErr:  ErrUnsupportedContentKind,
		},
		{
			name:     "PDF 拒绝",
			declared: "application/pdf",
			filename: "doc.pdf",
			data:     []byte("%PDF-1.7"),
			wantErr:  ErrUnsupportedContentKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, resolvedType, err := ClassifyMediaKind(tt.declared, tt.filename, tt.data)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantType, resolvedType)
		})
	}
}
