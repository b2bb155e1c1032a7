package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSanitizePathComponent 路径分量净化
func TestSanitizePathComponent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		want     string
	}{
		{"普通名称原样保留", "holiday-2026_01.png", "default", "holiday-2026_01.png"},
		{"空字符串使用回退值", "", "default", "default"},
		{"路径分隔符替换为下划线", "a/b\\c", "default", "a_b_c"},
		{"空格与特殊字符替换", "my photo (1).jpg", "default", "my_photo__1_.jpg"},
		{"去除前导点", "..secret", "default", "secret"},
		{"路径回溯被消解", "../../etc/passwd", "default", "_.._etc_passwd"},
		{"仅由点组成时使用回退值", "...", "default", "default"},
		{"非 ASCII 字符替换", "相册A", "default", "__A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePathComponent(tt.input, tt.fallback))
		})
	}
}

// TestSanitizePathComponent_Truncation 超长分量截断
func TestSanitizePathComponent_Truncation(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := SanitizePathComponent(long, "default")
	assert.Len(t, got, 128)
}

// TestAlbumRelativePath 相册展示路径
func TestAlbumRelativePath(t *testing.T) {
	assert.Equal(t, "pets/1700000000_cat.png", AlbumRelativePath("pets", "pets/1700000000_cat.png"))
	assert.Equal(t, "my_album/x.png", AlbumRelativePath("my album", "my_album/x.png"))
	assert.Equal(t, "default/x.png", AlbumRelativePath("", "somewhere/x.png"))
}
