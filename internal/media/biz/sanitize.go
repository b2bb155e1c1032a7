package biz

import (
	"path"
	"strings"
)

const maxComponentLength = 128

// SanitizePathComponent 将任意字符串净化为安全的文件系统路径分量：
// 仅保留字母、数字、点、下划线与连字符，其余替换为下划线；
// 去除前导点防止隐藏文件与路径回溯；为空时使用 fallback。
func SanitizePathComponent(s, fallback string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxComponentLength {
		out = out[:maxComponentLength]
	}
	if out == "" {
		return fallback
	}
	return out
}

// AlbumRelativePath 返回条目在其相册下的展示路径：
// 净化后的相册名 + 物理存储的文件名
func AlbumRelativePath(album, location string) string {
	return path.Join(SanitizePathComponent(album, "default"), path.Base(location))
}
