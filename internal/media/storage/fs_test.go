package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutCreatesUniqueFiles(t *testing.T) {
	root := t.TempDir()
	store, err := NewFSStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	loc1, err := store.Put(ctx, "pets", "cat.png", []byte("first"), "image/png")
	require.NoError(t, err)
	loc2, err := store.Put(ctx, "pets", "cat.png", []byte("second"), "image/png")
	require.NoError(t, err)

	// 同名上传必须落到不同位置
	assert.NotEqual(t, loc1, loc2)
	assert.True(t, strings.HasPrefix(loc1, "pets/"))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(loc1)))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)
}

func TestFSStore_PutSanitizesComponents(t *testing.T) {
	root := t.TempDir()
	store, err := NewFSStore(root)
	require.NoError(t, err)

	loc, err := store.Put(context.Background(), "../escape", "../../etc/passwd", []byte("x"), "image/png")
	require.NoError(t, err)
	assert.False(t, strings.Contains(loc, ".."))

	// 文件必须落在根目录内
	abs := filepath.Join(root, filepath.FromSlash(loc))
	rel, err := filepath.Rel(root, abs)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(rel, ".."))
	_, err = os.Stat(abs)
	assert.NoError(t, err)
}

func TestFSStore_DeleteAndExists(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	loc, err := store.Put(ctx, "pets", "cat.png", []byte("data"), "image/png")
	require.NoError(t, err)

	exists, err := store.Exists(ctx, loc)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, loc))

	exists, err = store.Exists(ctx, loc)
	require.NoError(t, err)
	assert.False(t, exists)

	// 删除不存在的文件视为成功
	assert.NoError(t, store.Delete(ctx, loc))
}

func TestFSStore_RejectsUnsafeLocations(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, loc := range []string{"", "/etc/passwd", "a/../../b", "a\\b"} {
		assert.Error(t, store.Delete(ctx, loc), "location %q", loc)
		_, err := store.Exists(ctx, loc)
		assert.Error(t, err, "location %q", loc)
	}
}
