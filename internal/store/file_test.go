package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKV(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	kv := NewFile(path)

	_, err := kv.Get(ctx, "stock_watchlist")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "stock_watchlist", []byte(`{"groups":[]}`)))
	require.NoError(t, kv.Set(ctx, "stock_excluded", []byte(`[]`)))

	v, err := kv.Get(ctx, "stock_watchlist")
	require.NoError(t, err)
	assert.JSONEq(t, `{"groups":[]}`, string(v))

	// 两个 key 共存同一文件
	v, err = kv.Get(ctx, "stock_excluded")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(v))
}

func TestFileKVSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")

	require.NoError(t, NewFile(path).Set(ctx, "stock_excluded", []byte(`[{"code":"sh600519"}]`)))

	v, err := NewFile(path).Get(ctx, "stock_excluded")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"code":"sh600519"}]`, string(v))
}

func TestFileKVCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	kv := NewFile(path)
	_, err := kv.Get(ctx, "stock_watchlist")
	assert.Error(t, err)

	// 写入时损坏文件被整体替换
	require.NoError(t, kv.Set(ctx, "stock_watchlist", []byte(`{"groups":[]}`)))
	v, err := kv.Get(ctx, "stock_watchlist")
	require.NoError(t, err)
	assert.JSONEq(t, `{"groups":[]}`, string(v))
}

func TestMemoryKVCopies(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	src := []byte(`{"a":1}`)
	require.NoError(t, kv.Set(ctx, "k", src))
	src[0] = 'X' // 调用方之后改 buffer 不影响已存数据

	v, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(v))

	v[0] = 'Y'
	v2, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(v2))
}
