package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failKV 所有读写都失败，验证降级路径。
type failKV struct{}

func (failKV) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("backend down")
}

func (failKV) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("backend down")
}

func TestWatchlistDefaultGroup(t *testing.T) {
	ctx := context.Background()
	l := NewLists(NewMemory())

	w := l.Watchlist(ctx)
	require.Len(t, w.Groups, 1)
	assert.Equal(t, "default", w.Groups[0].ID)
	assert.Equal(t, "默认分组", w.Groups[0].Name)
	assert.Empty(t, w.Groups[0].Codes)
}

func TestWatchlistCorruptData(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	require.NoError(t, kv.Set(ctx, "stock_watchlist", []byte("{broken")))

	w := NewLists(kv).Watchlist(ctx)
	require.Len(t, w.Groups, 1)
	assert.Equal(t, "default", w.Groups[0].ID)
}

func TestAddRemoveCode(t *testing.T) {
	ctx := context.Background()
	l := NewLists(NewMemory())

	l.AddToGroup(ctx, "sh600519", "")
	l.AddToGroup(ctx, "sh600519", "") // 重复添加不生效
	l.AddToGroup(ctx, "sz000001", "")

	assert.True(t, l.Contains(ctx, "sh600519"))
	assert.Equal(t, []string{"sh600519", "sz000001"}, l.AllCodes(ctx))

	l.RemoveFromGroup(ctx, "sh600519", "")
	assert.False(t, l.Contains(ctx, "sh600519"))
	assert.Equal(t, []string{"sz000001"}, l.AllCodes(ctx))
}

func TestAddToUnknownGroupFallsBack(t *testing.T) {
	ctx := context.Background()
	l := NewLists(NewMemory())

	l.AddToGroup(ctx, "sh600519", "no_such_group")
	w := l.Watchlist(ctx)
	require.Len(t, w.Groups, 1)
	assert.Equal(t, []string{"sh600519"}, w.Groups[0].Codes)
}

func TestGroupCRUD(t *testing.T) {
	ctx := context.Background()
	l := NewLists(NewMemory())

	id := l.AddGroup(ctx, "短线")
	require.NotEmpty(t, id)
	l.AddToGroup(ctx, "sz300750", id)

	l.RenameGroup(ctx, id, "短线池")
	w := l.Watchlist(ctx)
	require.Len(t, w.Groups, 2)
	assert.Equal(t, "短线池", w.Groups[1].Name)
	assert.Equal(t, []string{"sz300750"}, w.Groups[1].Codes)

	l.RemoveGroup(ctx, id)
	w = l.Watchlist(ctx)
	require.Len(t, w.Groups, 1)
	assert.Equal(t, "default", w.Groups[0].ID)
}

func TestAllCodesDedup(t *testing.T) {
	ctx := context.Background()
	l := NewLists(NewMemory())

	id := l.AddGroup(ctx, "第二组")
	l.AddToGroup(ctx, "sh600519", "default")
	l.AddToGroup(ctx, "sz000001", "default")
	l.AddToGroup(ctx, "sh600519", id) // 同一代码可在多个分组

	assert.Equal(t, []string{"sh600519", "sz000001"}, l.AllCodes(ctx))
}

func TestExcludeRestore(t *testing.T) {
	ctx := context.Background()
	l := NewLists(NewMemory())

	assert.False(t, l.IsExcluded(ctx, "sh600519"))
	l.Exclude(ctx, "sh600519", "贵州茅台", "太贵")
	assert.True(t, l.IsExcluded(ctx, "sh600519"))
	assert.Equal(t, "太贵", l.ExcludeReason(ctx, "sh600519"))

	// 同一代码至多一条，原因不被覆盖
	l.Exclude(ctx, "sh600519", "贵州茅台", "别的原因")
	list := l.Excluded(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "太贵", list[0].Reason)
	assert.Greater(t, list[0].ExcludedAt, int64(0))

	set := l.ExcludedCodes(ctx)
	assert.True(t, set["sh600519"])

	l.Restore(ctx, "sh600519")
	assert.False(t, l.IsExcluded(ctx, "sh600519"))
	assert.Empty(t, l.ExcludedCodes(ctx))
}

// spyKV 记录写入次数。
type spyKV struct {
	KV
	sets int
}

func (s *spyKV) Set(ctx context.Context, key string, value []byte) error {
	s.sets++
	return s.KV.Set(ctx, key, value)
}

func TestRestoreUnknownCodeDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	kv := &spyKV{KV: NewMemory()}
	l := NewLists(kv)

	l.Restore(ctx, "sh600519")
	assert.Zero(t, kv.sets)

	l.Exclude(ctx, "sh600519", "贵州茅台", "")
	writes := kv.sets
	l.Restore(ctx, "sz000001") // 不在名单中
	assert.Equal(t, writes, kv.sets)

	l.Restore(ctx, "sh600519")
	assert.Equal(t, writes+1, kv.sets)
	assert.False(t, l.IsExcluded(ctx, "sh600519"))
}

func TestFailingBackendFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	l := NewLists(failKV{})

	// 读失败回落默认值，写失败吞掉，全程不 panic 不报错
	w := l.Watchlist(ctx)
	require.Len(t, w.Groups, 1)
	assert.Equal(t, "default", w.Groups[0].ID)

	l.AddToGroup(ctx, "sh600519", "")
	l.Exclude(ctx, "sz000001", "平安银行", "")
	l.Restore(ctx, "sz000001")

	assert.Empty(t, l.Excluded(ctx))
	assert.False(t, l.IsExcluded(ctx, "sz000001"))
}
