package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockscreen/internal/model"
	"stockscreen/internal/trace"
)

// 固定逻辑键
const (
	keyWatchlist = "stock_watchlist"
	keyExcluded  = "stock_excluded"
)

// 默认分组
const (
	defaultGroupID   = "default"
	defaultGroupName = "默认分组"
)

// Lists 自选股与剔除名单的读写入口。读失败回落默认值，写失败记日志后吞掉：
// 最坏影响是列表没存上，不中断筛选。
type Lists struct {
	kv KV
}

func NewLists(kv KV) *Lists {
	return &Lists{kv: kv}
}

// ---------- 自选股 ----------

// Watchlist 读取自选股；key 不存在或数据损坏时返回单个默认分组。
func (l *Lists) Watchlist(ctx context.Context) model.Watchlist {
	var w model.Watchlist
	b, err := l.kv.Get(ctx, keyWatchlist)
	if err == nil {
		if err := json.Unmarshal(b, &w); err != nil {
			trace.Log(ctx, "store: 自选股数据损坏 err=%v", err)
			w.Groups = nil
		}
	} else if err != ErrNotFound {
		trace.Log(ctx, "store: 读取自选股失败 err=%v", err)
	}
	if len(w.Groups) == 0 {
		w.Groups = []model.WatchlistGroup{{ID: defaultGroupID, Name: defaultGroupName, Codes: []string{}}}
	}
	return w
}

func (l *Lists) saveWatchlist(ctx context.Context, w model.Watchlist) {
	b, err := json.Marshal(w)
	if err != nil {
		trace.Log(ctx, "store: 序列化自选股失败 err=%v", err)
		return
	}
	if err := l.kv.Set(ctx, keyWatchlist, b); err != nil {
		trace.Log(ctx, "store: 保存自选股失败 err=%v", err)
	}
}

// AddToGroup 添加代码到分组；groupID 为空或不存在时加入第一个分组，已存在则不重复。
func (l *Lists) AddToGroup(ctx context.Context, code, groupID string) {
	w := l.Watchlist(ctx)
	idx := 0
	for i := range w.Groups {
		if w.Groups[i].ID == groupID {
			idx = i
			break
		}
	}
	for _, c := range w.Groups[idx].Codes {
		if c == code {
			return
		}
	}
	w.Groups[idx].Codes = append(w.Groups[idx].Codes, code)
	l.saveWatchlist(ctx, w)
}

// RemoveFromGroup 从指定分组移除代码；groupID 为空时从所有分组移除。
func (l *Lists) RemoveFromGroup(ctx context.Context, code, groupID string) {
	w := l.Watchlist(ctx)
	changed := false
	for i := range w.Groups {
		if groupID != "" && w.Groups[i].ID != groupID {
			continue
		}
		kept := w.Groups[i].Codes[:0]
		for _, c := range w.Groups[i].Codes {
			if c == code {
				changed = true
				continue
			}
			kept = append(kept, c)
		}
		w.Groups[i].Codes = kept
	}
	if changed {
		l.saveWatchlist(ctx, w)
	}
}

// AddGroup 新建分组并返回分组 ID。
func (l *Lists) AddGroup(ctx context.Context, name string) string {
	w := l.Watchlist(ctx)
	id := fmt.Sprintf("group_%d", time.Now().UnixMilli())
	w.Groups = append(w.Groups, model.WatchlistGroup{ID: id, Name: name, Codes: []string{}})
	l.saveWatchlist(ctx, w)
	return id
}

func (l *Lists) RemoveGroup(ctx context.Context, groupID string) {
	w := l.Watchlist(ctx)
	kept := w.Groups[:0]
	for _, g := range w.Groups {
		if g.ID != groupID {
			kept = append(kept, g)
		}
	}
	w.Groups = kept
	l.saveWatchlist(ctx, w)
}

func (l *Lists) RenameGroup(ctx context.Context, groupID, name string) {
	w := l.Watchlist(ctx)
	for i := range w.Groups {
		if w.Groups[i].ID == groupID {
			w.Groups[i].Name = name
			l.saveWatchlist(ctx, w)
			return
		}
	}
}

// Contains 代码是否在任一分组中。
func (l *Lists) Contains(ctx context.Context, code string) bool {
	for _, g := range l.Watchlist(ctx).Groups {
		for _, c := range g.Codes {
			if c == code {
				return true
			}
		}
	}
	return false
}

// AllCodes 全部自选代码，跨分组去重，保持首次出现顺序。
func (l *Lists) AllCodes(ctx context.Context) []string {
	seen := map[string]bool{}
	var codes []string
	for _, g := range l.Watchlist(ctx).Groups {
		for _, c := range g.Codes {
			if !seen[c] {
				seen[c] = true
				codes = append(codes, c)
			}
		}
	}
	return codes
}

// ---------- 剔除名单 ----------

// Excluded 读取剔除名单；缺失或损坏时为空。
func (l *Lists) Excluded(ctx context.Context) []model.ExcludedStock {
	b, err := l.kv.Get(ctx, keyExcluded)
	if err != nil {
		if err != ErrNotFound {
			trace.Log(ctx, "store: 读取剔除名单失败 err=%v", err)
		}
		return nil
	}
	var list []model.ExcludedStock
	if err := json.Unmarshal(b, &list); err != nil {
		trace.Log(ctx, "store: 剔除名单数据损坏 err=%v", err)
		return nil
	}
	return list
}

func (l *Lists) saveExcluded(ctx context.Context, list []model.ExcludedStock) {
	b, err := json.Marshal(list)
	if err != nil {
		trace.Log(ctx, "store: 序列化剔除名单失败 err=%v", err)
		return
	}
	if err := l.kv.Set(ctx, keyExcluded, b); err != nil {
		trace.Log(ctx, "store: 保存剔除名单失败 err=%v", err)
	}
}

// Exclude 剔除股票；同一代码至多一条，已存在则不覆盖。
func (l *Lists) Exclude(ctx context.Context, code, name, reason string) {
	list := l.Excluded(ctx)
	for _, s := range list {
		if s.Code == code {
			return
		}
	}
	list = append(list, model.ExcludedStock{
		Code:       code,
		Name:       name,
		Reason:     reason,
		ExcludedAt: time.Now().UnixMilli(),
	})
	l.saveExcluded(ctx, list)
}

// Restore 从剔除名单恢复；不在名单中时不写存储。
func (l *Lists) Restore(ctx context.Context, code string) {
	list := l.Excluded(ctx)
	kept := list[:0]
	changed := false
	for _, s := range list {
		if s.Code == code {
			changed = true
			continue
		}
		kept = append(kept, s)
	}
	if changed {
		l.saveExcluded(ctx, kept)
	}
}

func (l *Lists) IsExcluded(ctx context.Context, code string) bool {
	for _, s := range l.Excluded(ctx) {
		if s.Code == code {
			return true
		}
	}
	return false
}

// ExcludeReason 剔除原因，未剔除返回空串。
func (l *Lists) ExcludeReason(ctx context.Context, code string) string {
	for _, s := range l.Excluded(ctx) {
		if s.Code == code {
			return s.Reason
		}
	}
	return ""
}

// ExcludedCodes 剔除代码快照，供单轮筛选使用。
func (l *Lists) ExcludedCodes(ctx context.Context) map[string]bool {
	set := map[string]bool{}
	for _, s := range l.Excluded(ctx) {
		set[s.Code] = true
	}
	return set
}
