package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"stockscreen/internal/market"
	"stockscreen/internal/model"
	"stockscreen/internal/trace"
)

// 市场筛选参数：全部 A 股 / 行业板块列表
const (
	fsAllAShares     = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23,m:0+t:81+s:2048"
	fsIndustryBoards = "m:90+t:2"
)

// 列表接口请求字段
const listFields = "f2,f3,f4,f5,f6,f8,f9,f10,f12,f14,f15,f16,f17,f18,f20,f21,f23"

// 分页与并发默认值
const (
	defaultPageSize    = 300
	defaultConcurrency = 5
	maxPageSize        = 500
)

// 列表接口 f 字段 → 字段名。与批量快照接口的命名约定不同（见 batchFieldNames），
// 两套命名都由 internal/quote 的别名表吸收。
var listFieldNames = map[string]string{
	"f12": "code",
	"f14": "name",
	"f2":  "price",
	"f3":  "changePercent",
	"f4":  "change",
	"f5":  "volume",
	"f6":  "amount",
	"f8":  "turnoverRate",
	"f9":  "pe",
	"f10": "volumeRatio",
	"f15": "high",
	"f16": "low",
	"f17": "open",
	"f18": "prevClose",
	"f20": "totalMarketValue",
	"f21": "circulatingMarketValue",
	"f23": "pb",
}

// 批量快照接口 f 字段 → 字段名（该接口文档沿用旧命名）。
var batchFieldNames = map[string]string{
	"f12": "code",
	"f14": "name",
	"f2":  "now",
	"f3":  "changePct",
	"f4":  "changeAmount",
	"f5":  "turnoverVolume",
	"f6":  "totalAmount",
	"f8":  "turnover",
	"f9":  "peRatio",
	"f10": "volRatio",
	"f15": "todayHigh",
	"f16": "todayLow",
	"f17": "todayOpen",
	"f18": "preClose",
	"f20": "marketValue",
	"f21": "floatMarketValue",
	"f23": "pbRatio",
}

// ListOptions 全市场抓取参数。OnProgress 每完成一页回调一次 (已完成条数, 总条数)。
type ListOptions struct {
	PageSize    int
	Concurrency int
	OnProgress  func(completed, total int)
}

// AllQuotes 分页抓取全市场 A 股行情。首页拿到 total 后其余页并发抓取，
// 页序与到达顺序无关，返回前按页号拼接。任一页失败整体返回错误，
// 调用方可区分“无匹配”与“加载失败”。
func (c *Client) AllQuotes(ctx context.Context, opts ListOptions) ([]gjson.Result, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	conc := opts.Concurrency
	if conc <= 0 {
		conc = defaultConcurrency
	}
	trace.Log(ctx, "api: AllQuotes start pageSize=%d concurrency=%d", pageSize, conc)

	first, total, err := c.listPage(ctx, fsAllAShares, 1, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list page 1: %w", err)
	}
	// 上游 data.total 可能缺失或为负，负值按 0 处理，只返回首页已有数据
	if total < 0 {
		trace.Log(ctx, "api: 非法 total=%d，按 0 处理", total)
		total = 0
	}
	pages := map[int][]gjson.Result{1: first}
	completed := len(first)
	if opts.OnProgress != nil {
		opts.OnProgress(completed, total)
	}
	pageCount := (total + pageSize - 1) / pageSize

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)
	for p := 2; p <= pageCount; p++ {
		p := p
		g.Go(func() error {
			items, _, err := c.listPage(gctx, fsAllAShares, p, pageSize)
			if err != nil {
				return fmt.Errorf("list page %d: %w", p, err)
			}
			mu.Lock()
			pages[p] = items
			completed += len(items)
			done := completed
			mu.Unlock()
			if opts.OnProgress != nil {
				opts.OnProgress(done, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	nums := make([]int, 0, len(pages))
	for p := range pages {
		nums = append(nums, p)
	}
	sort.Ints(nums)
	out := make([]gjson.Result, 0, total)
	for _, p := range nums {
		out = append(out, pages[p]...)
	}
	trace.Log(ctx, "api: AllQuotes done len=%d total=%d", len(out), total)
	return out, nil
}

// listPage 抓取列表接口单页并重命名字段为原始记录。
func (c *Client) listPage(ctx context.Context, fs string, page, pageSize int) ([]gjson.Result, int, error) {
	u := fmt.Sprintf("%s?pn=%d&pz=%d&po=1&fid=f3&fs=%s&fields=%s",
		c.ListURL, page, pageSize, url.QueryEscape(fs), listFields)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, 0, err
	}
	total := int(gjson.GetBytes(body, "data.total").Int())
	diff := gjson.GetBytes(body, "data.diff")
	if !diff.Exists() {
		trace.Log(ctx, "api: data.diff 缺失 page=%d total=%d", page, total)
		return nil, total, nil
	}
	items := remapRecords(diff, listFieldNames)
	return items, total, nil
}

// QuotesByCode 批量快照。代码先规范化再转 secid；返回原始记录，
// 字段命名按批量接口约定。
func (c *Client) QuotesByCode(ctx context.Context, codes []string) ([]gjson.Result, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(codes))
	for _, code := range codes {
		ids = append(ids, market.SecID(code))
	}
	u := fmt.Sprintf("%s?secids=%s&fields=%s", c.BatchURL, strings.Join(ids, ","), listFields)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	diff := gjson.GetBytes(body, "data.diff")
	if !diff.Exists() {
		return nil, fmt.Errorf("api: no data.diff for %d codes", len(codes))
	}
	return remapRecords(diff, batchFieldNames), nil
}

// Search 关键词搜索，返回规范化代码候选。
func (c *Client) Search(ctx context.Context, keyword string) ([]model.SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}
	u := fmt.Sprintf("%s?input=%s&type=14&count=20", c.SuggestURL, url.QueryEscape(keyword))
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	rows := gjson.GetBytes(body, "QuotationCodeTable.Data")
	var out []model.SearchResult
	rows.ForEach(func(_, row gjson.Result) bool {
		code := strings.TrimSpace(row.Get("Code").String())
		name := strings.TrimSpace(row.Get("Name").String())
		if code == "" {
			return true
		}
		out = append(out, model.SearchResult{Code: market.Canonicalize(code), Name: name})
		return true
	})
	return out, nil
}

// Industries 行业板块列表（单页容纳全部板块）。
func (c *Client) Industries(ctx context.Context) ([]model.Industry, error) {
	items, _, err := c.listPage(ctx, fsIndustryBoards, 1, maxPageSize)
	if err != nil {
		return nil, err
	}
	out := make([]model.Industry, 0, len(items))
	for _, it := range items {
		code := it.Get("code").String()
		if code == "" {
			continue
		}
		out = append(out, model.Industry{
			Code:          code,
			Name:          it.Get("name").String(),
			Price:         it.Get("price").Float(),
			ChangePercent: it.Get("changePercent").Float(),
		})
	}
	return out, nil
}

// IndustryConstituents 板块成份股原始记录，boardCode 形如 BK0475。
func (c *Client) IndustryConstituents(ctx context.Context, boardCode string) ([]gjson.Result, error) {
	var out []gjson.Result
	page := 1
	for {
		items, total, err := c.listPage(ctx, "b:"+boardCode, page, maxPageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(items) == 0 || len(out) >= total || len(items) < maxPageSize {
			break
		}
		page++
	}
	return out, nil
}

// remapRecords 将 data.diff（数组或 "0","1",... 对象两种形态）逐条重命名为
// 具名字段的原始记录。不认识的 f 字段原样保留。
func remapRecords(diff gjson.Result, names map[string]string) []gjson.Result {
	var out []gjson.Result
	diff.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		m := make(map[string]interface{})
		item.ForEach(func(k, v gjson.Result) bool {
			name, ok := names[k.String()]
			if !ok {
				name = k.String()
			}
			m[name] = v.Value()
			return true
		})
		if len(m) == 0 {
			return true
		}
		b, err := json.Marshal(m)
		if err != nil {
			return true
		}
		out = append(out, gjson.ParseBytes(b))
		return true
	})
	return out
}
