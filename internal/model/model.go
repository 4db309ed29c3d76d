// Package model 定义规范化行情、筛选条件、自选分组与剔除名单等数据结构。
package model

import "math"

// Quote 单只股票的规范化快照。数值字段未知时为 0，名称未知为 "--"。
// ChangePercent 与 TurnoverRate 恒为百分比形式（13.96 表示 13.96%）。
type Quote struct {
	Code                   string  `json:"code"` // 规范化代码，带交易所前缀，如 sh600519
	Name                   string  `json:"name"`
	Price                  float64 `json:"price"`
	Change                 float64 `json:"change"`
	ChangePercent          float64 `json:"changePercent"`
	Volume                 float64 `json:"volume"`
	Amount                 float64 `json:"amount"`
	High                   float64 `json:"high"`
	Low                    float64 `json:"low"`
	Open                   float64 `json:"open"`
	PrevClose              float64 `json:"prevClose"`
	CirculatingMarketValue float64 `json:"circulatingMarketValue"` // 流通市值(元)
	TotalMarketValue       float64 `json:"totalMarketValue"`       // 总市值(元)
	VolumeRatio            float64 `json:"volumeRatio"`
	TurnoverRate           float64 `json:"turnoverRate"` // 换手率(%)
	MinuteStrength         float64 `json:"minuteStrength"`
	PE                     float64 `json:"pe"`
	PB                     float64 `json:"pb"`
}

// SortKey 排序/榜单指标。
type SortKey string

const (
	SortByChangePercent          SortKey = "changePercent"
	SortByPrice                  SortKey = "price"
	SortByCirculatingMarketValue SortKey = "circulatingMarketValue"
	SortByVolumeRatio            SortKey = "volumeRatio"
	SortByTurnoverRate           SortKey = "turnoverRate"
	SortByVolume                 SortKey = "volume" // 仅榜单使用
	SortByAmount                 SortKey = "amount" // 仅榜单使用
)

// SortOrder 排序方向。
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterSpec 用户筛选条件：各指标独立上下界 + 两个剔除开关 + 排序。
// 每次编辑整体替换，本身无状态。流通市值上下界单位为亿元，比较前 ×1e8。
type FilterSpec struct {
	MinChangePercent          float64
	MaxChangePercent          float64
	MinPrice                  float64
	MaxPrice                  float64
	MinCirculatingMarketValue float64 // 亿元
	MaxCirculatingMarketValue float64 // 亿元
	MinVolumeRatio            float64
	MaxVolumeRatio            float64
	MinTurnoverRate           float64
	MaxTurnoverRate           float64
	MinMinuteStrength         float64
	MaxMinuteStrength         float64
	FilterST                  bool // true 时剔除 ST/*ST
	FilterChiNext             bool // true 时剔除 688 开头板块
	SortBy                    SortKey
	SortOrder                 SortOrder
}

// DefaultFilterSpec 默认条件：全部区间放开，按涨跌幅降序。
func DefaultFilterSpec() FilterSpec {
	return FilterSpec{
		MinChangePercent:          math.Inf(-1),
		MaxChangePercent:          math.Inf(1),
		MinPrice:                  0,
		MaxPrice:                  math.Inf(1),
		MinCirculatingMarketValue: 0,
		MaxCirculatingMarketValue: math.Inf(1),
		MinVolumeRatio:            0,
		MaxVolumeRatio:            math.Inf(1),
		MinTurnoverRate:           0,
		MaxTurnoverRate:           math.Inf(1),
		MinMinuteStrength:         math.Inf(-1),
		MaxMinuteStrength:         math.Inf(1),
		SortBy:                    SortByChangePercent,
		SortOrder:                 SortDesc,
	}
}

// ExcludedStock 剔除名单单条，code 唯一。
type ExcludedStock struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Reason     string `json:"reason"`
	ExcludedAt int64  `json:"excludedAt"` // 毫秒时间戳
}

// WatchlistGroup 自选分组；同一代码可出现在多个分组。
type WatchlistGroup struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Codes []string `json:"codes"`
}

// Watchlist 自选股：初始化后至少含一个分组。
type Watchlist struct {
	Groups []WatchlistGroup `json:"groups"`
}

// KLine 单日 K 线。
type KLine struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume int64   `json:"volume"`
	Amount float64 `json:"amount"`
}

// MinuteBar 分时单条。
type MinuteBar struct {
	Time     string  `json:"time"`
	Price    float64 `json:"price"`
	AvgPrice float64 `json:"avg"`
	Volume   int64   `json:"volume"`
}

// SearchResult 关键词搜索候选。
type SearchResult struct {
	Code string `json:"code"` // 规范化代码
	Name string `json:"name"`
}

// Industry 行业板块概览。
type Industry struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
}

// Detail 详情视图：快照 + 日 K 与均线。
type Detail struct {
	Quote  Quote
	MA5    float64
	MA10   float64
	MA20   float64
	MA60   float64
	Klines []KLine
}
