// Package screen 对规范化行情执行多条件筛选与稳定排序，并提供固定榜单视图。
// 条件为独立谓词的合取，任一不通过即剔除；所有谓词均为纯区间/布尔判断。
package screen

import (
	"math"
	"sort"
	"strings"

	"stockscreen/internal/market"
	"stockscreen/internal/model"
	"stockscreen/internal/quote"
)

// 亿元 → 元
const hundredMillion = 1e8

// ST 标记与被过滤板块号段
const (
	stMarker            = "ST"
	starSTMarker        = "*ST"
	filteredBoardPrefix = "688"
)

// Criterion 单条条件：入参为候选 Quote，返回是否通过。
type Criterion func(*model.Quote) bool

func And(cs ...Criterion) Criterion {
	return func(q *model.Quote) bool {
		if q == nil {
			return false
		}
		for _, c := range cs {
			if c == nil {
				continue
			}
			if !c(q) {
				return false
			}
		}
		return true
	}
}

func Or(cs ...Criterion) Criterion {
	return func(q *model.Quote) bool {
		if q == nil {
			return false
		}
		for _, c := range cs {
			if c == nil {
				continue
			}
			if c(q) {
				return true
			}
		}
		return false
	}
}

// NotExcluded 剔除名单优先于其余一切条件。
func NotExcluded(excluded map[string]bool) Criterion {
	return func(q *model.Quote) bool { return !excluded[q.Code] }
}

func ChangePercentRange(min, max float64) Criterion {
	return func(q *model.Quote) bool { return q.ChangePercent >= min && q.ChangePercent <= max }
}

func PriceRange(min, max float64) Criterion {
	return func(q *model.Quote) bool { return q.Price >= min && q.Price <= max }
}

// CirculatingValueRange 上下界单位亿元，比较前 ×1e8；未设上界(+Inf)保持 +Inf，
// 不做乘法以免变成有限值。
func CirculatingValueRange(minYi, maxYi float64) Criterion {
	min := minYi * hundredMillion
	max := maxYi
	if !math.IsInf(maxYi, 1) {
		max = maxYi * hundredMillion
	}
	return func(q *model.Quote) bool {
		v := q.CirculatingMarketValue
		return v >= min && v <= max
	}
}

func VolumeRatioRange(min, max float64) Criterion {
	return func(q *model.Quote) bool { return q.VolumeRatio >= min && q.VolumeRatio <= max }
}

// TurnoverRateRange 比较前重新规范化换手率，原始值可能未经入库处理。
func TurnoverRateRange(min, max float64) Criterion {
	return func(q *model.Quote) bool {
		v := quote.CanonTurnoverRate(q.TurnoverRate)
		return v >= min && v <= max
	}
}

func MinuteStrengthRange(min, max float64) Criterion {
	return func(q *model.Quote) bool { return q.MinuteStrength >= min && q.MinuteStrength <= max }
}

// ExcludeST 名称含 ST/*ST 标记的不通过。
func ExcludeST(q *model.Quote) bool {
	return !strings.Contains(q.Name, stMarker) && !strings.Contains(q.Name, starSTMarker)
}

// ExcludeFilteredBoard 纯代码以 688 开头的板块不通过。
func ExcludeFilteredBoard(q *model.Quote) bool {
	return !strings.HasPrefix(market.BareCode(q.Code), filteredBoardPrefix)
}

// criteria 按条件顺序组装谓词：剔除名单、六个区间、两个开关。
func criteria(spec model.FilterSpec, excluded map[string]bool) Criterion {
	cs := []Criterion{
		NotExcluded(excluded),
		ChangePercentRange(spec.MinChangePercent, spec.MaxChangePercent),
		PriceRange(spec.MinPrice, spec.MaxPrice),
		CirculatingValueRange(spec.MinCirculatingMarketValue, spec.MaxCirculatingMarketValue),
		VolumeRatioRange(spec.MinVolumeRatio, spec.MaxVolumeRatio),
		TurnoverRateRange(spec.MinTurnoverRate, spec.MaxTurnoverRate),
		MinuteStrengthRange(spec.MinMinuteStrength, spec.MaxMinuteStrength),
	}
	if spec.FilterST {
		cs = append(cs, ExcludeST)
	}
	if spec.FilterChiNext {
		cs = append(cs, ExcludeFilteredBoard)
	}
	return And(cs...)
}

// Screen 筛选 + 稳定排序。excluded 为本轮调用前的剔除名单快照，过程中视为不可变。
// 对任意输入不抛错，最坏结果是空序列。
func Screen(quotes []model.Quote, spec model.FilterSpec, excluded map[string]bool) []model.Quote {
	pass := criteria(spec, excluded)
	out := make([]model.Quote, 0, len(quotes))
	for i := range quotes {
		if pass(&quotes[i]) {
			out = append(out, quotes[i])
		}
	}
	sortQuotes(out, spec.SortBy, spec.SortOrder)
	return out
}

// sortQuotes 稳定排序：相等键保持输入相对顺序，分页可复现。
func sortQuotes(quotes []model.Quote, key model.SortKey, order model.SortOrder) {
	desc := order != model.SortAsc
	sort.SliceStable(quotes, func(i, j int) bool {
		a, b := sortValue(&quotes[i], key), sortValue(&quotes[j], key)
		if desc {
			return a > b
		}
		return a < b
	})
}

// sortValue 取排序键值，换手率排序时同样重新规范化。未知键回落到涨跌幅。
func sortValue(q *model.Quote, key model.SortKey) float64 {
	switch key {
	case model.SortByPrice:
		return q.Price
	case model.SortByCirculatingMarketValue:
		return q.CirculatingMarketValue
	case model.SortByVolumeRatio:
		return q.VolumeRatio
	case model.SortByTurnoverRate:
		return quote.CanonTurnoverRate(q.TurnoverRate)
	case model.SortByVolume:
		return q.Volume
	case model.SortByAmount:
		return q.Amount
	default:
		return q.ChangePercent
	}
}
