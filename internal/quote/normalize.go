// Package quote 将上游任意形态的原始行情记录规范化为 model.Quote。
// 不同上游接口对同一字段命名不一、单位不一，别名表与换手率规范化集中在此维护。
package quote

import (
	"math"

	"github.com/tidwall/gjson"
	"stockscreen/internal/model"
)

const missingName = "--"

// 各字段别名按优先级排列，取第一个非零值。来源：列表接口、批量快照接口、
// 详情接口各自的命名约定。
var (
	aliasCode      = []string{"code"}
	aliasName      = []string{"name"}
	aliasPrice     = []string{"price", "current", "now"}
	aliasChange    = []string{"change", "changeAmount"}
	aliasChangePct = []string{"changePercent", "changePct"}
	aliasOpen      = []string{"open", "todayOpen", "openPrice"}
	aliasPrevClose = []string{"prevClose", "yesterdayClose", "preClose", "lastClose"}
	aliasHigh      = []string{"high", "todayHigh", "highPrice"}
	aliasLow       = []string{"low", "todayLow", "lowPrice"}
	aliasVolume    = []string{"volume", "turnoverVolume"}
	aliasAmount    = []string{"amount", "turnoverAmount", "totalAmount"}
	aliasTurnover  = []string{"turnoverRate", "turnover", "turnoverRatio"}
	aliasVolRatio  = []string{"volumeRatio", "volRatio", "volumeRate"}
	aliasPE        = []string{"pe", "peRatio", "priceEarningRatio"}
	aliasPB        = []string{"pb", "pbRatio", "priceBookRatio"}
	aliasTotalMV   = []string{"totalMarketValue", "totalValue", "marketValue", "totalMarketCap", "mktValue", "marketCap", "totalCap"}
	aliasCircMV    = []string{"circulatingMarketValue", "circulatingValue", "floatMarketValue", "floatValue", "circulatingMarketCap", "floatCap", "circulatingCap"}
)

// Normalize 对任意输入整体有效：字段缺失取 0 / "--"，不抛错。
func Normalize(raw gjson.Result) model.Quote {
	q := model.Quote{
		Code:                   pickString(raw, "", aliasCode),
		Name:                   pickString(raw, missingName, aliasName),
		Price:                  pickNumber(raw, aliasPrice),
		Change:                 pickNumber(raw, aliasChange),
		ChangePercent:          pickNumber(raw, aliasChangePct),
		Volume:                 pickNumber(raw, aliasVolume),
		Amount:                 pickNumber(raw, aliasAmount),
		High:                   pickNumber(raw, aliasHigh),
		Low:                    pickNumber(raw, aliasLow),
		Open:                   pickNumber(raw, aliasOpen),
		PrevClose:              pickNumber(raw, aliasPrevClose),
		CirculatingMarketValue: pickNumber(raw, aliasCircMV),
		TotalMarketValue:       pickNumber(raw, aliasTotalMV),
		VolumeRatio:            pickNumber(raw, aliasVolRatio),
		TurnoverRate:           CanonTurnoverRate(pickNumber(raw, aliasTurnover)),
		PE:                     pickNumber(raw, aliasPE),
		PB:                     pickNumber(raw, aliasPB),
	}
	q.MinuteStrength = MinuteStrength(q.Price, q.PrevClose)
	return q
}

// NormalizeBytes 解析 JSON 字节后规范化；非法 JSON 得到全默认值的 Quote。
func NormalizeBytes(b []byte) model.Quote {
	return Normalize(gjson.ParseBytes(b))
}

// CanonTurnoverRate 换手率统一为百分比：上游部分接口返回小数(0.1396)，
// 部分返回百分比(13.96)，<1 视为小数乘 100。筛选与排序处需再次调用，
// 原始值可能未经规范化进入引擎。
func CanonTurnoverRate(v float64) float64 {
	if v < 1 {
		return v * 100
	}
	return v
}

// MinuteStrength 分时强度：现价相对昨收的涨幅(%)，任一为 0 时取 0。
func MinuteStrength(price, prevClose float64) float64 {
	if price == 0 || prevClose == 0 {
		return 0
	}
	return (price - prevClose) / prevClose * 100
}

func pickNumber(raw gjson.Result, aliases []string) float64 {
	for _, k := range aliases {
		v := raw.Get(k)
		if !v.Exists() {
			continue
		}
		f := v.Float()
		if f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}

func pickString(raw gjson.Result, def string, aliases []string) string {
	for _, k := range aliases {
		if v := raw.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return def
}
