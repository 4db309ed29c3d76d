// Package indicator 基于日 K 计算均线与 MACD，供详情视图展示。
package indicator

import "stockscreen/internal/model"

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

func MA5(klines []model.KLine) float64  { return MA(klines, 5) }
func MA10(klines []model.KLine) float64 { return MA(klines, 10) }
func MA20(klines []model.KLine) float64 { return MA(klines, 20) }
func MA60(klines []model.KLine) float64 { return MA(klines, 60) }

// MA 最近 n 日收盘均价，K 线不足 n 条时为 0。
func MA(klines []model.KLine, n int) float64 {
	return MAAt(klines, n, 0)
}

// MAAt 以第 (len-offset-1) 日为末的 n 日均价，offset 0 表示最后一根 K。
func MAAt(klines []model.KLine, n, offset int) float64 {
	if n <= 0 || len(klines) < n+offset {
		return 0
	}
	start := len(klines) - n - offset
	var sum float64
	for i := start; i < start+n; i++ {
		sum += klines[i].Close
	}
	return sum / float64(n)
}

// EMA 指数均线序列，前 period-1 位无效为 0。
func EMA(data []float64, period int) []float64 {
	if period <= 0 || len(data) < period {
		return nil
	}
	out := make([]float64, len(data))
	mult := 2.0 / float64(period+1)
	var sum float64
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	out[period-1] = sum / float64(period)
	for i := period; i < len(data); i++ {
		out[i] = (data[i]-out[i-1])*mult + out[i-1]
	}
	return out
}

// MACD 当日/昨日红柱与是否刚发生金叉。
type MACD struct {
	Histogram     float64
	HistogramPrev float64
	GoldenCross   bool
}

// ComputeMACD 标准 12/26/9 MACD；K 线不足时返回零值。
func ComputeMACD(klines []model.KLine) MACD {
	n := len(klines)
	if n < macdSlow+macdSignal {
		return MACD{}
	}
	closes := make([]float64, n)
	for i := range klines {
		closes[i] = klines[i].Close
	}
	ema12 := EMA(closes, macdFast)
	ema26 := EMA(closes, macdSlow)
	dif := make([]float64, n)
	for i := macdSlow - 1; i < n; i++ {
		dif[i] = ema12[i] - ema26[i]
	}
	dea := EMA(dif[macdSlow-1:], macdSignal)

	firstValid := macdSlow - 1 + macdSignal - 1
	histAt := func(i int) float64 {
		if i < firstValid {
			return 0
		}
		return 2 * (dif[i] - dea[i-(macdSlow-1)])
	}
	last, prev := n-1, n-2

	goldenCross := false
	deaPrevIdx := prev - (macdSlow - 1)
	deaLastIdx := last - (macdSlow - 1)
	if deaPrevIdx >= 0 && deaLastIdx < len(dea) {
		if dif[last] > dea[deaLastIdx] && dif[prev] <= dea[deaPrevIdx] {
			goldenCross = true
		}
	}
	return MACD{
		Histogram:     histAt(last),
		HistogramPrev: histAt(prev),
		GoldenCross:   goldenCross,
	}
}
