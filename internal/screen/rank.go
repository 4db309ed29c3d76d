package screen

import "stockscreen/internal/model"

// DefaultRankSize 各榜单取前 20。
const DefaultRankSize = 20

// Rank 单指标榜单：复制后按指标排序并截断。不查剔除名单，
// 输入通常是已筛选过的集合。
func Rank(quotes []model.Quote, metric model.SortKey, order model.SortOrder, limit int) []model.Quote {
	out := append([]model.Quote(nil), quotes...)
	sortQuotes(out, metric, order)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TopGainers 涨幅榜：仅取上涨的，降序前 n。
func TopGainers(quotes []model.Quote, n int) []model.Quote {
	up := make([]model.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.ChangePercent > 0 {
			up = append(up, q)
		}
	}
	return Rank(up, model.SortByChangePercent, model.SortDesc, n)
}

// TopLosers 跌幅榜：仅取下跌的，升序前 n。
func TopLosers(quotes []model.Quote, n int) []model.Quote {
	down := make([]model.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.ChangePercent < 0 {
			down = append(down, q)
		}
	}
	return Rank(down, model.SortByChangePercent, model.SortAsc, n)
}

// TopByVolume 成交量榜。
func TopByVolume(quotes []model.Quote, n int) []model.Quote {
	return Rank(quotes, model.SortByVolume, model.SortDesc, n)
}

// TopByAmount 成交额榜。
func TopByAmount(quotes []model.Quote, n int) []model.Quote {
	return Rank(quotes, model.SortByAmount, model.SortDesc, n)
}
