package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"stockscreen/internal/market"
	"stockscreen/internal/model"
)

const maxKlineCount = 1000

// DailyKlines 前复权日 K，count 为条数（fqt=1 前复权，klt=101 日线）。
func (c *Client) DailyKlines(ctx context.Context, code string, count int) ([]model.KLine, error) {
	if code == "" || count <= 0 {
		return nil, fmt.Errorf("invalid code or count")
	}
	if count > maxKlineCount {
		count = maxKlineCount
	}
	u := fmt.Sprintf("%s?secid=%s&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56,f57&klt=101&fqt=1&lmt=%d",
		c.KLineURL, market.SecID(code), count)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	return parseKlines(body, code)
}

// parseKlines data.klines 每条为 "日期,开,收,高,低,量,额" 的逗号串。
func parseKlines(body []byte, code string) ([]model.KLine, error) {
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.Exists() || !klines.IsArray() {
		return nil, fmt.Errorf("api: no data.klines for %s", code)
	}
	arr := klines.Array()
	out := make([]model.KLine, 0, len(arr))
	for _, v := range arr {
		s := strings.TrimSpace(v.String())
		if s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		if len(parts) < 5 {
			continue
		}
		k := model.KLine{Date: parts[0]}
		k.Open, _ = strconv.ParseFloat(parts[1], 64)
		k.Close, _ = strconv.ParseFloat(parts[2], 64)
		k.High, _ = strconv.ParseFloat(parts[3], 64)
		k.Low, _ = strconv.ParseFloat(parts[4], 64)
		if len(parts) >= 6 {
			k.Volume, _ = strconv.ParseInt(parts[5], 10, 64)
		}
		if len(parts) >= 7 {
			k.Amount, _ = strconv.ParseFloat(parts[6], 64)
		}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("api: no klines for %s", code)
	}
	return out, nil
}

// MinuteKlines 当日分时（1 分钟粒度）。
func (c *Client) MinuteKlines(ctx context.Context, code string) ([]model.MinuteBar, error) {
	if code == "" {
		return nil, fmt.Errorf("invalid code")
	}
	u := fmt.Sprintf("%s?secid=%s&fields1=f1,f2,f3,f8&fields2=f51,f53,f56,f58&ndays=1&iscr=0",
		c.TrendsURL, market.SecID(code))
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	return parseTrends(body, code)
}

// parseTrends data.trends 每条为 "时间,价,量,均价" 的逗号串。
func parseTrends(body []byte, code string) ([]model.MinuteBar, error) {
	trends := gjson.GetBytes(body, "data.trends")
	if !trends.Exists() || !trends.IsArray() {
		return nil, fmt.Errorf("api: no data.trends for %s", code)
	}
	arr := trends.Array()
	out := make([]model.MinuteBar, 0, len(arr))
	for _, v := range arr {
		parts := strings.Split(strings.TrimSpace(v.String()), ",")
		if len(parts) < 2 {
			continue
		}
		b := model.MinuteBar{Time: parts[0]}
		b.Price, _ = strconv.ParseFloat(parts[1], 64)
		if len(parts) >= 3 {
			b.Volume, _ = strconv.ParseInt(parts[2], 10, 64)
		}
		if len(parts) >= 4 {
			b.AvgPrice, _ = strconv.ParseFloat(parts[3], 64)
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("api: no trends for %s", code)
	}
	return out, nil
}
