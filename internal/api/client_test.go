package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient 关闭节流，便于测试直连 httptest。
func newTestClient() *Client {
	return NewClient(Options{RequestGap: -1, RequestJitter: -1})
}

func TestAllQuotesPagesAndRemap(t *testing.T) {
	// 3 条记录分 2 页，列表接口的 f 字段要重命名为具名字段
	pages := map[string]string{
		"1": `{"data":{"total":3,"diff":[
			{"f12":"600519","f14":"贵州茅台","f2":1700.5,"f3":2.1,"f8":0.5,"f21":2.1e12},
			{"f12":"000001","f14":"平安银行","f2":11.2,"f3":-1.3,"f8":1.2,"f21":2.2e11}
		]}}`,
		"2": `{"data":{"total":3,"diff":[
			{"f12":"300750","f14":"宁德时代","f2":180.0,"f3":4.4,"f8":2.8,"f21":7.9e11}
		]}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Query().Get("pn")]
		if !ok {
			t.Errorf("unexpected page %s", r.URL.Query().Get("pn"))
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "2", r.URL.Query().Get("pz"))
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	c := newTestClient()
	c.ListURL = srv.URL

	var progressCalls int32
	got, err := c.AllQuotes(context.Background(), ListOptions{
		PageSize: 2,
		OnProgress: func(completed, total int) {
			atomic.AddInt32(&progressCalls, 1)
			assert.Equal(t, 3, total)
		},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.EqualValues(t, 2, atomic.LoadInt32(&progressCalls))

	// 页序稳定：第 1 页在前
	assert.Equal(t, "600519", got[0].Get("code").String())
	assert.Equal(t, "贵州茅台", got[0].Get("name").String())
	assert.Equal(t, 1700.5, got[0].Get("price").Float())
	assert.Equal(t, 2.1, got[0].Get("changePercent").Float())
	assert.Equal(t, 0.5, got[0].Get("turnoverRate").Float())
	assert.Equal(t, 2.1e12, got[0].Get("circulatingMarketValue").Float())
	assert.Equal(t, "300750", got[2].Get("code").String())
}

func TestNewClientThrottleOptions(t *testing.T) {
	// 零值用默认
	c := NewClient(Options{})
	assert.Equal(t, defaultRequestGap, c.gap)
	assert.Equal(t, defaultRequestJitter, c.jitter)
	assert.Equal(t, defaultMaxConcurrent, cap(c.sem))

	// 负值关闭节流
	c = NewClient(Options{RequestGap: -1, RequestJitter: -1})
	assert.Zero(t, c.gap)
	assert.Zero(t, c.jitter)

	// 并发上限有封顶
	c = NewClient(Options{MaxConcurrent: 100})
	assert.Equal(t, maxConcurrentCap, cap(c.sem))
}

func TestAllQuotesMalformedTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"total":-5,"diff":[{"f12":"600519","f14":"贵州茅台"}]}}`)
	}))
	defer srv.Close()

	c := newTestClient()
	c.ListURL = srv.URL

	// 负的 total 不 panic，首页数据照常返回
	got, err := c.AllQuotes(context.Background(), ListOptions{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "600519", got[0].Get("code").String())
}

func TestAllQuotesPageFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pn") == "1" {
			fmt.Fprint(w, `{"data":{"total":4,"diff":[{"f12":"600519"},{"f12":"000001"}]}}`)
			return
		}
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient()
	c.ListURL = srv.URL

	_, err := c.AllQuotes(context.Background(), ListOptions{PageSize: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
	// 第 2 页重试 maxRetries 次后才放弃
	assert.EqualValues(t, maxRetries, atomic.LoadInt32(&calls))
}

func TestQuotesByCodeRemap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 代码规范化后转 secid：沪市 1.xxx，深市 0.xxx
		assert.Equal(t, "1.600519,0.000001", r.URL.Query().Get("secids"))
		fmt.Fprint(w, `{"data":{"diff":{
			"0":{"f12":"600519","f14":"贵州茅台","f2":1700.5,"f3":2.1,"f8":0.5,"f21":2.1e12},
			"1":{"f12":"000001","f14":"平安银行","f2":11.2,"f3":-1.3,"f8":1.2,"f21":2.2e11}
		}}}`)
	}))
	defer srv.Close()

	c := newTestClient()
	c.BatchURL = srv.URL

	got, err := c.QuotesByCode(context.Background(), []string{"sh600519", "000001"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// 批量接口用旧命名：now/changePct/turnover/floatMarketValue
	assert.Equal(t, 1700.5, got[0].Get("now").Float())
	assert.Equal(t, 2.1, got[0].Get("changePct").Float())
	assert.Equal(t, 0.5, got[0].Get("turnover").Float())
	assert.Equal(t, 2.1e12, got[0].Get("floatMarketValue").Float())
	assert.Equal(t, "000001", got[1].Get("code").String())
}

func TestQuotesByCodeEmpty(t *testing.T) {
	c := newTestClient()
	got, err := c.QuotesByCode(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "茅台", r.URL.Query().Get("input"))
		fmt.Fprint(w, `{"QuotationCodeTable":{"Data":[
			{"Code":"600519","Name":"贵州茅台"},
			{"Code":"","Name":"空代码跳过"},
			{"Code":"000860","Name":"顺鑫农业"}
		]}}`)
	}))
	defer srv.Close()

	c := newTestClient()
	c.SuggestURL = srv.URL

	got, err := c.Search(context.Background(), " 茅台 ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sh600519", got[0].Code)
	assert.Equal(t, "贵州茅台", got[0].Name)
	assert.Equal(t, "sz000860", got[1].Code)
}

func TestDailyKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1.600519", r.URL.Query().Get("secid"))
		assert.Equal(t, "101", r.URL.Query().Get("klt"))
		fmt.Fprint(w, `{"data":{"klines":[
			"2026-08-27,1690.0,1700.5,1705.0,1688.8,12345,2.1e9",
			"2026-08-28,1700.5,1710.0,1712.0,1699.0,23456,3.3e9",
			""
		]}}`)
	}))
	defer srv.Close()

	c := newTestClient()
	c.KLineURL = srv.URL

	got, err := c.DailyKlines(context.Background(), "600519", 80)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-08-27", got[0].Date)
	assert.Equal(t, 1690.0, got[0].Open)
	assert.Equal(t, 1700.5, got[0].Close)
	assert.Equal(t, 1705.0, got[0].High)
	assert.Equal(t, 1688.8, got[0].Low)
	assert.EqualValues(t, 12345, got[0].Volume)
	assert.Equal(t, 1710.0, got[1].Close)
}

func TestDailyKlinesInvalidInput(t *testing.T) {
	c := newTestClient()
	_, err := c.DailyKlines(context.Background(), "", 80)
	assert.Error(t, err)
	_, err = c.DailyKlines(context.Background(), "600519", 0)
	assert.Error(t, err)
}

func TestMinuteKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"trends":[
			"2026-08-28 09:30,1700.0,300,1700.0",
			"2026-08-28 09:31,1701.2,150,1700.6"
		]}}`)
	}))
	defer srv.Close()

	c := newTestClient()
	c.TrendsURL = srv.URL

	got, err := c.MinuteKlines(context.Background(), "600519")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-08-28 09:30", got[0].Time)
	assert.Equal(t, 1700.0, got[0].Price)
	assert.EqualValues(t, 300, got[0].Volume)
	assert.Equal(t, 1700.6, got[1].AvgPrice)
}

func TestGetRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := newTestClient()
	body, err := c.get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ok")
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGetSendsBrowserHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, referer, r.Header.Get("Referer"))
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := newTestClient()
	_, err := c.get(context.Background(), srv.URL)
	require.NoError(t, err)
}
