// Package api 封装上游行情接口：全市场列表、批量快照、搜索、板块与 K 线，
// 含请求节流、重试与 trace 日志。返回原始记录（gjson），不假定固定 schema，
// 由 internal/quote 统一规范化。
package api

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"stockscreen/internal/trace"
)

// 上游接口地址（测试可替换）
const (
	defaultListURL    = "https://82.push2.eastmoney.com/api/qt/clist/get"
	defaultBatchURL   = "https://push2.eastmoney.com/api/qt/ulist.np/get"
	defaultKLineURL   = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	defaultTrendsURL  = "https://push2his.eastmoney.com/api/qt/stock/trends2/get"
	defaultSuggestURL = "https://searchapi.eastmoney.com/api/suggest/get"
)

// 请求超时与重试
const (
	defaultHTTPTimeout = 5 * time.Second
	maxRetries         = 3
	retryDelay         = 500 * time.Millisecond
	retryDelay429      = 5 * time.Second
	httpStatusTooMany  = 429
)

// 防封：请求间隔、抖动、并发上限
const (
	maxRespLogLen        = 1200
	defaultRequestGap    = 200 * time.Millisecond
	defaultRequestJitter = 150
	defaultMaxConcurrent = 4
	maxConcurrentCap     = 20
)

// 请求头（模拟浏览器）
const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	referer        = "https://quote.eastmoney.com/"
	acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
)

// Options 客户端节流参数，零值用默认，负值表示关闭（测试用）。
type Options struct {
	Timeout       time.Duration
	RequestGap    time.Duration
	RequestJitter int // 毫秒
	MaxConcurrent int
}

type Client struct {
	HTTPClient *http.Client

	ListURL    string
	BatchURL   string
	KLineURL   string
	TrendsURL  string
	SuggestURL string

	gap       time.Duration
	jitter    int
	sem       chan struct{}
	lastReqMu sync.Mutex
	lastReq   time.Time
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	gap := opts.RequestGap
	if gap == 0 {
		gap = defaultRequestGap
	} else if gap < 0 {
		gap = 0
	}
	jitter := opts.RequestJitter
	if jitter == 0 {
		jitter = defaultRequestJitter
	} else if jitter < 0 {
		jitter = 0
	}
	n := opts.MaxConcurrent
	if n <= 0 {
		n = defaultMaxConcurrent
	}
	if n > maxConcurrentCap {
		n = maxConcurrentCap
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		ListURL:    defaultListURL,
		BatchURL:   defaultBatchURL,
		KLineURL:   defaultKLineURL,
		TrendsURL:  defaultTrendsURL,
		SuggestURL: defaultSuggestURL,
		gap:        gap,
		jitter:     jitter,
		sem:        make(chan struct{}, n),
	}
}

func (c *Client) paceRequest(ctx context.Context) {
	if c.gap <= 0 && c.jitter <= 0 {
		return
	}
	c.lastReqMu.Lock()
	elapsed := time.Since(c.lastReq)
	c.lastReqMu.Unlock()
	d := c.gap - elapsed
	if c.jitter > 0 {
		d += time.Duration(rand.Intn(c.jitter+1)) * time.Millisecond
	}
	if d > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}
	}
	c.lastReqMu.Lock()
	c.lastReq = time.Now()
	c.lastReqMu.Unlock()
}

// get 带节流、并发上限与重试的 GET，返回完整响应体。
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("api client is nil")
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	var lastErr error
	var lastStatus int
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryDelay
			if lastStatus == httpStatusTooMany {
				backoff = retryDelay429
				trace.Log(ctx, "api: 429 限流，等待 %s 后重试", backoff)
			} else {
				trace.Log(ctx, "api: retry %d/%d %s", attempt, maxRetries, url)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		c.paceRequest(ctx)
		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		body, status, err := c.doOnce(ctx, client, url)
		<-c.sem
		if err != nil {
			lastErr = err
			lastStatus = status
			continue
		}
		return body, nil
	}
	trace.Log(ctx, "api: get fail url=%s err=%v", url, lastErr)
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, client *http.Client, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", acceptLanguage)
	trace.Log(ctx, "api: req GET %s", url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	trace.Log(ctx, "api: resp status=%d len=%d body=%s", resp.StatusCode, len(body), truncateForLog(body))
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("http %d", resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

func truncateForLog(b []byte) string {
	s := string(b)
	if len(b) > maxRespLogLen {
		s = s[:maxRespLogLen] + "..."
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
}
