// Package worker 详情补全任务池：消费已筛选的行情，按代码拉取日 K、
// 计算均线后输出 Detail，供详情与自选视图使用。
package worker

import (
	"context"
	"sync"

	"stockscreen/internal/indicator"
	"stockscreen/internal/model"
	"stockscreen/internal/trace"
)

const (
	defaultConcurrency = 5
	defaultKlineCount  = 80 // 一次请求 80 天，同一 slice 滑动算 MA5~MA60
	minKlines          = 5
)

// KlineFetcher 日 K 拉取契约，测试可替换。
type KlineFetcher interface {
	DailyKlines(ctx context.Context, code string, count int) ([]model.KLine, error)
}

// Filter 对补全后的 Detail 做是否输出判断，nil 表示全部输出。
type Filter func(*model.Detail) bool

// Config 控制并发数、K 线条数与输出过滤。
type Config struct {
	Concurrency int
	KlineCount  int
	Filter      Filter
}

func DefaultConfig() Config {
	return Config{Concurrency: defaultConcurrency, KlineCount: defaultKlineCount}
}

// Pool 从 jobs 取行情，拉 K 线合并为 Detail 写入 results；jobs 关闭且
// 处理完毕后关闭 results。
type Pool struct {
	cfg  Config
	api  KlineFetcher
	jobs <-chan model.Quote
	out  chan<- *model.Detail
}

func NewPool(cfg Config, api KlineFetcher, jobs <-chan model.Quote, results chan<- *model.Detail) *Pool {
	if api == nil {
		panic("worker: kline fetcher must not be nil")
	}
	if jobs == nil || results == nil {
		panic("worker: jobs and results channels must not be nil")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.KlineCount <= 0 {
		cfg.KlineCount = defaultKlineCount
	}
	return &Pool{cfg: cfg, api: api, jobs: jobs, out: results}
}

func (p *Pool) Run(ctx context.Context) {
	trace.Log(ctx, "worker: Pool.Run start concurrency=%d", p.cfg.Concurrency)
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runWorker(ctx)
		}()
	}
	wg.Wait()
	close(p.out)
	trace.Log(ctx, "worker: Pool.Run done")
}

func (p *Pool) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-p.jobs:
			if !ok {
				return
			}
			d := p.enrich(ctx, q)
			if d == nil {
				continue
			}
			if p.cfg.Filter != nil && !p.cfg.Filter(d) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case p.out <- d:
			}
		}
	}
}

func (p *Pool) enrich(ctx context.Context, q model.Quote) *model.Detail {
	klines, err := p.api.DailyKlines(ctx, q.Code, p.cfg.KlineCount)
	if err != nil {
		trace.Log(ctx, "worker: DailyKlines code=%s err=%v", q.Code, err)
		return nil
	}
	if len(klines) < minKlines {
		trace.Log(ctx, "worker: klines<%d code=%s", minKlines, q.Code)
		return nil
	}
	return &model.Detail{
		Quote:  q,
		MA5:    indicator.MA5(klines),
		MA10:   indicator.MA10(klines),
		MA20:   indicator.MA20(klines),
		MA60:   indicator.MA60(klines),
		Klines: klines,
	}
}
