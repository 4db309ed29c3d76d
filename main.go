// Package main 股票筛选器入口：全市场行情抓取 → 规范化 → 条件筛选与排序 →
// 输出与榜单，并维护自选分组与剔除名单。
// 用法:
//
//	stockscreen                   执行一轮筛选
//	stockscreen rank [gain|loss|volume|amount]
//	stockscreen search <关键词>
//	stockscreen industry [板块代码]
//	stockscreen trend <代码>
//	stockscreen watch list|quotes
//	stockscreen watch add|remove <代码> [分组ID]
//	stockscreen watch group add|rename|remove ...
//	stockscreen exclude <代码> [原因]
//	stockscreen restore <代码>
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"stockscreen/internal/api"
	"stockscreen/internal/config"
	"stockscreen/internal/indicator"
	"stockscreen/internal/mail"
	"stockscreen/internal/market"
	"stockscreen/internal/model"
	"stockscreen/internal/quote"
	"stockscreen/internal/screen"
	"stockscreen/internal/store"
	"stockscreen/internal/trace"
	"stockscreen/internal/worker"
)

// 运行与详情补全
const (
	runTimeout        = 10 * time.Minute
	detailTopN        = 10
	detailConcurrency = 5
)

var cfg = config.Load()

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	ctx = trace.WithTraceID(ctx, trace.NewTraceID())

	args := os.Args[1:]
	if len(args) == 0 {
		if err := runScreen(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "筛选失败: %v\n", err)
			os.Exit(1)
		}
		return
	}
	var err error
	switch args[0] {
	case "rank":
		err = runRank(ctx, args[1:])
	case "search":
		err = runSearch(ctx, args[1:])
	case "industry":
		err = runIndustry(ctx, args[1:])
	case "trend":
		err = runTrend(ctx, args[1:])
	case "watch":
		err = runWatch(ctx, args[1:])
	case "exclude":
		err = runExclude(ctx, args[1:])
	case "restore":
		err = runRestore(ctx, args[1:])
	default:
		err = fmt.Errorf("未知子命令 %q", args[0])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newClient() *api.Client {
	return api.NewClient(api.Options{
		RequestGap:    time.Duration(cfg.API.DelayMS) * time.Millisecond,
		RequestJitter: cfg.API.JitterMS,
		MaxConcurrent: cfg.API.MaxConcurrent,
	})
}

// newLists 持久化后端：配置了 Redis 用 Redis，否则用本地 JSON 文件。
func newLists() *store.Lists {
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return store.NewLists(store.NewRedis(client))
	}
	return store.NewLists(store.NewFile(cfg.DataFile))
}

// fetchAll 全市场抓取并规范化，代码统一补全交易所前缀。
func fetchAll(ctx context.Context) ([]model.Quote, error) {
	client := newClient()
	raw, err := client.AllQuotes(ctx, api.ListOptions{
		PageSize:    cfg.Fetch.PageSize,
		Concurrency: cfg.Fetch.Concurrency,
		OnProgress: func(completed, total int) {
			trace.Log(ctx, "main: 行情抓取进度 %d/%d", completed, total)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("行情抓取失败: %w", err)
	}
	quotes := make([]model.Quote, 0, len(raw))
	for _, r := range raw {
		q := quote.Normalize(r)
		if q.Code == "" {
			continue
		}
		q.Code = market.Canonicalize(q.Code)
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func runScreen(ctx context.Context) error {
	trace.Log(ctx, "main: start")
	quotes, err := fetchAll(ctx)
	if err != nil {
		return err
	}
	lists := newLists()
	excluded := lists.ExcludedCodes(ctx)
	spec := cfg.FilterSpec()
	result := screen.Screen(quotes, spec, excluded)
	trace.Log(ctx, "main: 全市场 %d 只 -> 入选 %d 只 (剔除名单 %d 条)",
		len(quotes), len(result), len(excluded))

	for _, q := range result {
		fmt.Fprintf(os.Stdout, "%s %s 现价=%.2f 涨跌幅=%.2f%% 换手=%.2f%% 量比=%.2f 流通市值=%.1f亿\n",
			q.Code, q.Name, q.Price, q.ChangePercent,
			quote.CanonTurnoverRate(q.TurnoverRate), q.VolumeRatio, q.CirculatingMarketValue/1e8)
	}
	printDetails(ctx, result)
	mail.MustSendReport(ctx, buildMailConfig(), result)
	trace.Log(ctx, "main: end, 共 %d 只", len(result))
	return nil
}

// printDetails 对入选前 N 只补全日 K 均线后输出。
func printDetails(ctx context.Context, result []model.Quote) {
	n := len(result)
	if n == 0 {
		return
	}
	if n > detailTopN {
		n = detailTopN
	}
	client := newClient()
	jobs := make(chan model.Quote, n)
	results := make(chan *model.Detail, n)
	wcfg := worker.DefaultConfig()
	wcfg.Concurrency = detailConcurrency
	pool := worker.NewPool(wcfg, client, jobs, results)

	done := make(chan struct{})
	go func() {
		for d := range results {
			macd := indicator.ComputeMACD(d.Klines)
			mark := ""
			if macd.GoldenCross {
				mark = " 金叉"
			}
			fmt.Fprintf(os.Stdout, "%s %s MA5=%.2f MA10=%.2f MA20=%.2f MACD=%.3f%s\n",
				d.Quote.Code, d.Quote.Name, d.MA5, d.MA10, d.MA20, macd.Histogram, mark)
		}
		close(done)
	}()
	go pool.Run(ctx)
	for i := 0; i < n; i++ {
		jobs <- result[i]
	}
	close(jobs)
	<-done
}

func runRank(ctx context.Context, args []string) error {
	board := "gain"
	if len(args) > 0 {
		board = args[0]
	}
	quotes, err := fetchAll(ctx)
	if err != nil {
		return err
	}
	var top []model.Quote
	switch board {
	case "gain":
		top = screen.TopGainers(quotes, screen.DefaultRankSize)
	case "loss":
		top = screen.TopLosers(quotes, screen.DefaultRankSize)
	case "volume":
		top = screen.TopByVolume(quotes, screen.DefaultRankSize)
	case "amount":
		top = screen.TopByAmount(quotes, screen.DefaultRankSize)
	default:
		return fmt.Errorf("未知榜单 %q (gain|loss|volume|amount)", board)
	}
	for i, q := range top {
		fmt.Fprintf(os.Stdout, "%2d %s %s 现价=%.2f 涨跌幅=%.2f%% 成交量=%.0f 成交额=%.0f\n",
			i+1, q.Code, q.Name, q.Price, q.ChangePercent, q.Volume, q.Amount)
	}
	return nil
}

func runSearch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("用法: stockscreen search <关键词>")
	}
	client := newClient()
	results, err := client.Search(ctx, args[0])
	if err != nil {
		return fmt.Errorf("搜索失败: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stdout, "无匹配")
		return nil
	}
	codes := make([]string, 0, len(results))
	for _, r := range results {
		codes = append(codes, r.Code)
	}
	raw, err := client.QuotesByCode(ctx, codes)
	if err != nil {
		return fmt.Errorf("行情抓取失败: %w", err)
	}
	for _, r := range raw {
		q := quote.Normalize(r)
		q.Code = market.Canonicalize(q.Code)
		fmt.Fprintf(os.Stdout, "%s %s 现价=%.2f 涨跌幅=%.2f%%\n", q.Code, q.Name, q.Price, q.ChangePercent)
	}
	return nil
}

// runIndustry 不带参数列出行业板块，带板块代码时对成份股执行筛选。
func runIndustry(ctx context.Context, args []string) error {
	client := newClient()
	if len(args) == 0 {
		boards, err := client.Industries(ctx)
		if err != nil {
			return fmt.Errorf("板块列表抓取失败: %w", err)
		}
		for _, b := range boards {
			fmt.Fprintf(os.Stdout, "%s %s 涨跌幅=%.2f%%\n", b.Code, b.Name, b.ChangePercent)
		}
		return nil
	}
	raw, err := client.IndustryConstituents(ctx, args[0])
	if err != nil {
		return fmt.Errorf("成份股抓取失败: %w", err)
	}
	quotes := make([]model.Quote, 0, len(raw))
	for _, r := range raw {
		q := quote.Normalize(r)
		if q.Code == "" {
			continue
		}
		q.Code = market.Canonicalize(q.Code)
		quotes = append(quotes, q)
	}
	excluded := newLists().ExcludedCodes(ctx)
	result := screen.Screen(quotes, cfg.FilterSpec(), excluded)
	for _, q := range result {
		fmt.Fprintf(os.Stdout, "%s %s 现价=%.2f 涨跌幅=%.2f%%\n", q.Code, q.Name, q.Price, q.ChangePercent)
	}
	return nil
}

// runTrend 打印当日分时与相对昨收的强度。
func runTrend(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("用法: stockscreen trend <代码>")
	}
	code := market.Canonicalize(args[0])
	client := newClient()
	bars, err := client.MinuteKlines(ctx, code)
	if err != nil {
		return fmt.Errorf("分时抓取失败: %w", err)
	}
	var prevClose float64
	if raw, err := client.QuotesByCode(ctx, []string{code}); err == nil && len(raw) > 0 {
		prevClose = quote.Normalize(raw[0]).PrevClose
	}
	for _, b := range bars {
		fmt.Fprintf(os.Stdout, "%s %.2f 均价=%.2f 强度=%.2f%%\n",
			b.Time, b.Price, b.AvgPrice, quote.MinuteStrength(b.Price, prevClose))
	}
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	lists := newLists()
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		w := lists.Watchlist(ctx)
		for _, g := range w.Groups {
			fmt.Fprintf(os.Stdout, "[%s] %s: %v\n", g.ID, g.Name, g.Codes)
		}
		return nil
	case "quotes":
		codes := lists.AllCodes(ctx)
		if len(codes) == 0 {
			fmt.Fprintln(os.Stdout, "自选股为空")
			return nil
		}
		raw, err := newClient().QuotesByCode(ctx, codes)
		if err != nil {
			return fmt.Errorf("行情抓取失败: %w", err)
		}
		for _, r := range raw {
			q := quote.Normalize(r)
			q.Code = market.Canonicalize(q.Code)
			fmt.Fprintf(os.Stdout, "%s %s 现价=%.2f 涨跌幅=%.2f%%\n", q.Code, q.Name, q.Price, q.ChangePercent)
		}
		return nil
	case "add", "remove":
		if len(args) < 2 {
			return fmt.Errorf("用法: stockscreen watch %s <代码> [分组ID]", args[0])
		}
		code := market.Canonicalize(args[1])
		groupID := ""
		if len(args) > 2 {
			groupID = args[2]
		}
		if args[0] == "add" {
			lists.AddToGroup(ctx, code, groupID)
		} else {
			lists.RemoveFromGroup(ctx, code, groupID)
		}
		return nil
	case "group":
		return runWatchGroup(ctx, lists, args[1:])
	}
	return fmt.Errorf("未知 watch 子命令 %q", args[0])
}

func runWatchGroup(ctx context.Context, lists *store.Lists, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("用法: stockscreen watch group add|rename|remove ...")
	}
	switch args[0] {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("用法: stockscreen watch group add <名称>")
		}
		id := lists.AddGroup(ctx, args[1])
		fmt.Fprintln(os.Stdout, id)
		return nil
	case "rename":
		if len(args) < 3 {
			return fmt.Errorf("用法: stockscreen watch group rename <分组ID> <新名称>")
		}
		lists.RenameGroup(ctx, args[1], args[2])
		return nil
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("用法: stockscreen watch group remove <分组ID>")
		}
		lists.RemoveGroup(ctx, args[1])
		return nil
	}
	return fmt.Errorf("未知 group 子命令 %q", args[0])
}

func runExclude(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("用法: stockscreen exclude <代码> [原因]")
	}
	code := market.Canonicalize(args[0])
	reason := ""
	if len(args) > 1 {
		reason = args[1]
	}
	name := lookupName(ctx, code)
	newLists().Exclude(ctx, code, name, reason)
	return nil
}

func runRestore(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("用法: stockscreen restore <代码>")
	}
	newLists().Restore(ctx, market.Canonicalize(args[0]))
	return nil
}

// lookupName 补全名称失败不阻塞剔除操作。
func lookupName(ctx context.Context, code string) string {
	raw, err := newClient().QuotesByCode(ctx, []string{code})
	if err != nil || len(raw) == 0 {
		trace.Log(ctx, "main: 查询名称失败 code=%s err=%v", code, err)
		return ""
	}
	return quote.Normalize(raw[0]).Name
}

func buildMailConfig() *mail.SMTPConfig {
	return &mail.SMTPConfig{
		Server:   cfg.SMTP.Server,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		To:       cfg.SMTP.To,
	}
}
