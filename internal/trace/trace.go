// Package trace 给一次运行(一条命令)分配 trace ID 并随 context 传递，
// 抓取、筛选、持久化各层日志统一带 TRACE=id 前缀，方便串起一次完整流程。
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
)

type ctxKey struct{}

var traceIDKey ctxKey

// WithTraceID 返回携带 trace ID 的新 context。
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// TraceID 取出 context 中的 trace ID，没有则返回空串。
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

// NewTraceID 生成 12 位十六进制随机 ID。
func NewTraceID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "000000000000"
	}
	return hex.EncodeToString(b)
}

var logMu sync.Mutex

// Log 每行日志固定以 TRACE=id 开头，没有 ID 时用 "-" 占位，保证可 grep
func Log(ctx context.Context, format string, args ...interface{}) {
	id := TraceID(ctx)
	if id == "" {
		id = "-"
	}
	msg := fmt.Sprintf(format, args...)
	logMu.Lock()
	log.Printf("TRACE=%s | %s", id, msg)
	logMu.Unlock()
}
