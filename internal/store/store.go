// Package store 持久化自选股与剔除名单：统一的 KV 读写契约与内存 / Redis / 文件实现。
// 引擎不拥有持久化状态，每轮筛选前读取一次快照，过程中视为不可变。
package store

import (
	"context"
	"errors"
)

// ErrNotFound key 不存在。读取方据此回落默认值，不视为错误。
var ErrNotFound = errors.New("store: key not found")

// KV 持久化读写契约，注入到引擎的列表操作中，测试可用内存实现替换。
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
