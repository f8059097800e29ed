package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// RawCache 原始负载缓存
// 按 (数据源, 标的, 起止日期) 键原样存取下载的字节；命中即信任，无新鲜度检查
type RawCache interface {
	// Get 读取缓存负载；未命中返回 ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 写入缓存负载
	Set(ctx context.Context, key string, payload []byte) error
}

// Key 构造缓存键
func Key(provider, symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s",
		provider, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
}
