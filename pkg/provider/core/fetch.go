package core

import (
	"context"
	"errors"
	"time"

	"candlehist/pkg/cache"
	"candlehist/pkg/logger"
)

// Fetch 先查缓存、未命中再下载并回写
// 命中的负载原样信任；回写失败只记日志，不影响本次取数
func Fetch(ctx context.Context, p HistoricalProvider, c cache.RawCache, symbol string, start, end time.Time) ([]byte, error) {
	log := logger.WithComponent("Fetch")

	if c == nil {
		return p.Download(ctx, symbol, start, end)
	}

	key := cache.Key(p.Name(), symbol, start, end)
	if payload, err := c.Get(ctx, key); err == nil {
		log.Debugf("cache hit: %s", key)
		return payload, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warnf("cache read failed for %s: %v", key, err)
	}

	payload, err := p.Download(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, key, payload); err != nil {
		log.Warnf("cache write failed for %s: %v", key, err)
	}
	return payload, nil
}
