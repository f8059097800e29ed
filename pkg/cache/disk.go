package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// DiskCacheConfig 磁盘缓存配置
type DiskCacheConfig struct {
	BaseDir    string `mapstructure:"base_dir"`    // 缓存文件基础目录
	FilePrefix string `mapstructure:"file_prefix"` // 缓存子目录名
}

// DiskCache 磁盘缓存实现：一个键一个文件
// 文件不加锁，同键并发写以后写者为准；面向单用户离线批处理足够
type DiskCache struct {
	cacheDir string
	hits     atomic.Int64
	misses   atomic.Int64
}

// NewDiskCache 创建磁盘缓存
func NewDiskCache(config DiskCacheConfig) (*DiskCache, error) {
	if config.BaseDir == "" {
		config.BaseDir = os.TempDir()
	}
	if config.FilePrefix == "" {
		config.FilePrefix = "candlehist_cache"
	}

	cacheDir := filepath.Join(config.BaseDir, config.FilePrefix)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &DiskCache{cacheDir: cacheDir}, nil
}

// Get 读取缓存文件
func (dc *DiskCache) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := os.ReadFile(dc.path(key))
	if os.IsNotExist(err) {
		dc.misses.Add(1)
		return nil, ErrCacheMiss
	}
	if err != nil {
		dc.misses.Add(1)
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	dc.hits.Add(1)
	return payload, nil
}

// Set 写入缓存文件
func (dc *DiskCache) Set(ctx context.Context, key string, payload []byte) error {
	if err := os.WriteFile(dc.path(key), payload, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// Stats 命中/未命中计数
func (dc *DiskCache) Stats() (hits, misses int64) {
	return dc.hits.Load(), dc.misses.Load()
}

func (dc *DiskCache) path(key string) string {
	return filepath.Join(dc.cacheDir, sanitizeKey(key)+".raw")
}

// sanitizeKey 缓存键转文件名
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
