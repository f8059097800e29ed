package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCacheConfig Redis缓存配置
type RedisCacheConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"` // 0 表示永不过期
}

// RedisCache Redis缓存实现，多进程共享同一份原始负载
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCache 创建Redis缓存并验证连接
func NewRedisCache(ctx context.Context, config RedisCacheConfig) (*RedisCache, error) {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "candlehist:raw:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &RedisCache{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

// Get 读取缓存负载
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := rc.client.Get(ctx, rc.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return payload, nil
}

// Set 写入缓存负载
func (rc *RedisCache) Set(ctx context.Context, key string, payload []byte) error {
	if err := rc.client.Set(ctx, rc.keyPrefix+key, payload, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close 关闭Redis连接
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
