// Package decorators 数据源装饰器
package decorators

import (
	"context"
	"time"

	"candlehist/pkg/logger"
	"candlehist/pkg/provider/core"
	"candlehist/pkg/series"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Name        string        `mapstructure:"name"`          // 熔断器名称
	MaxRequests uint32        `mapstructure:"max_requests"`  // 半开状态下的最大请求数
	Interval    time.Duration `mapstructure:"interval"`      // 统计窗口时间
	Timeout     time.Duration `mapstructure:"timeout"`       // 熔断器打开后的超时时间
	ReadyToTrip uint32        `mapstructure:"ready_to_trip"` // 触发熔断的连续失败次数
}

// DefaultCircuitBreakerConfig 默认熔断器配置
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        "HistoricalProvider",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: 5,
	}
}

// CircuitBreakerProvider 带熔断的数据源装饰器
// 只包住 Download 的传输路径；ToCanonical 是纯解析，直接透传
type CircuitBreakerProvider struct {
	inner core.HistoricalProvider
	cb    *gobreaker.CircuitBreaker
	log   *logrus.Entry
}

// NewCircuitBreakerProvider 创建熔断装饰器
func NewCircuitBreakerProvider(inner core.HistoricalProvider, config CircuitBreakerConfig) *CircuitBreakerProvider {
	log := logger.WithComponent("CircuitBreaker")

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ReadyToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s state changed: %v -> %v", name, from, to)
		},
	}

	return &CircuitBreakerProvider{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
		log:   log,
	}
}

// Name 返回被装饰数据源的名称
func (p *CircuitBreakerProvider) Name() string {
	return p.inner.Name()
}

// Download 经熔断器下载原始负载
func (p *CircuitBreakerProvider) Download(ctx context.Context, symbol string, start, end time.Time) ([]byte, error) {
	result, err := p.cb.Execute(func() (interface{}, error) {
		return p.inner.Download(ctx, symbol, start, end)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// ToCanonical 透传给被装饰数据源
func (p *CircuitBreakerProvider) ToCanonical(raw []byte) (series.Series, error) {
	return p.inner.ToCanonical(raw)
}
