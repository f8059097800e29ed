// Package historical 历史数据查询门面
// 数据源名是构造时传入的显式状态，不设进程级全局
package historical

import (
	"context"
	"time"

	"candlehist/pkg/cache"
	"candlehist/pkg/logger"
	"candlehist/pkg/provider"
	"candlehist/pkg/provider/core"
	"candlehist/pkg/series"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service 历史数据查询服务
type Service struct {
	manager      *provider.Manager
	providerName string
	rawCache     cache.RawCache
	log          *logrus.Entry
}

// Option Service的可选配置
type Option func(*Service)

// WithCache 启用原始负载缓存
func WithCache(c cache.RawCache) Option {
	return func(s *Service) {
		s.rawCache = c
	}
}

// New 创建查询服务
// providerName 的合法性在第一次取数时校验，未注册的名字届时返回
// ErrDatasourceNotAvailable
func New(manager *provider.Manager, providerName string, opts ...Option) *Service {
	s := &Service{
		manager:      manager,
		providerName: providerName,
		log:          logger.WithComponent("HistoricalService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProviderName 当前使用的数据源名称
func (s *Service) ProviderName() string {
	return s.providerName
}

// ListProviders 所有可用的数据源名称
func (s *Service) ListProviders() []string {
	return s.manager.List()
}

// Data 取 [start, end] 区间的K线并聚合到 tf 分钟
// countback 取数会多取，规范化后裁剪到区间内；end 按含端点处理，截止点放宽一天
func (s *Service) Data(ctx context.Context, symbol string, start, end time.Time, tf int) (series.Series, error) {
	p, err := s.manager.Get(s.providerName)
	if err != nil {
		return series.Series{}, err
	}

	fetchID := uuid.NewString()[:8]
	log := logger.WithFetchID("HistoricalService", fetchID)
	log.Infof("fetching %s %s..%s tf=%d via %s",
		symbol, start.Format(series.DateKey), end.Format(series.DateKey), tf, p.Name())

	raw, err := core.Fetch(ctx, p, s.rawCache, symbol, start, end)
	if err != nil {
		return series.Series{}, err
	}

	canonical, err := p.ToCanonical(raw)
	if err != nil {
		return series.Series{}, err
	}

	lo := midnight(start)
	hi := midnight(end).Add(24 * time.Hour)
	trimmed := canonical.TrimBefore(lo).TrimAfter(hi)
	log.Debugf("canonical series: %d rows after trim", trimmed.Len())

	return series.Resample(trimmed, tf)
}

// DataForDate 取区间数据后按日拆分，返回指定日期的单日表
// 区间里没有该日期时返回 ErrDayNotFound
func (s *Service) DataForDate(ctx context.Context, symbol string, start, end, date time.Time, tf int) (series.Series, error) {
	full, err := s.Data(ctx, symbol, start, end, tf)
	if err != nil {
		return series.Series{}, err
	}
	return series.Day(series.PartitionByDay(full), date)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
