// Package scheduler 收盘后定时刷新配置标的的历史数据
package scheduler

import (
	"context"
	"time"

	"candlehist/pkg/historical"
	"candlehist/pkg/logger"
	"candlehist/pkg/series"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sink 刷新结果的去向
type Sink interface {
	WriteSeries(ctx context.Context, source, symbol string, s series.Series) error
}

// Config 刷新调度配置
type Config struct {
	Cron         string   // cron表达式（带秒），默认每个交易日收盘后
	Symbols      []string // 要刷新的标的
	Timeframe    int      // 聚合周期（分钟）
	LookbackDays int      // 每次刷新回看的天数
}

// RefreshScheduler 定时刷新调度器
type RefreshScheduler struct {
	cron    *cron.Cron
	service *historical.Service
	sink    Sink
	config  Config
	log     *logrus.Entry
}

// New 创建刷新调度器
func New(service *historical.Service, sink Sink, config Config) *RefreshScheduler {
	if config.Cron == "" {
		config.Cron = "0 0 16 * * MON-FRI"
	}
	if config.Timeframe < 1 {
		config.Timeframe = 1
	}
	if config.LookbackDays < 1 {
		config.LookbackDays = 1
	}

	return &RefreshScheduler{
		cron:    cron.New(cron.WithSeconds()),
		service: service,
		sink:    sink,
		config:  config,
		log:     logger.WithComponent("RefreshScheduler"),
	}
}

// Start 启动调度器
func (s *RefreshScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.Cron, s.RunOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("refresh scheduler started: %q, %d symbols", s.config.Cron, len(s.config.Symbols))
	return nil
}

// Stop 停止调度器并等待在跑的任务结束
func (s *RefreshScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("refresh scheduler stopped")
}

// RunOnce 刷新一轮：逐个标的取数并写入落库
// 标的之间相互独立，单个失败只记日志不中断整轮
func (s *RefreshScheduler) RunOnce() {
	runID := uuid.NewString()[:8]
	log := logger.WithFetchID("RefreshScheduler", runID)

	end := time.Now().In(series.IST)
	start := end.AddDate(0, 0, -s.config.LookbackDays)

	for _, symbol := range s.config.Symbols {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		data, err := s.service.Data(ctx, symbol, start, end, s.config.Timeframe)
		if err != nil {
			log.Errorf("refresh %s failed: %v", symbol, err)
			cancel()
			continue
		}
		if err := s.sink.WriteSeries(ctx, s.service.ProviderName(), symbol, data); err != nil {
			log.Errorf("store %s failed: %v", symbol, err)
		} else {
			log.Infof("refreshed %s: %d rows", symbol, data.Len())
		}
		cancel()
	}
}
