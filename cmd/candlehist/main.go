package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"candlehist/pkg/cache"
	"candlehist/pkg/config"
	"candlehist/pkg/historical"
	"candlehist/pkg/logger"
	"candlehist/pkg/offline"
	"candlehist/pkg/provider"
	"candlehist/pkg/provider/core"
	"candlehist/pkg/provider/decorators"
	"candlehist/pkg/provider/etmarkets"
	"candlehist/pkg/provider/moneycontrol"
	"candlehist/pkg/provider/upstox"
	"candlehist/pkg/scheduler"
	"candlehist/pkg/series"
	"candlehist/pkg/storage"
)

var (
	configPath = flag.String("config", "", "配置文件路径")
	datasource = flag.String("datasource", "", "数据源名称 (mc, et, upstox)，覆盖配置")
	symbol     = flag.String("symbol", "BANKNIFTY", "标的名称")
	startDate  = flag.String("start", "", "起始日期 YYYY-MM-DD")
	endDate    = flag.String("end", "", "截止日期 YYYY-MM-DD")
	date       = flag.String("date", "", "只输出这一天的数据 YYYY-MM-DD")
	timeframe  = flag.Int("tf", 1, "聚合周期（分钟）")
	offlineDir = flag.String("offline-dir", "", "离线数据目录，设置后走离线数据源")
	store      = flag.Bool("store", false, "结果写入InfluxDB（按配置）")
	refresh    = flag.Bool("refresh", false, "以定时刷新模式常驻运行（按配置）")
	logLevel   = flag.String("log-level", "", "日志级别，覆盖配置")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logger.Level = *logLevel
	}
	logger.Init(logger.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format})
	log := logger.WithComponent("candlehist")

	if *offlineDir != "" {
		cfg.Offline.Dir = *offlineDir
		runOffline(cfg)
		return
	}

	if *datasource != "" {
		cfg.Provider.Name = *datasource
	}

	if *refresh {
		runRefresh(cfg)
		return
	}

	if *startDate == "" || *endDate == "" {
		fmt.Fprintln(os.Stderr, "need -start and -end for online fetch")
		os.Exit(1)
	}
	start := mustDate(*startDate)
	end := mustDate(*endDate)

	ctx := context.Background()
	svc := historical.New(buildManager(ctx, cfg), cfg.Provider.Name, serviceOptions(cfg)...)
	log.Infof("datasources available: %v", svc.ListProviders())

	var result series.Series
	if *date != "" {
		result, err = svc.DataForDate(ctx, *symbol, start, end, mustDate(*date), *timeframe)
	} else {
		result, err = svc.Data(ctx, *symbol, start, end, *timeframe)
	}
	if err != nil {
		log.Errorf("fetch failed: %v", err)
		os.Exit(1)
	}

	printSeries(result)

	if *store && cfg.Storage.Enabled {
		writer := storage.NewCandleWriter(storage.InfluxConfig{
			URL:         cfg.Storage.URL,
			Token:       cfg.Storage.Token,
			Org:         cfg.Storage.Org,
			Bucket:      cfg.Storage.Bucket,
			Measurement: cfg.Storage.Measurement,
		})
		defer writer.Close()
		if err := writer.WriteSeries(ctx, cfg.Provider.Name, *symbol, result); err != nil {
			log.Errorf("store failed: %v", err)
			os.Exit(1)
		}
		log.Infof("stored %d rows", result.Len())
	}
}

// buildManager 注册全部可用数据源
// moneycontrol 的指数代码表和 upstox 的合约表构造失败时降级：
// 前者退回写死的代码，后者跳过注册
func buildManager(ctx context.Context, cfg *config.Config) *provider.Manager {
	log := logger.WithComponent("candlehist")
	client := core.NewHTTPClient(cfg.Provider.Timeout, cfg.Provider.UserAgent)

	manager := provider.NewManager()
	register := func(p core.HistoricalProvider) {
		cbConfig := decorators.DefaultCircuitBreakerConfig()
		cbConfig.Name = p.Name()
		if err := manager.Register(decorators.NewCircuitBreakerProvider(p, cbConfig)); err != nil {
			log.Warnf("register %s failed: %v", p.Name(), err)
		}
	}

	register(etmarkets.New(client))

	codes, err := moneycontrol.LoadIndexCodes(ctx, client, "")
	if err != nil {
		log.Warnf("index code scrape failed, using hardcoded codes only: %v", err)
	}
	register(moneycontrol.New(client, codes))

	if cfg.Provider.InstrumentsDir != "" {
		instruments, err := upstox.LoadInstruments(
			filepath.Join(cfg.Provider.InstrumentsDir, "NSE.csv"),
			filepath.Join(cfg.Provider.InstrumentsDir, "BSE.csv"),
		)
		if err != nil {
			log.Warnf("instruments load failed, upstox not registered: %v", err)
		} else {
			register(upstox.New(client, instruments))
		}
	}
	return manager
}

func serviceOptions(cfg *config.Config) []historical.Option {
	log := logger.WithComponent("candlehist")
	switch cfg.Cache.Backend {
	case "disk":
		dc, err := cache.NewDiskCache(cfg.Cache.Disk)
		if err != nil {
			log.Warnf("disk cache unavailable: %v", err)
			return nil
		}
		return []historical.Option{historical.WithCache(dc)}
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.Redis)
		if err != nil {
			log.Warnf("redis cache unavailable: %v", err)
			return nil
		}
		return []historical.Option{historical.WithCache(rc)}
	}
	return nil
}

// runRefresh 常驻模式：按cron表达式刷新配置标的并写入InfluxDB
func runRefresh(cfg *config.Config) {
	log := logger.WithComponent("candlehist")

	if !cfg.Storage.Enabled {
		log.Error("refresh mode needs storage enabled in config")
		os.Exit(1)
	}

	ctx := context.Background()
	svc := historical.New(buildManager(ctx, cfg), cfg.Provider.Name, serviceOptions(cfg)...)
	writer := storage.NewCandleWriter(storage.InfluxConfig{
		URL:         cfg.Storage.URL,
		Token:       cfg.Storage.Token,
		Org:         cfg.Storage.Org,
		Bucket:      cfg.Storage.Bucket,
		Measurement: cfg.Storage.Measurement,
	})
	defer writer.Close()

	sched := scheduler.New(svc, writer, scheduler.Config{
		Cron:         cfg.Refresh.Cron,
		Symbols:      cfg.Refresh.Symbols,
		Timeframe:    cfg.Refresh.Timeframe,
		LookbackDays: cfg.Refresh.LookbackDays,
	})
	if err := sched.Start(); err != nil {
		log.Errorf("scheduler start: %v", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	sched.Stop()
}

func runOffline(cfg *config.Config) {
	log := logger.WithComponent("candlehist")

	src, err := offline.New(cfg.Offline)
	if err != nil {
		log.Errorf("offline source: %v", err)
		os.Exit(1)
	}

	if *date == "" {
		printSeries(src.CompleteData())
		return
	}

	day, err := src.DayData(*date, *timeframe)
	if errors.Is(err, series.ErrDayNotFound) {
		log.Errorf("no data for %s, available: %v", *date, src.Dates())
		os.Exit(1)
	}
	if err != nil {
		log.Errorf("day data: %v", err)
		os.Exit(1)
	}
	printSeries(day)
}

func printSeries(s series.Series) {
	for _, c := range s.Candles {
		if s.HasVolume {
			fmt.Printf("%s  O:%.2f H:%.2f L:%.2f C:%.2f V:%d\n",
				c.Timestamp.Format("2006-01-02 15:04"), c.Open, c.High, c.Low, c.Close, c.Volume)
		} else {
			fmt.Printf("%s  O:%.2f H:%.2f L:%.2f C:%.2f\n",
				c.Timestamp.Format("2006-01-02 15:04"), c.Open, c.High, c.Low, c.Close)
		}
	}
	fmt.Printf("%d rows\n", s.Len())
}

func mustDate(value string) time.Time {
	t, err := time.Parse(series.DateKey, value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad date %q, want YYYY-MM-DD\n", value)
		os.Exit(1)
	}
	return t
}
