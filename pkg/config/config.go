package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"candlehist/pkg/cache"
	"candlehist/pkg/offline"

	"github.com/spf13/viper"
)

// Config 主配置结构
type Config struct {
	// 数据源配置
	Provider ProviderConfig `mapstructure:"provider"`

	// 原始负载缓存配置
	Cache CacheConfig `mapstructure:"cache"`

	// 离线文件数据源配置
	Offline offline.Config `mapstructure:"offline"`

	// InfluxDB落库配置
	Storage StorageConfig `mapstructure:"storage"`

	// 定时刷新配置
	Refresh RefreshConfig `mapstructure:"refresh"`

	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
}

// ProviderConfig 数据源配置
type ProviderConfig struct {
	Name           string        `mapstructure:"name"`            // 当前数据源 (mc, et, upstox)
	Timeout        time.Duration `mapstructure:"timeout"`         // 请求超时时间
	UserAgent      string        `mapstructure:"user_agent"`      // 用户代理
	InstrumentsDir string        `mapstructure:"instruments_dir"` // Upstox合约CSV目录
}

// CacheConfig 原始负载缓存配置
type CacheConfig struct {
	Backend string                 `mapstructure:"backend"` // none, disk, redis
	Disk    cache.DiskCacheConfig  `mapstructure:"disk"`
	Redis   cache.RedisCacheConfig `mapstructure:"redis"`
}

// StorageConfig 落库配置
type StorageConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	Org         string `mapstructure:"org"`
	Bucket      string `mapstructure:"bucket"`
	Measurement string `mapstructure:"measurement"`
}

// RefreshConfig 定时刷新配置
type RefreshConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Cron         string   `mapstructure:"cron"`          // cron表达式，默认收盘后
	Symbols      []string `mapstructure:"symbols"`       // 要刷新的标的
	Timeframe    int      `mapstructure:"timeframe"`     // 聚合周期（分钟）
	LookbackDays int      `mapstructure:"lookback_days"` // 回看天数
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:      "mc",
			Timeout:   20 * time.Second,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		},
		Cache: CacheConfig{
			Backend: "disk",
		},
		Offline: offline.Config{
			Ticker:  "BNF",
			Workers: offline.DefaultWorkers,
		},
		Storage: StorageConfig{
			Measurement: "candles",
		},
		Refresh: RefreshConfig{
			Cron:         "0 0 16 * * MON-FRI",
			Timeframe:    1,
			LookbackDays: 1,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Provider.Name == "" {
		return errors.New("provider name cannot be empty")
	}
	if c.Provider.Timeout <= 0 {
		return errors.New("provider timeout must be positive")
	}
	switch c.Cache.Backend {
	case "", "none", "disk", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Refresh.Enabled && len(c.Refresh.Symbols) == 0 {
		return errors.New("refresh enabled but no symbols configured")
	}
	if c.Refresh.Timeframe < 1 {
		c.Refresh.Timeframe = 1
	}
	return nil
}

// Load 从文件加载配置，环境变量 CANDLEHIST_* 可覆盖；path为空时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CANDLEHIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// setDefaults 把默认值逐键注册进viper
// 环境变量覆盖只对viper已知的键生效，默认值必须注册而不是留在结构体上
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("provider.name", d.Provider.Name)
	v.SetDefault("provider.timeout", d.Provider.Timeout)
	v.SetDefault("provider.user_agent", d.Provider.UserAgent)
	v.SetDefault("provider.instruments_dir", d.Provider.InstrumentsDir)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.disk.base_dir", d.Cache.Disk.BaseDir)
	v.SetDefault("cache.disk.file_prefix", d.Cache.Disk.FilePrefix)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.redis.key_prefix", d.Cache.Redis.KeyPrefix)
	v.SetDefault("cache.redis.ttl", d.Cache.Redis.TTL)

	v.SetDefault("offline.dir", d.Offline.Dir)
	v.SetDefault("offline.ticker", d.Offline.Ticker)
	v.SetDefault("offline.workers", d.Offline.Workers)

	v.SetDefault("storage.enabled", d.Storage.Enabled)
	v.SetDefault("storage.url", d.Storage.URL)
	v.SetDefault("storage.token", d.Storage.Token)
	v.SetDefault("storage.org", d.Storage.Org)
	v.SetDefault("storage.bucket", d.Storage.Bucket)
	v.SetDefault("storage.measurement", d.Storage.Measurement)

	v.SetDefault("refresh.enabled", d.Refresh.Enabled)
	v.SetDefault("refresh.cron", d.Refresh.Cron)
	v.SetDefault("refresh.symbols", []string{})
	v.SetDefault("refresh.timeframe", d.Refresh.Timeframe)
	v.SetDefault("refresh.lookback_days", d.Refresh.LookbackDays)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
}
