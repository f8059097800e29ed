// Package upstox 对接 Upstox 历史K线接口
// 唯一一个按显式起止日期取数的数据源，无需 countback
package upstox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"candlehist/pkg/logger"
	"candlehist/pkg/provider/core"
	"candlehist/pkg/series"

	"github.com/sirupsen/logrus"
)

// Name 数据源注册名
const Name = "upstox"

const defaultBaseURL = "https://api.upstox.com/v2"

// Interval Upstox支持的K线粒度
type Interval string

const (
	IntervalMinute  Interval = "1minute"
	IntervalDaily   Interval = "day"
	IntervalWeekly  Interval = "week"
	IntervalMonthly Interval = "month"
)

// Upstox的官方指数名拼写与其他数据源不同
var officialIndexNames = map[string]string{
	"BANKNIFTY": "Nifty BANK",
	"NIFTY":     "Nifty 50",
	"MIDCAP":    "NIFTY MIDCAP SELECT",
}

// envelope Upstox响应外壳
type envelope struct {
	Status string `json:"status"`
	Data   struct {
		Candles []series.RowCandle `json:"candles"`
	} `json:"data"`
}

// Provider Upstox历史数据适配器
type Provider struct {
	client      *core.HTTPClient
	instruments *Instruments
	baseURL     string
	log         *logrus.Entry
}

// New 创建Upstox适配器
// instruments 为构造时一次性传入的合约查找表
func New(client *core.HTTPClient, instruments *Instruments) *Provider {
	return &Provider{
		client:      client,
		instruments: instruments,
		baseURL:     defaultBaseURL,
		log:         logger.WithComponent("UpstoxProvider"),
	}
}

// Name 返回数据源名称
func (p *Provider) Name() string {
	return Name
}

// Download 下载1分钟原始负载
func (p *Provider) Download(ctx context.Context, symbol string, start, end time.Time) ([]byte, error) {
	return p.DownloadInterval(ctx, symbol, start, end, IntervalMinute)
}

// DownloadInterval 按指定粒度下载原始负载（日线/周线/月线取数用）
func (p *Provider) DownloadInterval(ctx context.Context, symbol string, start, end time.Time, interval Interval) ([]byte, error) {
	key, err := p.instruments.LookupKey(officialName(symbol))
	if err != nil {
		return nil, err
	}
	p.log.Debugf("instrument key for %s: %s", symbol, key)

	url := fmt.Sprintf("%s/historical-candle/%s/%s/%s/%s",
		p.baseURL, escapeInstrumentKey.Replace(key), interval,
		end.Format(series.DateKey), start.Format(series.DateKey))

	body, err := p.client.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDataFormat, err)
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("%w: status %q", core.ErrDownloadedData, env.Status)
	}
	return body, nil
}

// ToCanonical 行式负载规范化为K线序列
func (p *Provider) ToCanonical(raw []byte) (series.Series, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return series.Series{}, fmt.Errorf("%w: %v", core.ErrDataFormat, err)
	}
	return series.FromRows(env.Data.Candles)
}

func officialName(symbol string) string {
	if name, ok := officialIndexNames[strings.ToUpper(symbol)]; ok {
		return name
	}
	return symbol
}
