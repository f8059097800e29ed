// Package moneycontrol 对接 moneycontrol 行情历史接口
// 指数按显式epoch窗口取数，股票按 countback 取数
package moneycontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"candlehist/pkg/logger"
	"candlehist/pkg/provider/core"
	"candlehist/pkg/series"

	"github.com/sirupsen/logrus"
)

// Name 数据源注册名
const Name = "mc"

const defaultBaseURL = "https://priceapi.moneycontrol.com"

// 不带头的请求会被拒
var requestHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
	"Connection":      "keep-alive",
	"DNT":             "1",
}

// Provider moneycontrol历史数据适配器
type Provider struct {
	client  *core.HTTPClient
	codes   IndexCodes
	baseURL string
	log     *logrus.Entry
}

// New 创建moneycontrol适配器
// codes 为构造时一次性传入的指数代码映射，可以只用写死的那部分（传nil）
func New(client *core.HTTPClient, codes IndexCodes) *Provider {
	return &Provider{
		client:  client,
		codes:   codes,
		baseURL: defaultBaseURL,
		log:     logger.WithComponent("MCProvider"),
	}
}

// Name 返回数据源名称
func (p *Provider) Name() string {
	return Name
}

// Download 下载1分钟原始负载
// 先按指数取；指数名解析不到时按股票 countback 取数。只回退这一种错误。
func (p *Provider) Download(ctx context.Context, symbol string, start, end time.Time) ([]byte, error) {
	raw, err := p.downloadIndex(ctx, symbol, start, end)
	if errors.Is(err, core.ErrIndexNotFound) {
		p.log.Debugf("%s is not a known index, retrying as stock", symbol)
		return p.downloadStock(ctx, symbol, start, end)
	}
	return raw, err
}

// ToCanonical 列式负载规范化为K线序列
func (p *Provider) ToCanonical(raw []byte) (series.Series, error) {
	var payload series.ColumnPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return series.Series{}, fmt.Errorf("%w: %v", core.ErrDataFormat, err)
	}
	return series.FromColumns(payload)
}

// downloadIndex 指数取数，带未来日期恢复
// 请求的区间在未来时上游回 no_data 和最后可用时间戳 nextTime，
// 此时用截止 nextTime 的24小时窗口重试一次，仅一次
func (p *Provider) downloadIndex(ctx context.Context, symbol string, start, end time.Time) ([]byte, error) {
	code, err := p.codes.Resolve(symbol)
	if err != nil {
		return nil, err
	}

	startEpoch := core.SessionStartEpoch(start)
	endEpoch := core.SessionEndEpoch(end)

	body, payload, err := p.get(ctx, p.indexURL(code, startEpoch, endEpoch))
	if errors.Is(err, core.ErrDateRange) && payload.NextTime > 0 {
		fixedEnd := payload.NextTime
		fixedStart := fixedEnd - (24*60*60 - 1)
		p.log.Debugf("requested range is in the future, retrying window ending at %d", fixedEnd)
		body, _, err = p.get(ctx, p.indexURL(code, fixedStart, fixedEnd))
	}
	return body, err
}

func (p *Provider) downloadStock(ctx context.Context, symbol string, start, end time.Time) ([]byte, error) {
	startEpoch := core.SessionStartEpoch(start)
	endEpoch := core.SessionEndEpoch(end)
	url := fmt.Sprintf("%s/techCharts/indianMarket/stock/history?symbol=%s&resolution=1&to=%d&countback=%d",
		p.baseURL, symbol, endEpoch, core.Countback(startEpoch, endEpoch))

	body, _, err := p.get(ctx, url)
	return body, err
}

func (p *Provider) indexURL(code string, startEpoch, endEpoch int64) string {
	return fmt.Sprintf("%s/techCharts/history?symbol=%s&resolution=1&from=%d&to=%d",
		p.baseURL, code, startEpoch, endEpoch)
}

// get 请求并翻译负载状态；no_data 时负载一并返回，恢复路径要读里面的 nextTime
func (p *Provider) get(ctx context.Context, url string) ([]byte, series.ColumnPayload, error) {
	var payload series.ColumnPayload

	body, err := p.client.Get(ctx, url, requestHeaders)
	if err != nil {
		return nil, payload, err
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, payload, fmt.Errorf("%w: %v", core.ErrDataFormat, err)
	}
	if strings.Contains(payload.Status, "error") {
		return nil, payload, fmt.Errorf("%w: status %q", core.ErrDownloadedData, payload.Status)
	}
	if payload.Status == "no_data" {
		return nil, payload, fmt.Errorf("%w: status no_data", core.ErrDateRange)
	}
	return body, payload, nil
}
