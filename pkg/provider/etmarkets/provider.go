// Package etmarkets 对接 Economic Times 行情历史接口
// 指数和股票共用同一族URL，按 countback 从 end 往回取数
package etmarkets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"candlehist/pkg/logger"
	"candlehist/pkg/provider/core"
	"candlehist/pkg/series"

	"github.com/sirupsen/logrus"
)

// Name 数据源注册名
const Name = "et"

const defaultBaseURL = "https://etelection.indiatimes.com/ET_Charts/india-market"

// Provider ET历史数据适配器
type Provider struct {
	client  *core.HTTPClient
	baseURL string
	log     *logrus.Entry
}

// New 创建ET适配器
func New(client *core.HTTPClient) *Provider {
	return &Provider{
		client:  client,
		baseURL: defaultBaseURL,
		log:     logger.WithComponent("ETProvider"),
	}
}

// Name 返回数据源名称
func (p *Provider) Name() string {
	return Name
}

// Download 下载1分钟原始负载
// 先按指数取，数据状态失败时按股票重试：ET的股票代码带EQ后缀
// 只匹配数据状态类错误，传输层失败原样抛出
func (p *Provider) Download(ctx context.Context, symbol string, start, end time.Time) ([]byte, error) {
	raw, err := p.download(ctx, "index", symbol, start, end)
	if err != nil && (errors.Is(err, core.ErrDownloadedData) || errors.Is(err, core.ErrDateRange)) {
		p.log.Debugf("index download failed for %s, retrying as stock: %v", symbol, err)
		return p.download(ctx, "stock", symbol+"EQ", start, end)
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

func (p *Provider) download(ctx context.Context, kind, symbol string, start, end time.Time) ([]byte, error) {
	startEpoch := core.SessionStartEpoch(start)
	endEpoch := core.SessionEndEpoch(end)
	url := fmt.Sprintf("%s/%s/history?symbol=%s&resolution=1&to=%d&countback=%d&currencyCode=INR",
		p.baseURL, kind, symbol, endEpoch, core.Countback(startEpoch, endEpoch))

	body, err := p.client.Get(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	var payload series.ColumnPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDataFormat, err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("%w: status %q", core.ErrDownloadedData, payload.Status)
	}
	if payload.NoData {
		return nil, fmt.Errorf("%w: %s %s..%s", core.ErrDateRange,
			symbol, start.Format(series.DateKey), end.Format(series.DateKey))
	}
	return body, nil
}
