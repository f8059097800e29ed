// Package storage 把规范化序列落到时序库
package storage

import (
	"context"
	"fmt"

	"candlehist/pkg/logger"
	"candlehist/pkg/series"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"
)

// InfluxConfig InfluxDB连接配置
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// CandleWriter 把K线序列写入InfluxDB
type CandleWriter struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
	log         *logrus.Entry
}

// NewCandleWriter 创建写入器
func NewCandleWriter(config InfluxConfig) *CandleWriter {
	if config.Measurement == "" {
		config.Measurement = "candles"
	}
	client := influxdb2.NewClient(config.URL, config.Token)
	return &CandleWriter{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(config.Org, config.Bucket),
		measurement: config.Measurement,
		log:         logger.WithComponent("CandleWriter"),
	}
}

// WriteSeries 写入一条序列；标的和数据源名作为tag
func (w *CandleWriter) WriteSeries(ctx context.Context, source, symbol string, s series.Series) error {
	for _, c := range s.Candles {
		fields := map[string]interface{}{
			"open":  c.Open,
			"high":  c.High,
			"low":   c.Low,
			"close": c.Close,
		}
		if s.HasVolume {
			fields["volume"] = c.Volume
		}
		point := influxdb2.NewPoint(w.measurement,
			map[string]string{"symbol": symbol, "source": source},
			fields, c.Timestamp)
		if err := w.writeAPI.WritePoint(ctx, point); err != nil {
			return fmt.Errorf("write point: %w", err)
		}
	}

	w.log.Debugf("wrote %d candles for %s/%s", s.Len(), source, symbol)
	return nil
}

// Close 关闭InfluxDB连接
func (w *CandleWriter) Close() {
	w.client.Close()
}
