package core

import (
	"context"
	"time"

	"candlehist/pkg/series"
)

// HistoricalProvider 历史K线数据源适配器
// 三个数据源是同一契约下的独立实现，按名字选择，不做继承
type HistoricalProvider interface {
	// Name 数据源名称
	Name() string

	// Download 下载 [start, end] 区间的1分钟原始负载
	// 返回原始字节以便缓存层原样落盘；状态字段翻译为本包错误分类
	Download(ctx context.Context, symbol string, start, end time.Time) ([]byte, error)

	// ToCanonical 把原始负载规范化为K线序列
	ToCanonical(raw []byte) (series.Series, error)
}

// SessionStartEpoch 某日开盘时刻 (09:15 IST) 的epoch秒
func SessionStartEpoch(day time.Time) int64 {
	return time.Date(day.Year(), day.Month(), day.Day(),
		series.SessionOpenHour, series.SessionOpenMinute, 0, 0, series.IST).Unix()
}

// SessionEndEpoch 某日收盘时刻 (15:30 IST) 的epoch秒
func SessionEndEpoch(day time.Time) int64 {
	return time.Date(day.Year(), day.Month(), day.Day(),
		series.SessionCloseHour, series.SessionCloseMinute, 0, 0, series.IST).Unix()
}

// countbackPerDay 每个交易日按377根估算，短交易日只会多取不会少取
const countbackPerDay = 377

// Countback 估算覆盖 [startEpoch, endEpoch] 需要的1分钟K线根数
// 这些接口按从 end 往回数的根数取数，而不是显式起始时间
func Countback(startEpoch, endEpoch int64) int64 {
	span := endEpoch - startEpoch
	if span < 86400 {
		return span / 60
	}
	days := span / 86400
	return days * countbackPerDay
}
