package series

import (
	"sort"
	"time"
)

// IST 印度交易所本地时区 (UTC+5:30)
var IST = time.FixedZone("IST", 5*3600+30*60)

// 交易时段边界 (NSE/BSE)
const (
	SessionOpenHour    = 9
	SessionOpenMinute  = 15
	SessionCloseHour   = 15
	SessionCloseMinute = 30

	// MinutesPerSession 一个完整交易日的1分钟K线数量 (09:15 - 15:30)
	MinutesPerSession = 375
)

// DateKey 按日分组使用的日期键格式
const DateKey = "2006-01-02"

// Candle 单根K线，时间戳为分钟级交易所本地墙钟时间（不带时区）
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Series 规范化的K线序列：时间戳严格递增且唯一
// 指数类数据没有成交量，由 HasVolume 标记
type Series struct {
	Candles   []Candle
	HasVolume bool
}

// Len 序列长度
func (s Series) Len() int {
	return len(s.Candles)
}

// Empty 序列是否为空
func (s Series) Empty() bool {
	return len(s.Candles) == 0
}

// First 第一根K线；空序列返回零值
func (s Series) First() Candle {
	if len(s.Candles) == 0 {
		return Candle{}
	}
	return s.Candles[0]
}

// Last 最后一根K线；空序列返回零值
func (s Series) Last() Candle {
	if len(s.Candles) == 0 {
		return Candle{}
	}
	return s.Candles[len(s.Candles)-1]
}

// Canonicalize 按时间戳升序排序并去重，重复时间戳保留后写入的记录
func (s Series) Canonicalize() Series {
	if len(s.Candles) == 0 {
		return s
	}
	candles := make([]Candle, len(s.Candles))
	copy(candles, s.Candles)
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	deduped := candles[:0]
	for _, c := range candles {
		if n := len(deduped); n > 0 && deduped[n-1].Timestamp.Equal(c.Timestamp) {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}
	return Series{Candles: deduped, HasVolume: s.HasVolume}
}

// Merge 合并另一个序列并重新规范化
func (s Series) Merge(other Series) Series {
	merged := Series{
		Candles:   append(append([]Candle{}, s.Candles...), other.Candles...),
		HasVolume: s.HasVolume || other.HasVolume,
	}
	return merged.Canonicalize()
}

// TrimBefore 去掉严格早于 t 的K线
// countback 抓取可能向前多取，需要裁掉 start 之前的部分
func (s Series) TrimBefore(t time.Time) Series {
	idx := sort.Search(len(s.Candles), func(i int) bool {
		return !s.Candles[i].Timestamp.Before(t)
	})
	return Series{Candles: s.Candles[idx:], HasVolume: s.HasVolume}
}

// TrimAfter 去掉严格晚于 cutoff 的K线
func (s Series) TrimAfter(cutoff time.Time) Series {
	idx := sort.Search(len(s.Candles), func(i int) bool {
		return s.Candles[i].Timestamp.After(cutoff)
	})
	return Series{Candles: s.Candles[:idx], HasVolume: s.HasVolume}
}

// ShiftBack 把每根K线的取值替换为下一根的取值并丢掉最后一行
// 离线数据源的日内数据整体超前一根K线，取数时需要统一回移
func (s Series) ShiftBack() Series {
	if len(s.Candles) < 2 {
		return Series{HasVolume: s.HasVolume}
	}
	shifted := make([]Candle, len(s.Candles)-1)
	for i := range shifted {
		shifted[i] = s.Candles[i+1]
		shifted[i].Timestamp = s.Candles[i].Timestamp
	}
	return Series{Candles: shifted, HasVolume: s.HasVolume}
}

// AtSessionOpen 时间戳的时分是否正好是开盘时间 09:15
func AtSessionOpen(t time.Time) bool {
	return t.Hour() == SessionOpenHour && t.Minute() == SessionOpenMinute
}

// SessionOpenOf 给定日期的开盘时间戳（同一天 09:15:00）
func SessionOpenOf(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		SessionOpenHour, SessionOpenMinute, 0, 0, day.Location())
}

// WallClock 去掉时区信息，仅保留墙钟时间
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
