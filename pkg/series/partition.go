package series

import (
	"sort"
	"time"
)

// PartitionByDay 把多日序列按自然日拆分，键为 YYYY-MM-DD
// 每个日桶都做一次开盘修正，去掉跨日分组带来的边界伪影
func PartitionByDay(s Series) map[string]Series {
	buckets := make(map[string]Series)
	for _, c := range s.Candles {
		key := c.Timestamp.Format(DateKey)
		day := buckets[key]
		day.Candles = append(day.Candles, c)
		day.HasVolume = s.HasVolume
		buckets[key] = day
	}

	for key, day := range buckets {
		buckets[key] = FixSessionOpen(day)
	}
	return buckets
}

// FixSessionOpen 修正单日序列的开盘边界
//
// 上游分组常把一天的数据从 09:16 开始记（整体错后一分钟），此时用首行的
// 取值克隆出一根 09:15 的K线补在最前。首行是其他非 09:15 时间的，视为
// 被错归到当天的前一日尾巴，直接丢弃。已经从 09:15 开始的序列原样返回。
func FixSessionOpen(day Series) Series {
	if day.Empty() {
		return day
	}

	first := day.Candles[0]
	if AtSessionOpen(first.Timestamp) {
		return day
	}

	if first.Timestamp.Hour() == SessionOpenHour && first.Timestamp.Minute() == SessionOpenMinute+1 {
		synthesized := first
		synthesized.Timestamp = SessionOpenOf(first.Timestamp)
		return Series{
			Candles:   append([]Candle{synthesized}, day.Candles...),
			HasVolume: day.HasVolume,
		}.Canonicalize()
	}

	return Series{Candles: day.Candles[1:], HasVolume: day.HasVolume}
}

// Dates 返回日分组的全部日期键，升序
func Dates(days map[string]Series) []string {
	keys := make([]string, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Day 取出指定日期的单日序列
func Day(days map[string]Series, date time.Time) (Series, error) {
	return DayByKey(days, date.Format(DateKey))
}

// DayByKey 按日期键取出单日序列
func DayByKey(days map[string]Series, key string) (Series, error) {
	day, ok := days[key]
	if !ok {
		return Series{}, ErrDayNotFound
	}
	return day, nil
}
