package series

import "time"

// aggBucket 一个聚合窗口的中间状态
// 输入序列是升序的，first/last 直接按遍历顺序取
type aggBucket struct {
	open, high, low, close float64
	volume                 int64
	count                  int
}

func (b *aggBucket) add(c Candle) {
	if b.count == 0 {
		b.open = c.Open
		b.high = c.High
		b.low = c.Low
	} else {
		if c.High > b.high {
			b.high = c.High
		}
		if c.Low < b.low {
			b.low = c.Low
		}
	}
	b.close = c.Close
	b.volume += c.Volume
	b.count++
}

// Resample 把1分钟序列聚合成 tf 分钟的K线
//
// 直接做右闭右标记的分组会产生错位的窗口：3分钟时 09:15 单独成组，
// 09:18 聚合 [09:16,09:17,09:18]，而期望的是 09:15 聚合 [09:15,09:16,09:17]。
// 因此先把每条记录归属到下一分钟并用零值哨兵占住空出的首格，分组聚合后
// 再整体回移一个窗口，哨兵产生的空行随之丢弃。这对移位是对上游标记方式
// 的经验修正，勿合并化简。
func Resample(s Series, tf int) (Series, error) {
	if tf < 1 {
		return Series{}, ErrBadTimeframe
	}
	if tf == 1 || len(s.Candles) == 0 {
		return s, nil
	}
	return groupShiftBack(shiftForward(s), tf), nil
}

// GroupShiftBack 按 tf 分钟右闭右标记分组聚合，然后整体回移一行
//
// 离线数据的取值整体超前一根K线。窗口粒度的回移一步修正两件事：
// 被单独分出去的第一个窗口，和超前的标记。位移后取值残缺的行一并丢弃。
func GroupShiftBack(s Series, tf int) (Series, error) {
	if tf < 1 {
		return Series{}, ErrBadTimeframe
	}
	if len(s.Candles) == 0 {
		return s, nil
	}
	if tf == 1 {
		return s.ShiftBack(), nil
	}
	return groupShiftBack(s, tf), nil
}

// shiftForward 每条记录归属到下一分钟，首格填零值哨兵
func shiftForward(s Series) Series {
	shifted := make([]Candle, 0, len(s.Candles)+1)
	shifted = append(shifted, Candle{Timestamp: s.Candles[0].Timestamp})
	for _, c := range s.Candles {
		c.Timestamp = c.Timestamp.Add(time.Minute)
		shifted = append(shifted, c)
	}
	return Series{Candles: shifted, HasVolume: s.HasVolume}
}

// groupShiftBack 以首个时间戳为原点做右闭右标记分组，再在完整的标签栅格
// 上回移一行：标记 L 的输出行取 L+tf 窗口的聚合值，空窗口两侧的行丢弃
func groupShiftBack(s Series, tf int) Series {
	window := time.Duration(tf) * time.Minute
	origin := s.Candles[0].Timestamp

	buckets := make(map[int64]*aggBucket)
	lastLabel := origin
	for _, c := range s.Candles {
		label := windowLabel(origin, c.Timestamp, window)
		b := buckets[label.Unix()]
		if b == nil {
			b = &aggBucket{}
			buckets[label.Unix()] = b
		}
		b.add(c)
		if label.After(lastLabel) {
			lastLabel = label
		}
	}

	var out []Candle
	for label := origin; label.Before(lastLabel); label = label.Add(window) {
		b, ok := buckets[label.Add(window).Unix()]
		if !ok {
			continue
		}
		out = append(out, Candle{
			Timestamp: label,
			Open:      b.open,
			High:      b.high,
			Low:       b.low,
			Close:     b.close,
			Volume:    b.volume,
		})
	}

	return Series{Candles: out, HasVolume: s.HasVolume}
}

// windowLabel 右闭窗口的右边界标记：原点本身归属原点，其后 tf 分钟内归属下一个边界
func windowLabel(origin, t time.Time, window time.Duration) time.Time {
	d := t.Sub(origin)
	steps := d / window
	if d%window != 0 {
		steps++
	}
	return origin.Add(steps * window)
}
