package series

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// istOffset 上游的列式负载以UTC秒给出时间戳，需要加上固定偏移得到交易所本地时间
const istOffset = 5*time.Hour + 30*time.Minute

// ColumnPayload 列式行情负载：若干平行数组，一列一个字段
// 形如 {"s":"ok","t":[...],"o":[...],"h":[...],"l":[...],"c":[...],"v":[...]}
type ColumnPayload struct {
	Status   string     `json:"s"`
	NoData   bool       `json:"noData"`
	NextTime int64      `json:"nextTime"`
	Times    []*int64   `json:"t"`
	Opens    []*float64 `json:"o"`
	Highs    []*float64 `json:"h"`
	Lows     []*float64 `json:"l"`
	Closes   []*float64 `json:"c"`
	Volumes  []*float64 `json:"v"`
}

// FromColumns 把列式负载规范化为K线序列
// 任一必需字段为null的行被丢弃；时间戳由epoch秒加5:30偏移得到本地墙钟时间
func FromColumns(p ColumnPayload) (Series, error) {
	if p.Times == nil || p.Opens == nil || p.Highs == nil || p.Lows == nil || p.Closes == nil {
		return Series{}, fmt.Errorf("%w: column payload missing required arrays", ErrDataFormat)
	}

	hasVolume := p.Volumes != nil

	n := len(p.Times)
	for _, col := range [][]*float64{p.Opens, p.Highs, p.Lows, p.Closes} {
		if len(col) < n {
			n = len(col)
		}
	}
	if hasVolume && len(p.Volumes) < n {
		n = len(p.Volumes)
	}

	candles := make([]Candle, 0, n)
	for i := 0; i < n; i++ {
		if p.Times[i] == nil || p.Opens[i] == nil || p.Highs[i] == nil ||
			p.Lows[i] == nil || p.Closes[i] == nil {
			continue
		}
		if hasVolume && p.Volumes[i] == nil {
			continue
		}
		c := Candle{
			Timestamp: time.Unix(*p.Times[i], 0).UTC().Add(istOffset),
			Open:      *p.Opens[i],
			High:      *p.Highs[i],
			Low:       *p.Lows[i],
			Close:     *p.Closes[i],
		}
		if hasVolume {
			c.Volume = int64(*p.Volumes[i])
		}
		candles = append(candles, c)
	}

	return Series{Candles: candles, HasVolume: hasVolume}.Canonicalize(), nil
}

// RowCandle 行式K线记录，JSON形如 [time, open, high, low, close, volume, oi]
type RowCandle struct {
	Time         string
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
	OpenInterest int64
}

// UnmarshalJSON 从JSON数组解出一行K线
func (r *RowCandle) UnmarshalJSON(data []byte) error {
	var fields []interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrDataFormat, err)
	}
	if len(fields) < 5 {
		return fmt.Errorf("%w: row has %d fields, want at least 5", ErrDataFormat, len(fields))
	}

	ts, ok := fields[0].(string)
	if !ok {
		return fmt.Errorf("%w: row time is not a string", ErrDataFormat)
	}
	r.Time = ts

	nums := make([]float64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, ok := f.(float64)
		if !ok {
			return fmt.Errorf("%w: row field is not a number", ErrDataFormat)
		}
		nums = append(nums, v)
	}

	r.Open, r.High, r.Low, r.Close = nums[0], nums[1], nums[2], nums[3]
	if len(nums) > 4 {
		r.Volume = int64(nums[4])
	}
	if len(nums) > 5 {
		r.OpenInterest = int64(nums[5])
	}
	return nil
}

// MarshalJSON 序列化回JSON数组形式
func (r RowCandle) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{
		r.Time, r.Open, r.High, r.Low, r.Close, r.Volume, r.OpenInterest,
	})
}

// 行式记录里出现过的时间格式
var rowTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FromRows 把行式记录规范化为K线序列
// 时间字符串按本地墙钟时间解析，时区信息被剥离
func FromRows(rows []RowCandle) (Series, error) {
	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		ts, err := parseRowTime(row.Time)
		if err != nil {
			return Series{}, err
		}
		candles = append(candles, Candle{
			Timestamp: ts,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		})
	}
	return Series{Candles: candles, HasVolume: true}.Canonicalize(), nil
}

// ToRows 把K线序列转回行式记录表示
func ToRows(s Series) []RowCandle {
	rows := make([]RowCandle, 0, len(s.Candles))
	for _, c := range s.Candles {
		rows = append(rows, RowCandle{
			Time:   c.Timestamp.Format("2006-01-02T15:04:05"),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	return rows
}

func parseRowTime(value string) (time.Time, error) {
	for _, layout := range rowTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return WallClock(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse row time %q", ErrDataFormat, value)
}

// 离线文本数据里出现过的日期和时间格式
var (
	delimitedDateLayouts = []string{"20060102", "02/01/2006", "2006-01-02"}
	delimitedTimeLayouts = []string{"15:04:05", "15:04"}
)

// FromDelimited 解析离线分隔文本数据：ticker,date,time,open,high,low,close，无表头无成交量
// 上游在开盘聚合时会把第一根K线记在 09:08 或 09:09，统一改写回 09:15
func FromDelimited(r io.Reader) (Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 7
	cr.TrimLeadingSpace = true

	var candles []Candle
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Series{}, fmt.Errorf("%w: line %d: %v", ErrDataFormat, line, err)
		}

		ts, err := parseDelimitedTimestamp(record[1], record[2])
		if err != nil {
			return Series{}, fmt.Errorf("%w: line %d: %v", ErrDataFormat, line, err)
		}

		var ohlc [4]float64
		for i := 0; i < 4; i++ {
			v, perr := strconv.ParseFloat(strings.TrimSpace(record[3+i]), 64)
			if perr != nil {
				return Series{}, fmt.Errorf("%w: line %d: bad price %q", ErrDataFormat, line, record[3+i])
			}
			ohlc[i] = v
		}

		candles = append(candles, Candle{
			Timestamp: fixSessionOpenStamp(ts),
			Open:      ohlc[0],
			High:      ohlc[1],
			Low:       ohlc[2],
			Close:     ohlc[3],
		})
	}

	return Series{Candles: candles}.Canonicalize(), nil
}

func parseDelimitedTimestamp(date, clock string) (time.Time, error) {
	var day time.Time
	var err error
	for _, layout := range delimitedDateLayouts {
		if day, err = time.Parse(layout, date); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q", date)
	}

	for _, layout := range delimitedTimeLayouts {
		if tod, terr := time.Parse(layout, clock); terr == nil {
			return time.Date(day.Year(), day.Month(), day.Day(),
				tod.Hour(), tod.Minute(), tod.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", clock)
}

// fixSessionOpenStamp 09:08/09:09 的K线改写到 09:15，秒数保留，日期不变
func fixSessionOpenStamp(t time.Time) time.Time {
	if t.Hour() == SessionOpenHour && (t.Minute() == 8 || t.Minute() == 9) {
		return time.Date(t.Year(), t.Month(), t.Day(),
			SessionOpenHour, SessionOpenMinute, t.Second(), 0, t.Location())
	}
	return t
}
