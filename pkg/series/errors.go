package series

import "errors"

var (
	// ErrDataFormat 原始负载无法解析为规范K线序列
	ErrDataFormat = errors.New("data format not parsable")

	// ErrDayNotFound 按日分组结果中没有请求的日期
	ErrDayNotFound = errors.New("day not found in series")

	// ErrBadTimeframe 时间周期必须是正的分钟数
	ErrBadTimeframe = errors.New("timeframe must be a positive number of minutes")
)
