package core

import (
	"errors"

	"candlehist/pkg/series"
)

// 数据源错误分类。适配器只做分类翻译，不做纠正，全部用 errors.Is 匹配。
var (
	// ErrDownloadFailed 传输层失败：网络错误或超时
	ErrDownloadFailed = errors.New("download failed")

	// ErrRequestingParam 请求疑似有误，上游返回了非200状态码
	ErrRequestingParam = errors.New("request was malformed")

	// ErrDownloadedData 传输成功但负载的状态字段报错
	ErrDownloadedData = errors.New("downloaded data signals an error status")

	// ErrDateRange 上游对请求的日期区间没有数据
	ErrDateRange = errors.New("no data available for requested date range")

	// ErrIndexNotFound 指数名无法解析为数据源代码
	ErrIndexNotFound = errors.New("index not found")

	// ErrInstrumentKeyNotFound 合约标识查找失败
	ErrInstrumentKeyNotFound = errors.New("instrument key not found")

	// ErrDatasourceNotAvailable 选择了未注册的数据源
	ErrDatasourceNotAvailable = errors.New("datasource not available")

	// ErrStockNotFound 股票代码查找失败（预留）
	ErrStockNotFound = errors.New("stock not found")
)

// ErrDataFormat 负载形状无法解析为规范序列，等同 series.ErrDataFormat
var ErrDataFormat = series.ErrDataFormat
