// Package offline 本地分隔文本文件数据源
// 每个文件是一段行情切片，全部解析后合并成一条多日序列
package offline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"candlehist/pkg/logger"
	"candlehist/pkg/series"

	"github.com/sirupsen/logrus"
)

// DefaultWorkers 并行解析文件的工作协程数
const DefaultWorkers = 8

// Config 离线数据源配置
type Config struct {
	Dir     string `mapstructure:"dir"`     // 数据文件目录
	Ticker  string `mapstructure:"ticker"`  // 文件名里的标的过滤，形如 *BNF.txt
	Workers int    `mapstructure:"workers"` // 并行解析的协程数，0取默认值
}

// Source 离线数据源
// 构造时一次性读入全部文件，之后只读
type Source struct {
	unified series.Series
	days    map[string]series.Series
	dates   []string
	log     *logrus.Entry
}

// New 构造离线数据源：列出匹配的文件，用固定大小的协程池并行解析，
// 合并排序去重后按日拆分。合并是唯一的同步点，各文件解析互不共享状态。
func New(config Config) (*Source, error) {
	log := logger.WithComponent("OfflineSource")

	pattern := filepath.Join(config.Dir, "*"+config.Ticker+".txt")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no data files match %s", pattern)
	}

	fragments, err := parseFiles(files, config.Workers, log)
	if err != nil {
		return nil, err
	}

	unified := series.Series{}
	for _, fragment := range fragments {
		unified = unified.Merge(fragment)
	}

	days := series.PartitionByDay(unified)
	log.Infof("loaded %d files, %d rows, %d trading days", len(files), unified.Len(), len(days))

	return &Source{
		unified: unified,
		days:    days,
		dates:   series.Dates(days),
		log:     log,
	}, nil
}

// parseFiles 固定大小协程池并行解析，每个文件产出一个独立片段
func parseFiles(files []string, workers int, log *logrus.Entry) ([]series.Series, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(files) {
		workers = len(files)
	}

	type result struct {
		s   series.Series
		err error
	}

	jobs := make(chan string)
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				s, err := parseFile(path)
				if err != nil {
					err = fmt.Errorf("%s: %w", path, err)
				}
				results <- result{s: s, err: err}
			}
		}()
	}

	for _, path := range files {
		log.Debugf("reading file: %s", path)
		jobs <- path
	}
	close(jobs)
	wg.Wait()
	close(results)

	fragments := make([]series.Series, 0, len(files))
	for r := range results {
		if r.err != nil {
			return nil, r.err
		}
		fragments = append(fragments, r.s)
	}
	return fragments, nil
}

func parseFile(path string) (series.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return series.Series{}, err
	}
	defer f.Close()
	return series.FromDelimited(f)
}

// CompleteData 完整的多日序列
func (src *Source) CompleteData() series.Series {
	return src.unified
}

// Dates 数据覆盖的全部日期，升序
func (src *Source) Dates() []string {
	return src.dates
}

// DayData 取某一日的数据并聚合到 tf 分钟
//
// 离线数据整体比真实标记超前一根K线，开盘修正和聚合之后统一回移一行。
// 回移后首行仍不在 09:15 的，这一天的数据可疑，记日志并原样返回，
// 不做进一步猜测性修复，调用方自行决定弃用。
func (src *Source) DayData(date string, tf int) (series.Series, error) {
	day, err := series.DayByKey(src.days, date)
	if err != nil {
		return series.Series{}, err
	}

	fixed := series.FixSessionOpen(day)
	shifted, err := series.GroupShiftBack(fixed, tf)
	if err != nil {
		return series.Series{}, err
	}
	if !shifted.Empty() && !series.AtSessionOpen(shifted.First().Timestamp) {
		src.log.Warnf("day %s should be discarded: first bar at %s",
			date, shifted.First().Timestamp.Format("15:04:05"))
	}
	return shifted, nil
}
