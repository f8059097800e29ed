package upstox

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"candlehist/pkg/provider/core"
)

// instrumentRow 合约表里查找用到的三列
type instrumentRow struct {
	key           string
	name          string
	tradingSymbol string
}

// Instruments 从交易所合约CSV构造的只读查找表
// 构造一次后按引用传入适配器
type Instruments struct {
	rows []instrumentRow
}

// LoadInstruments 读取一个或多个合约CSV（NSE在前、BSE在后）
// 表头必须包含 instrument_key、name、tradingsymbol 列
func LoadInstruments(paths ...string) (*Instruments, error) {
	inst := &Instruments{}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open instruments file: %w", err)
		}
		err = inst.readCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return inst, nil
}

func (inst *Instruments) readCSV(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	keyCol, okKey := cols["instrument_key"]
	nameCol, okName := cols["name"]
	symCol, okSym := cols["tradingsymbol"]
	if !okKey || !okName || !okSym {
		return fmt.Errorf("%w: instruments header missing required columns", core.ErrDataFormat)
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		if len(record) <= keyCol || len(record) <= nameCol || len(record) <= symCol {
			continue
		}
		inst.rows = append(inst.rows, instrumentRow{
			key:           record[keyCol],
			name:          record[nameCol],
			tradingSymbol: record[symCol],
		})
	}
}

// LookupKey 按标的名查合约标识
// 先在 name 列做大小写无关子串匹配，再退到 tradingsymbol 列；取第一个命中
func (inst *Instruments) LookupKey(symbol string) (string, error) {
	needle := strings.ToLower(symbol)

	for _, row := range inst.rows {
		if strings.Contains(strings.ToLower(row.name), needle) {
			return row.key, nil
		}
	}
	for _, row := range inst.rows {
		if strings.Contains(strings.ToLower(row.tradingSymbol), needle) {
			return row.key, nil
		}
	}
	return "", fmt.Errorf("%w: %s", core.ErrInstrumentKeyNotFound, symbol)
}

// escapeInstrumentKey 合约标识进URL前的转义
var escapeInstrumentKey = strings.NewReplacer(" ", "%20", "|", "%7C")
