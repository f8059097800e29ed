package moneycontrol

import (
	"context"
	"fmt"
	"strings"

	"candlehist/pkg/provider/core"

	"github.com/PuerkitoBio/goquery"
)

// DefaultIndexPageURL 指数列表页，从中刮取指数名到代码的映射
const DefaultIndexPageURL = "https://www.moneycontrol.com/markets/indian-indices/"

// IndexCodes 指数名(大写)到数据源代码的只读映射
// 构造一次后按引用传入适配器，不做惰性加载
type IndexCodes map[string]string

// 列表页上没有的指数，代码写死
var hardcodedIndexCodes = map[string]string{
	"FINNIFTY":  "47",
	"BANKNIFTY": "23",
	"MIDCAP":    "27",
}

// 常用简称到交易所官方指数名
var officialIndexNames = map[string]string{
	"BANKNIFTY": "NIFTY BANK",
	"NIFTY":     "NIFTY 50",
	"MIDCAP":    "NIFTY MIDCAP 50",
}

// LoadIndexCodes 刮取指数列表页，构造指数代码映射
// 页面上每个 indicesList 节点的 data-name/data-subid 属性即名字和代码
func LoadIndexCodes(ctx context.Context, client *core.HTTPClient, pageURL string) (IndexCodes, error) {
	if pageURL == "" {
		pageURL = DefaultIndexPageURL
	}

	body, err := client.Get(ctx, pageURL, requestHeaders)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse index page: %v", core.ErrDataFormat, err)
	}

	codes := IndexCodes{}
	doc.Find(".indicesList").Each(func(_ int, sel *goquery.Selection) {
		name := strings.ToUpper(strings.TrimSpace(sel.AttrOr("data-name", "")))
		code := strings.TrimSpace(sel.AttrOr("data-subid", ""))
		if name != "" && code != "" {
			codes[name] = code
		}
	})

	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: no indices found on page", core.ErrDataFormat)
	}
	return codes, nil
}

// Resolve 把指数简称翻译成数据源代码
func (ic IndexCodes) Resolve(symbol string) (string, error) {
	upper := strings.ToUpper(symbol)

	if code, ok := hardcodedIndexCodes[upper]; ok {
		return code, nil
	}

	name := upper
	if official, ok := officialIndexNames[upper]; ok {
		name = official
	}
	if code, ok := ic[name]; ok {
		return code, nil
	}
	return "", fmt.Errorf("%w: %s", core.ErrIndexNotFound, symbol)
}
