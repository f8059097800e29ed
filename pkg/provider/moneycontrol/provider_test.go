package moneycontrol

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"candlehist/pkg/provider/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okPayload = `{"s":"ok","t":[1711078200],"o":[100],"h":[101],"l":[99],"c":[100.5],"v":[10]}`

var (
	testStart = time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC)
)

func newTestProvider(handler http.Handler, codes IndexCodes) (*Provider, *httptest.Server) {
	srv := httptest.NewServer(handler)
	p := New(core.NewHTTPClient(time.Second, ""), codes)
	p.baseURL = srv.URL
	return p, srv
}

func TestResolve(t *testing.T) {
	codes := IndexCodes{"NIFTY 50": "9", "NIFTY MIDCAP 50": "27"}

	tests := []struct {
		symbol   string
		expected string
	}{
		{"BANKNIFTY", "23"},
		{"banknifty", "23"},
		{"FINNIFTY", "47"},
		{"NIFTY", "9"},
		{"NIFTY 50", "9"},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			code, err := codes.Resolve(tt.symbol)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, code)
		})
	}

	t.Run("未知指数", func(t *testing.T) {
		_, err := codes.Resolve("NOSUCH")
		assert.ErrorIs(t, err, core.ErrIndexNotFound)
	})

	t.Run("nil映射只有写死的部分", func(t *testing.T) {
		var empty IndexCodes
		code, err := empty.Resolve("BANKNIFTY")
		require.NoError(t, err)
		assert.Equal(t, "23", code)

		_, err = empty.Resolve("NIFTY")
		assert.ErrorIs(t, err, core.ErrIndexNotFound)
	})
}

func TestLoadIndexCodes(t *testing.T) {
	t.Run("正常刮取", func(t *testing.T) {
		page := `<html><body>
			<li class="indicesList" data-name="NIFTY 50" data-subid="9"></li>
			<li class="indicesList" data-name="NIFTY Bank" data-subid="23"></li>
			<li class="indicesList" data-name="" data-subid="99"></li>
		</body></html>`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, page)
		}))
		defer srv.Close()

		codes, err := LoadIndexCodes(context.Background(), core.NewHTTPClient(time.Second, ""), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, IndexCodes{"NIFTY 50": "9", "NIFTY BANK": "23"}, codes)
	})

	t.Run("页面上没有指数", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body>nothing here</body></html>")
		}))
		defer srv.Close()

		_, err := LoadIndexCodes(context.Background(), core.NewHTTPClient(time.Second, ""), srv.URL)
		assert.ErrorIs(t, err, core.ErrDataFormat)
	})
}

func TestDownloadIndex(t *testing.T) {
	codes := IndexCodes{"NIFTY 50": "9"}

	t.Run("指数按epoch窗口取数", func(t *testing.T) {
		var gotQuery string
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			assert.Equal(t, "/techCharts/history", r.URL.Path)
			fmt.Fprint(w, okPayload)
		}), codes)
		defer srv.Close()

		raw, err := p.Download(context.Background(), "NIFTY", testStart, testEnd)
		require.NoError(t, err)
		assert.Equal(t, okPayload, string(raw))
		assert.Contains(t, gotQuery, "symbol=9")
		assert.Contains(t, gotQuery, "from=")
		assert.Contains(t, gotQuery, "to=")
	})

	t.Run("未来区间用nextTime重试一次", func(t *testing.T) {
		nextTime := int64(1711078200)
		var queries []string
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			queries = append(queries, r.URL.RawQuery)
			if len(queries) == 1 {
				fmt.Fprintf(w, `{"s":"no_data","nextTime":%d}`, nextTime)
				return
			}
			fmt.Fprint(w, okPayload)
		}), codes)
		defer srv.Close()

		raw, err := p.Download(context.Background(), "NIFTY", testStart, testEnd)
		require.NoError(t, err)
		assert.Equal(t, okPayload, string(raw))
		require.Len(t, queries, 2)
		assert.Contains(t, queries[1], "to="+strconv.FormatInt(nextTime, 10))
		assert.Contains(t, queries[1], "from="+strconv.FormatInt(nextTime-(24*60*60-1), 10))
	})

	t.Run("重试后仍无数据不再重试", func(t *testing.T) {
		var calls int
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			fmt.Fprint(w, `{"s":"no_data","nextTime":1711078200}`)
		}), codes)
		defer srv.Close()

		_, err := p.Download(context.Background(), "NIFTY", testStart, testEnd)
		assert.ErrorIs(t, err, core.ErrDateRange)
		assert.Equal(t, 2, calls)
	})

	t.Run("无nextTime不重试", func(t *testing.T) {
		var calls int
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			fmt.Fprint(w, `{"s":"no_data"}`)
		}), codes)
		defer srv.Close()

		_, err := p.Download(context.Background(), "NIFTY", testStart, testEnd)
		assert.ErrorIs(t, err, core.ErrDateRange)
		assert.Equal(t, 1, calls)
	})
}

func TestDownloadStock(t *testing.T) {
	t.Run("非指数回退股票countback取数", func(t *testing.T) {
		var paths []string
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			fmt.Fprint(w, okPayload)
		}), nil)
		defer srv.Close()

		raw, err := p.Download(context.Background(), "RELIANCE", testStart, testEnd)
		require.NoError(t, err)
		assert.Equal(t, okPayload, string(raw))
		require.Len(t, paths, 1, "指数名解析失败不发请求，直接走股票")
		assert.Equal(t, "/techCharts/indianMarket/stock/history", paths[0])
	})

	t.Run("负载状态带error", func(t *testing.T) {
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"s":"internal error"}`)
		}), nil)
		defer srv.Close()

		_, err := p.Download(context.Background(), "RELIANCE", testStart, testEnd)
		assert.ErrorIs(t, err, core.ErrDownloadedData)
	})
}

func TestRequestHeaders(t *testing.T) {
	p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept"), "text/html") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, okPayload)
	}), nil)
	defer srv.Close()

	_, err := p.Download(context.Background(), "RELIANCE", testStart, testEnd)
	assert.NoError(t, err)
}
