package etmarkets

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
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

// newTestProvider 把适配器指到本地桩服务
func newTestProvider(handler http.Handler) (*Provider, *httptest.Server) {
	srv := httptest.NewServer(handler)
	p := New(core.NewHTTPClient(time.Second, ""))
	p.baseURL = srv.URL
	return p, srv
}

func TestDownload(t *testing.T) {
	t.Run("指数一次成功", func(t *testing.T) {
		var gotPath string
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path + "?" + r.URL.RawQuery
			fmt.Fprint(w, okPayload)
		}))
		defer srv.Close()

		raw, err := p.Download(context.Background(), "BANKNIFTY", testStart, testEnd)
		require.NoError(t, err)
		assert.Equal(t, okPayload, string(raw))
		assert.Contains(t, gotPath, "/index/history")
		assert.Contains(t, gotPath, "symbol=BANKNIFTY")
		assert.Contains(t, gotPath, "resolution=1")
		assert.Contains(t, gotPath, "countback=")
	})

	t.Run("指数失败回退股票", func(t *testing.T) {
		var paths []string
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery)
			if strings.Contains(r.URL.Path, "/index/") {
				fmt.Fprint(w, `{"s":"error"}`)
				return
			}
			fmt.Fprint(w, okPayload)
		}))
		defer srv.Close()

		raw, err := p.Download(context.Background(), "RELIANCE", testStart, testEnd)
		require.NoError(t, err)
		assert.Equal(t, okPayload, string(raw))
		require.Len(t, paths, 2)
		assert.Contains(t, paths[1], "/stock/history")
		assert.Contains(t, paths[1], "symbol=RELIANCEEQ", "股票代码应带EQ后缀")
	})

	t.Run("无数据回退后仍无数据", func(t *testing.T) {
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"s":"ok","noData":true}`)
		}))
		defer srv.Close()

		_, err := p.Download(context.Background(), "UNKNOWN", testStart, testEnd)
		assert.ErrorIs(t, err, core.ErrDateRange)
	})

	t.Run("传输层失败不回退", func(t *testing.T) {
		var calls int
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := p.Download(context.Background(), "BANKNIFTY", testStart, testEnd)
		assert.ErrorIs(t, err, core.ErrRequestingParam)
		assert.Equal(t, 1, calls)
	})

	t.Run("负载不是JSON", func(t *testing.T) {
		p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>blocked</html>")
		}))
		defer srv.Close()

		_, err := p.Download(context.Background(), "BANKNIFTY", testStart, testEnd)
		assert.ErrorIs(t, err, core.ErrDataFormat)
	})
}

func TestToCanonical(t *testing.T) {
	p := New(core.NewHTTPClient(time.Second, ""))

	t.Run("正常负载", func(t *testing.T) {
		s, err := p.ToCanonical([]byte(okPayload))
		require.NoError(t, err)
		require.Equal(t, 1, s.Len())
		// 1711078200 = 2024-03-22 03:30:00 UTC，加5:30即 09:00 本地墙钟
		assert.Equal(t, time.Date(2024, 3, 22, 9, 0, 0, 0, time.UTC), s.First().Timestamp)
		assert.True(t, s.HasVolume)
	})

	t.Run("坏负载", func(t *testing.T) {
		_, err := p.ToCanonical([]byte("not json"))
		assert.ErrorIs(t, err, core.ErrDataFormat)
	})
}
