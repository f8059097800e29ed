package upstox

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"candlehist/pkg/provider/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const instrumentsCSV = `instrument_key,exchange,tradingsymbol,name
NSE_INDEX|Nifty Bank,NSE,BANKNIFTY,Nifty BANK
NSE_INDEX|Nifty 50,NSE,NIFTY50,Nifty 50
NSE_EQ|INE002A01018,NSE,RELIANCE,RELIANCE INDUSTRIES LTD
`

func writeInstruments(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "NSE.csv")
	require.NoError(t, os.WriteFile(path, []byte(instrumentsCSV), 0644))
	return path
}

func TestLoadInstruments(t *testing.T) {
	t.Run("正常加载", func(t *testing.T) {
		inst, err := LoadInstruments(writeInstruments(t))
		require.NoError(t, err)
		assert.Len(t, inst.rows, 3)
	})

	t.Run("缺列的表头", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0644))
		_, err := LoadInstruments(path)
		assert.ErrorIs(t, err, core.ErrDataFormat)
	})

	t.Run("文件不存在", func(t *testing.T) {
		_, err := LoadInstruments("/no/such/file.csv")
		assert.Error(t, err)
	})
}

func TestLookupKey(t *testing.T) {
	inst, err := LoadInstruments(writeInstruments(t))
	require.NoError(t, err)

	t.Run("name列子串命中", func(t *testing.T) {
		key, err := inst.LookupKey("Nifty BANK")
		require.NoError(t, err)
		assert.Equal(t, "NSE_INDEX|Nifty Bank", key)
	})

	t.Run("大小写无关", func(t *testing.T) {
		key, err := inst.LookupKey("reliance")
		require.NoError(t, err)
		assert.Equal(t, "NSE_EQ|INE002A01018", key)
	})

	t.Run("退到tradingsymbol列", func(t *testing.T) {
		key, err := inst.LookupKey("NIFTY50")
		require.NoError(t, err)
		assert.Equal(t, "NSE_INDEX|Nifty 50", key)
	})

	t.Run("查不到", func(t *testing.T) {
		_, err := inst.LookupKey("NOSUCH")
		assert.ErrorIs(t, err, core.ErrInstrumentKeyNotFound)
	})
}

const okEnvelope = `{"status":"success","data":{"candles":[
	["2024-03-22T09:16:00+05:30",101,102,100,101.5,20,0],
	["2024-03-22T09:15:00+05:30",100,101,99,100.5,10,0]
]}}`

func newTestProvider(t *testing.T, handler http.Handler) (*Provider, *httptest.Server) {
	inst, err := LoadInstruments(writeInstruments(t))
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	p := New(core.NewHTTPClient(time.Second, ""), inst)
	p.baseURL = srv.URL
	return p, srv
}

func TestDownload(t *testing.T) {
	start := time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)

	t.Run("按起止日期取数", func(t *testing.T) {
		var gotPath string
		p, srv := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.RequestURI()
			fmt.Fprint(w, okEnvelope)
		}))
		defer srv.Close()

		raw, err := p.Download(context.Background(), "BANKNIFTY", start, end)
		require.NoError(t, err)
		assert.Equal(t, okEnvelope, string(raw))
		// 简称翻译成官方指数名后查到合约标识，空格和竖线已转义
		assert.Contains(t, gotPath, "/historical-candle/NSE_INDEX%7CNifty%20Bank/1minute/2024-03-25/2024-03-22")
	})

	t.Run("日线粒度", func(t *testing.T) {
		var gotPath string
		p, srv := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.RequestURI()
			fmt.Fprint(w, okEnvelope)
		}))
		defer srv.Close()

		_, err := p.DownloadInterval(context.Background(), "BANKNIFTY", start, end, IntervalDaily)
		require.NoError(t, err)
		assert.Contains(t, gotPath, "/day/")
	})

	t.Run("合约标识查不到不发请求", func(t *testing.T) {
		var calls int
		p, srv := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer srv.Close()

		_, err := p.Download(context.Background(), "NOSUCH", start, end)
		assert.ErrorIs(t, err, core.ErrInstrumentKeyNotFound)
		assert.Equal(t, 0, calls)
	})

	t.Run("状态不是success", func(t *testing.T) {
		p, srv := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"error","data":{}}`)
		}))
		defer srv.Close()

		_, err := p.Download(context.Background(), "BANKNIFTY", start, end)
		assert.ErrorIs(t, err, core.ErrDownloadedData)
	})
}

func TestToCanonical(t *testing.T) {
	inst := &Instruments{}
	p := New(core.NewHTTPClient(time.Second, ""), inst)

	t.Run("行式负载倒序转正", func(t *testing.T) {
		s, err := p.ToCanonical([]byte(okEnvelope))
		require.NoError(t, err)
		require.Equal(t, 2, s.Len())
		assert.Equal(t, time.Date(2024, 3, 22, 9, 15, 0, 0, time.UTC), s.First().Timestamp)
		assert.Equal(t, 100.0, s.First().Open)
		assert.Equal(t, int64(20), s.Last().Volume)
		assert.True(t, s.HasVolume)
	})

	t.Run("坏负载", func(t *testing.T) {
		_, err := p.ToCanonical([]byte("not json"))
		assert.ErrorIs(t, err, core.ErrDataFormat)
	})
}
