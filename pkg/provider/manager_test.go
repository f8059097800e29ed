package provider

import (
	"context"
	"testing"
	"time"

	"candlehist/pkg/provider/core"
	"candlehist/pkg/series"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Download(ctx context.Context, symbol string, start, end time.Time) ([]byte, error) {
	return []byte(f.name), nil
}

func (f *fakeProvider) ToCanonical(raw []byte) (series.Series, error) {
	return series.Series{}, nil
}

func TestManager(t *testing.T) {
	t.Run("注册后按名字查找", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Register(&fakeProvider{name: "et"}))
		require.NoError(t, m.Register(&fakeProvider{name: "mc"}))

		p, err := m.Get("mc")
		require.NoError(t, err)
		assert.Equal(t, "mc", p.Name())
	})

	t.Run("未注册的名字", func(t *testing.T) {
		m := NewManager()
		_, err := m.Get("upstox")
		assert.ErrorIs(t, err, core.ErrDatasourceNotAvailable)
	})

	t.Run("拒绝非法注册", func(t *testing.T) {
		m := NewManager()
		assert.Error(t, m.Register(nil))
		assert.Error(t, m.Register(&fakeProvider{name: ""}))
	})

	t.Run("同名注册覆盖", func(t *testing.T) {
		m := NewManager()
		first := &fakeProvider{name: "et"}
		second := &fakeProvider{name: "et"}
		require.NoError(t, m.Register(first))
		require.NoError(t, m.Register(second))

		p, err := m.Get("et")
		require.NoError(t, err)
		assert.Same(t, second, p)
	})

	t.Run("名称列表升序", func(t *testing.T) {
		m := NewManager()
		for _, name := range []string{"upstox", "et", "mc"} {
			require.NoError(t, m.Register(&fakeProvider{name: name}))
		}
		assert.Equal(t, []string{"et", "mc", "upstox"}, m.List())
	})
}
