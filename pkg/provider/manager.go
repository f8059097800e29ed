// Package provider 维护历史数据源的注册表
package provider

import (
	"fmt"
	"sort"
	"sync"

	"candlehist/pkg/provider/core"
)

// Manager 数据源管理器，按名字注册和查找
type Manager struct {
	providers map[string]core.HistoricalProvider
	mu        sync.RWMutex
}

// NewManager 创建数据源管理器
func NewManager() *Manager {
	return &Manager{
		providers: make(map[string]core.HistoricalProvider),
	}
}

// Register 注册数据源
func (m *Manager) Register(p core.HistoricalProvider) error {
	if p == nil {
		return fmt.Errorf("provider cannot be nil")
	}
	if p.Name() == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.providers[p.Name()] = p
	return nil
}

// Get 按名字查找数据源；未注册的名字返回 ErrDatasourceNotAvailable
func (m *Manager) Get(name string) (core.HistoricalProvider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, exists := m.providers[name]; exists {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrDatasourceNotAvailable, name)
}

// List 列出所有已注册的数据源名称，升序
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
