package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryKV is an in-process store, used by tests and by the "memory" driver.
type MemoryKV struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int64
}

func NewMemory(quota int64) *MemoryKV {
	return &MemoryKV{data: make(map[string]string), quota: quota}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var others int64
	for k, v := range m.data {
		if k != key {
			others += entrySize(k, v)
		}
	}
	if overQuota(m.quota, others, key, value) {
		return fmt.Errorf("store: set %s (%d bytes): %w", key, len(value), ErrQuotaExceeded)
	}
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Size(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for k, v := range m.data {
		total += entrySize(k, v)
	}
	return total, nil
}

func (m *MemoryKV) Close() error {
	return nil
}
