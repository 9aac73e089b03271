package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps entries in process. A positive quota caps the summed
// size of keys and values, mirroring a browser storage quota.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]byte
	quota   int
	used    int
}

func NewMemoryBackend(quota int) *MemoryBackend {
	return &MemoryBackend{entries: map[string][]byte{}, quota: quota}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.used
	if existing, ok := m.entries[key]; ok {
		used -= len(key) + len(existing)
	}
	used += len(key) + len(value)
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored
	m.used = used
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[key]; ok {
		m.used -= len(key) + len(existing)
		delete(m.entries, key)
	}
	return nil
}

// Keys lists stored keys in no particular order.
func (m *MemoryBackend) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return keys
}
