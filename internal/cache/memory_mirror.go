package cache

import (
	"context"
	"sync"

	"warehouse-sync-agent/internal/models"
)

// MemoryMirror is a volatile Mirror. It keeps the cache contract without surviving restarts.
type MemoryMirror struct {
	mu      sync.RWMutex
	records map[string]models.CacheRecord
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{records: make(map[string]models.CacheRecord)}
}

func (m *MemoryMirror) Put(_ context.Context, rec models.CacheRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Value = cloneBytes(rec.Value)
	m.records[rec.Key] = rec
	return nil
}

func (m *MemoryMirror) Get(_ context.Context, key string) (models.CacheRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	rec.Value = cloneBytes(rec.Value)
	return rec, ok, nil
}

func (m *MemoryMirror) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.records, key)
	}
	return nil
}

func (m *MemoryMirror) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.records))
	for key := range m.records {
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *MemoryMirror) List(_ context.Context) ([]models.CacheRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.CacheRecord, 0, len(m.records))
	for _, rec := range m.records {
		rec.Value = cloneBytes(rec.Value)
		out = append(out, rec)
	}
	return out, nil
}

var _ Mirror = (*MemoryMirror)(nil)
