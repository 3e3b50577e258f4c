package repository

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"manion_server/internal/common"
)

// MemoryKVStore keeps documents in-process. Used by tests in place of the
// Postgres-backed store.
type MemoryKVStore struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{data: make(map[string]json.RawMessage)}
}

func (m *MemoryKVStore) Get(_ context.Context, key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return value, nil
}

func (m *MemoryKVStore) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return common.Errorf("memory kv set %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *MemoryKVStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKVStore) GetByPrefix(_ context.Context, prefix string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	values := make([]json.RawMessage, 0, len(keys))
	for _, key := range keys {
		values = append(values, m.data[key])
	}
	return values, nil
}
