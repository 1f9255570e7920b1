package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore - хранилище в памяти процесса (тесты и эфемерный режим)
type MemoryStore struct {
	data  map[string]string
	mutex sync.RWMutex

	// failWrites заставляет Set возвращать ошибку (имитация переполнения квоты)
	failWrites bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	value, exists := m.data[key]
	return value, exists, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.failWrites {
		return fmt.Errorf("storage quota exceeded for key %s", key)
	}

	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// SetFailWrites включает или выключает отказ записи
func (m *MemoryStore) SetFailWrites(fail bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failWrites = fail
}

func (m *MemoryStore) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data = make(map[string]string)
	return nil
}

// GetStats возвращает отладочную статистику
func (m *MemoryStore) GetStats() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}

	return map[string]interface{}{
		"backend": "memory",
		"keys":    keys,
	}
}
