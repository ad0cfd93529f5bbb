package session

import (
	"context"
	"errors"
	"sync"
)

// ErrStorageUnavailable wraps backend failures (I/O, network).
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Storage is a synchronous string key-value backend.
//
// Get reports ok=false for a missing key; that is not an error. Delete must
// succeed for keys that do not exist.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// PairWriter is implemented by backends that can write two keys in one
// atomic operation.
type PairWriter interface {
	SetPair(ctx context.Context, k1, v1, k2, v2 string) error
}

// MemoryStorage keeps keys in process memory. The zero value is not usable;
// call [NewMemoryStorage].
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStorage returns an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryStorage) SetPair(_ context.Context, k1, v1, k2, v2 string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[k1] = v1
	m.data[k2] = v2
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
