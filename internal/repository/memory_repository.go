package repository

import (
	"context"
	"sync"
)

// MemoryRepository implements StateRepository with in-memory storage
type MemoryRepository struct {
	mu    sync.RWMutex
	state map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{state: make(map[string][]byte)}
}

func (m *MemoryRepository) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.state[key]
	if !ok {
		return nil, ErrStateNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryRepository) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state[key] = append([]byte(nil), data...)
	return nil
}
