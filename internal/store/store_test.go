package store

import (
	"context"
	"errors"
	"sync"

	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/repository"
	"github.com/shopspring/decimal"
)

type mockRepository struct {
	m       sync.Mutex
	data    map[string][]byte
	loadErr error
	saveErr error
	loads   int
	saves   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{data: make(map[string][]byte)}
}

func (m *mockRepository) Load(_ context.Context, key string) ([]byte, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	d, ok := m.data[key]
	if !ok {
		return nil, repository.ErrStateNotFound
	}
	return d, nil
}

func (m *mockRepository) Save(_ context.Context, key string, data []byte) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = data
	return nil
}

func (m *mockRepository) stored(key string) string {
	m.m.Lock()
	defer m.m.Unlock()
	return string(m.data[key])
}

var errStorage = errors.New("storage unavailable")

func product(id int64, price string) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "Product",
		Price:    decimal.RequireFromString(price),
		Category: "Mel",
	}
}
