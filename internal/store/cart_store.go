package store

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/repository"
	"github.com/shopspring/decimal"
)

// CartStore holds the cart of one client and persists it on every mutation.
type CartStore struct {
	mu       sync.RWMutex
	cart     domain.Cart
	hydrated bool
	snap     snapshotter
}

func NewCartStore(repo repository.StateRepository, clientID string, persistTimeout time.Duration, logger *slog.Logger) *CartStore {
	return &CartStore{
		snap: snapshotter{
			repo:    repo,
			key:     repository.StateKey(clientID, NamespaceCart),
			timeout: persistTimeout,
			logger:  logger,
		},
	}
}

// Hydrate loads the persisted cart once. Calling it again is a no-op.
func (s *CartStore) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated {
		return nil
	}

	var stored domain.Cart
	if _, err := s.snap.load(ctx, &stored); err != nil {
		return err
	}
	s.cart = stored.Clone()
	s.hydrated = true
	return nil
}

func (s *CartStore) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// AddCart merges item into the line of the same product or appends a new line.
func (s *CartStore) AddCart(ctx context.Context, item domain.CartItem) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.mutate(ctx, func(c domain.Cart) (domain.Cart, error) {
		if i, ok := c.Find(item.Product.ID); ok {
			if c.Items[i].Quantity > math.MaxInt-item.Quantity {
				return c, ErrInvalidQuantity
			}
			c.Items[i].Quantity += item.Quantity
			return c, nil
		}
		c.Items = append(c.Items, item)
		return c, nil
	})
}

// UpdateQuantity sets the quantity of an existing line. Absent products are ignored.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.mutate(ctx, func(c domain.Cart) (domain.Cart, error) {
		if i, ok := c.Find(productID); ok {
			c.Items[i].Quantity = quantity
		}
		return c, nil
	})
}

// DecrementQuantity lowers a line by one, removing it when it would reach zero.
func (s *CartStore) DecrementQuantity(ctx context.Context, productID int64) error {
	return s.mutate(ctx, func(c domain.Cart) (domain.Cart, error) {
		i, ok := c.Find(productID)
		if !ok {
			return c, nil
		}
		if c.Items[i].Quantity > 1 {
			c.Items[i].Quantity--
			return c, nil
		}
		return removeLine(c, i), nil
	})
}

func (s *CartStore) RemoveProduct(ctx context.Context, productID int64) error {
	return s.mutate(ctx, func(c domain.Cart) (domain.Cart, error) {
		if i, ok := c.Find(productID); ok {
			return removeLine(c, i), nil
		}
		return c, nil
	})
}

func (s *CartStore) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, func(domain.Cart) (domain.Cart, error) {
		return domain.Cart{Items: []domain.CartItem{}}, nil
	})
}

func (s *CartStore) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone().Items
}

// Cart returns a copy of the whole cart.
func (s *CartStore) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

func (s *CartStore) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Total()
}

func (s *CartStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Count()
}

// mutate replaces the cart with fn's result and persists the new snapshot.
// fn receives a private copy; when it fails the cart is left untouched.
func (s *CartStore) mutate(ctx context.Context, fn func(domain.Cart) (domain.Cart, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated {
		return ErrNotHydrated
	}

	next, err := fn(s.cart.Clone())
	if err != nil {
		return err
	}
	s.cart = next
	s.snap.save(ctx, s.cart)
	return nil
}

func removeLine(c domain.Cart, i int) domain.Cart {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return c
}
