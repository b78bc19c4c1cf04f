package store

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/logger"
	"github.com/GotWill/checkout-colmeia/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCartStore(t *testing.T, repo repository.StateRepository) *CartStore {
	s := NewCartStore(repo, "client-1", DefaultPersistTimeout, logger.Discard())
	require.NoError(t, s.Hydrate(context.Background()))
	return s
}

func TestCartStore_AddCart_MergesSameProduct(t *testing.T) {
	s := setupCartStore(t, newMockRepository())
	ctx := context.Background()
	p := product(1, "10.00")

	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: p, Quantity: 1}))
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: p, Quantity: 2}))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].Product.ID)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestCartStore_AddCart_KeepsInsertionOrder(t *testing.T) {
	s := setupCartStore(t, newMockRepository())
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(id, "1"), Quantity: 1}))
	}
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(1, "1"), Quantity: 1}))

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{items[0].Product.ID, items[1].Product.ID, items[2].Product.ID})
}

func TestCartStore_AddCart_RejectsNonPositiveQuantity(t *testing.T) {
	s := setupCartStore(t, newMockRepository())

	err := s.AddCart(context.Background(), domain.CartItem{Product: product(1, "1"), Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, s.Items())
}

func TestCartStore_AddCart_RejectsQuantityOverflow(t *testing.T) {
	repo := newMockRepository()
	s := setupCartStore(t, repo)
	ctx := context.Background()
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(1, "1"), Quantity: 1}))
	key := repository.StateKey("client-1", NamespaceCart)
	persisted := repo.stored(key)

	err := s.AddCart(ctx, domain.CartItem{Product: product(1, "1"), Quantity: math.MaxInt})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, persisted, repo.stored(key))

	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(1, "1"), Quantity: math.MaxInt - 1}))
	assert.Equal(t, math.MaxInt, s.Count())
}

func TestCartStore_UpdateQuantity(t *testing.T) {
	s := setupCartStore(t, newMockRepository())
	ctx := context.Background()
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(1, "1"), Quantity: 1}))

	require.NoError(t, s.UpdateQuantity(ctx, 1, 5))
	require.NoError(t, s.UpdateQuantity(ctx, 1, 5))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestCartStore_UpdateQuantity_AbsentProductIsNoop(t *testing.T) {
	s := setupCartStore(t, newMockRepository())
	ctx := context.Background()
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(1, "1"), Quantity: 1}))

	require.NoError(t, s.UpdateQuantity(ctx, 99, 4))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestCartStore_UpdateQuantity_BelowOneRejected(t *testing.T) {
	s := setupCartStore(t, newMockRepository())
	ctx := context.Background()
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(1, "1"), Quantity: 2}))

	assert.ErrorIs(t, s.UpdateQuantity(ctx, 1, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, s.UpdateQuantity(ctx, 1, -3), ErrInvalidQuantity)
	assert.Equal(t, 2, s.Items()[0].Quantity)
}

func TestCartStore_DecrementQuantity(t *testing.T) {
	s := setupCartStore(t, newMockRepository())
	ctx := context.Background()
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(1, "1"), Quantity: 2}))

	require.NoError(t, s.DecrementQuantity(ctx, 1))
	assert.Equal(t, 1, s.Items()[0].Quantity)

	require.NoError(t, s.DecrementQuantity(ctx, 1))
	assert.Empty(t, s.Items())

	require.NoError(t, s.DecrementQuantity(ctx, 1))
}

func TestCartStore_RemoveProduct(t *testing.T) {
	s := setupCartStore(t, newMockRepository())
	ctx := context.Background()
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(1, "1"), Quantity: 1}))

	require.NoError(t, s.RemoveProduct(ctx, 1))
	assert.Empty(t, s.Items())
	assert.True(t, s.Hydrated())

	require.NoError(t, s.RemoveProduct(ctx, 1))
}

func TestCartStore_ClearCart_Idempotent(t *testing.T) {
	repo := newMockRepository()
	s := setupCartStore(t, repo)
	ctx := context.Background()
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(1, "1"), Quantity: 1}))
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(2, "1"), Quantity: 1}))

	require.NoError(t, s.ClearCart(ctx))
	require.NoError(t, s.ClearCart(ctx))

	assert.Empty(t, s.Items())
	assert.JSONEq(t, `{"cart":[]}`, repo.stored("client-1:cart"))
}

func TestCartStore_TotalAndCount(t *testing.T) {
	s := setupCartStore(t, newMockRepository())
	ctx := context.Background()
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(1, "19.90"), Quantity: 2}))
	require.NoError(t, s.AddCart(ctx, domain.CartItem{Product: product(2, "5.50"), Quantity: 1}))

	assert.Equal(t, "45.3", s.Total().String())
	assert.Equal(t, 3, s.Count())
}

func TestCartStore_PersistsSnapshotLayout(t *testing.T) {
	repo := newMockRepository()
	s := setupCartStore(t, repo)

	require.NoError(t, s.AddCart(context.Background(), domain.CartItem{Product: product(7, "12.5"), Quantity: 2}))

	var raw struct {
		Cart []struct {
			Cart     map[string]any `json:"cart"`
			Quantity int            `json:"quantity"`
		} `json:"cart"`
	}
	require.NoError(t, json.Unmarshal([]byte(repo.stored("client-1:cart")), &raw))
	require.Len(t, raw.Cart, 1)
	assert.Equal(t, 2, raw.Cart[0].Quantity)
	assert.EqualValues(t, 7, raw.Cart[0].Cart["id"])
}

func TestCartStore_HydrateRestoresPersistedCart(t *testing.T) {
	repo := newMockRepository()
	first := setupCartStore(t, repo)
	require.NoError(t, first.AddCart(context.Background(), domain.CartItem{Product: product(1, "3.00"), Quantity: 4}))

	second := setupCartStore(t, repo)

	items := second.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].Product.ID)
	assert.Equal(t, 4, items[0].Quantity)
	assert.True(t, items[0].Product.Price.Equal(first.Items()[0].Product.Price))
	assert.Equal(t, "12", second.Total().String())
}

func TestCartStore_MutationBeforeHydrate(t *testing.T) {
	s := NewCartStore(newMockRepository(), "client-1", DefaultPersistTimeout, logger.Discard())

	assert.False(t, s.Hydrated())
	err := s.AddCart(context.Background(), domain.CartItem{Product: product(1, "1"), Quantity: 1})
	assert.ErrorIs(t, err, ErrNotHydrated)
}

func TestCartStore_HydrateFailureKeepsFlagFalse(t *testing.T) {
	repo := newMockRepository()
	repo.loadErr = errStorage
	s := NewCartStore(repo, "client-1", DefaultPersistTimeout, logger.Discard())

	assert.ErrorIs(t, s.Hydrate(context.Background()), errStorage)
	assert.False(t, s.Hydrated())
}

func TestCartStore_CorruptSnapshotStartsEmpty(t *testing.T) {
	repo := newMockRepository()
	repo.data["client-1:cart"] = []byte("{not json")

	s := setupCartStore(t, repo)

	assert.True(t, s.Hydrated())
	assert.Empty(t, s.Items())
}

func TestCartStore_SaveFailureKeepsMutation(t *testing.T) {
	repo := newMockRepository()
	s := setupCartStore(t, repo)
	repo.saveErr = errStorage

	err := s.AddCart(context.Background(), domain.CartItem{Product: product(1, "1"), Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, s.Items(), 1)
}

func TestCartStore_ItemsReturnsCopy(t *testing.T) {
	s := setupCartStore(t, newMockRepository())
	require.NoError(t, s.AddCart(context.Background(), domain.CartItem{Product: product(1, "1"), Quantity: 1}))

	items := s.Items()
	items[0].Quantity = 100

	assert.Equal(t, 1, s.Items()[0].Quantity)
}
