package repository

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/cache"
	"github.com/GotWill/checkout-colmeia/internal/circuitbreaker"
	"golang.org/x/sync/singleflight"
)

const (
	loadTimeout  = 5 * time.Second
	cacheTimeout = time.Second
	lockStripes  = 64
)

// CachedRepository puts a StateCache in front of a StateRepository.
// Reads are cache-aside and writes go through to both. A cache fill and a
// Save of the same key never interleave, so the cache cannot be left holding
// a blob older than the repository. Cache failures never fail the caller.
type CachedRepository struct {
	repo    StateRepository
	cache   cache.StateCache
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
	sfg     singleflight.Group // Prevents cache stampede
	locks   [lockStripes]sync.Mutex
}

func NewCachedRepository(repo StateRepository, c cache.StateCache, breaker *circuitbreaker.Breaker, logger *slog.Logger) *CachedRepository {
	return &CachedRepository{
		repo:    repo,
		cache:   c,
		breaker: breaker,
		logger:  logger,
	}
}

// Load returns the blob for key. Concurrent loads of one key share a single
// backend round trip which is not cancelled when one of the waiters gives up.
func (r *CachedRepository) Load(ctx context.Context, key string) ([]byte, error) {
	ch := r.sfg.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return r.load(loadCtx, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *CachedRepository) load(ctx context.Context, key string) ([]byte, error) {
	data, err := circuitbreaker.Call(r.breaker, func() ([]byte, error) {
		d, err := r.cache.Get(ctx, key)
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return d, err
	})
	if err != nil {
		r.logger.Warn("cache get error", slog.String("key", key), slog.Any("error", err))
	}
	if data != nil {
		return data, nil
	}

	mu := r.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	data, err = r.repo.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, key, data)

	return data, nil
}

func (r *CachedRepository) Save(ctx context.Context, key string, data []byte) error {
	mu := r.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	if err := r.repo.Save(ctx, key, data); err != nil {
		return err
	}
	// Loads started from here on must not join one that read the old blob.
	r.sfg.Forget(key)

	if !r.fill(ctx, key, data) {
		r.invalidate(ctx, key)
	}
	return nil
}

func (r *CachedRepository) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &r.locks[h.Sum32()%lockStripes]
}

func (r *CachedRepository) fill(ctx context.Context, key string, data []byte) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()
	err := r.breaker.Execute(func() error {
		return r.cache.Set(ctx, key, data)
	})
	if err != nil {
		r.logger.Warn("cache set error", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return true
}

func (r *CachedRepository) invalidate(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()
	err := r.breaker.Execute(func() error {
		return r.cache.Delete(ctx, key)
	})
	if err != nil {
		r.logger.Warn("cache invalidate error", slog.String("key", key), slog.Any("error", err))
	}
}
