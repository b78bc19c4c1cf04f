package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GotWill/checkout-colmeia/internal/cache"
	"github.com/GotWill/checkout-colmeia/internal/circuitbreaker"
	"github.com/GotWill/checkout-colmeia/internal/logger"
)

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	err     error
	setErr  error
	gets    int
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return d, nil
}

func (m *mockCache) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = data
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func (m *mockCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *mockCache) value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data[key])
}

type countingRepo struct {
	*MemoryRepository
	loads atomic.Int32
	delay time.Duration
}

func (c *countingRepo) Load(ctx context.Context, key string) ([]byte, error) {
	c.loads.Add(1)
	time.Sleep(c.delay)
	return c.MemoryRepository.Load(ctx, key)
}

func newCached(repo StateRepository, c cache.StateCache) *CachedRepository {
	b := circuitbreaker.New(circuitbreaker.DefaultSettings("test-cache"), logger.Discard())
	return NewCachedRepository(repo, c, b, logger.Discard())
}

func TestCachedRepository_HitSkipsRepo(t *testing.T) {
	repo := &countingRepo{MemoryRepository: NewMemoryRepository()}
	c := newMockCache()
	c.data["k"] = []byte("cached")

	data, err := newCached(repo, c).Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data))
	assert.Equal(t, int32(0), repo.loads.Load())
}

func TestCachedRepository_MissFillsCache(t *testing.T) {
	repo := &countingRepo{MemoryRepository: NewMemoryRepository()}
	require.NoError(t, repo.Save(context.Background(), "k", []byte("stored")))
	c := newMockCache()

	data, err := newCached(repo, c).Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "stored", string(data))
	assert.Equal(t, "stored", c.value("k"))
}

func TestCachedRepository_NotFoundPassesThrough(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := newCached(repo, newMockCache()).Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestCachedRepository_CacheErrorFallsBackToRepo(t *testing.T) {
	repo := NewMemoryRepository()
	require.NoError(t, repo.Save(context.Background(), "k", []byte("stored")))
	c := newMockCache()
	c.err = errors.New("redis down")

	data, err := newCached(repo, c).Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "stored", string(data))
}

func TestCachedRepository_SaveWritesThrough(t *testing.T) {
	repo := NewMemoryRepository()
	c := newMockCache()
	c.data["k"] = []byte("stale")
	cached := newCached(repo, c)

	require.NoError(t, cached.Save(context.Background(), "k", []byte("fresh")))
	assert.Equal(t, "fresh", c.value("k"))

	stored, err := repo.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(stored))
}

func TestCachedRepository_SaveInvalidatesWhenSetFails(t *testing.T) {
	c := newMockCache()
	c.data["k"] = []byte("stale")
	c.setErr = errors.New("out of memory")

	err := newCached(NewMemoryRepository(), c).Save(context.Background(), "k", []byte("fresh"))
	require.NoError(t, err)
	assert.False(t, c.has("k"))
}

func TestCachedRepository_SaveSucceedsWhenCacheDown(t *testing.T) {
	c := newMockCache()
	c.err = errors.New("redis down")

	err := newCached(NewMemoryRepository(), c).Save(context.Background(), "k", []byte("v"))
	assert.NoError(t, err)
}

func TestCachedRepository_BreakerOpensOnCacheFailures(t *testing.T) {
	repo := NewMemoryRepository()
	require.NoError(t, repo.Save(context.Background(), "k", []byte("v")))
	c := newMockCache()
	c.err = errors.New("redis down")
	cached := newCached(repo, c)

	for i := 0; i < 10; i++ {
		_, err := cached.Load(context.Background(), "k")
		require.NoError(t, err)
	}

	c.mu.Lock()
	gets := c.gets
	c.mu.Unlock()
	assert.LessOrEqual(t, gets, 5, "cache should not be called once the breaker is open")
}

func TestCachedRepository_SingleflightCoalescesLoads(t *testing.T) {
	repo := &countingRepo{MemoryRepository: NewMemoryRepository(), delay: 50 * time.Millisecond}
	require.NoError(t, repo.MemoryRepository.Save(context.Background(), "k", []byte("v")))
	cached := newCached(repo, newMockCache())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cached.Load(context.Background(), "k")
		}()
	}
	wg.Wait()

	assert.Less(t, repo.loads.Load(), int32(10))
}

// gatedRepo blocks Load after reading the stored blob until release is closed.
type gatedRepo struct {
	*MemoryRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedRepo() *gatedRepo {
	return &gatedRepo{
		MemoryRepository: NewMemoryRepository(),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
}

func (g *gatedRepo) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := g.MemoryRepository.Load(ctx, key)
	g.once.Do(func() { close(g.entered) })
	<-g.release
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return data, err
}

func newRedisCache(t *testing.T) *cache.RedisCache {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCache(client)
}

func TestCachedRepository_FillDoesNotOverwriteConcurrentSave(t *testing.T) {
	ctx := context.Background()
	repo := newGatedRepo()
	require.NoError(t, repo.MemoryRepository.Save(ctx, "k", []byte("old")))
	redisCache := newRedisCache(t)
	cached := newCached(repo, redisCache)

	loaded := make(chan []byte, 1)
	go func() {
		data, err := cached.Load(ctx, "k")
		assert.NoError(t, err)
		loaded <- data
	}()
	<-repo.entered

	saved := make(chan error, 1)
	go func() { saved <- cached.Save(ctx, "k", []byte("new")) }()

	time.Sleep(20 * time.Millisecond)
	close(repo.release)

	assert.Equal(t, "old", string(<-loaded))
	require.NoError(t, <-saved)

	got, err := redisCache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	data, err := cached.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestCachedRepository_LoadSurvivesFirstCallerCancel(t *testing.T) {
	repo := newGatedRepo()
	require.NoError(t, repo.MemoryRepository.Save(context.Background(), "k", []byte("v")))
	cached := newCached(repo, newMockCache())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cached.Load(firstCtx, "k")
		first <- err
	}()
	<-repo.entered

	second := make(chan []byte, 1)
	go func() {
		data, err := cached.Load(context.Background(), "k")
		assert.NoError(t, err)
		second <- data
	}()

	cancelFirst()
	assert.ErrorIs(t, <-first, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(repo.release)
	assert.Equal(t, "v", string(<-second))
}
