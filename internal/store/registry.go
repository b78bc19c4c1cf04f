package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/repository"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidClientID = errors.New("invalid client id")

// Workspace groups the stores of one client.
type Workspace struct {
	ClientID string
	Cart     *CartStore
	User     *UserStore

	lastAccess time.Time
}

type RegistryConfig struct {
	PersistTimeout  time.Duration
	HydrateTimeout  time.Duration
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

// Registry creates, hydrates and caches client workspaces.
// Workspaces idle for longer than IdleTTL are dropped from memory; their
// state is already persisted and is re-hydrated on the next access.
type Registry struct {
	repo   repository.StateRepository
	config RegistryConfig
	logger *slog.Logger

	mu         sync.Mutex
	workspaces map[string]*Workspace
	sfg        singleflight.Group

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewRegistry(repo repository.StateRepository, config RegistryConfig, logger *slog.Logger) *Registry {
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = DefaultPersistTimeout
	}
	if config.HydrateTimeout <= 0 {
		config.HydrateTimeout = DefaultHydrateTimeout
	}
	r := &Registry{
		repo:        repo,
		config:      config,
		logger:      logger,
		workspaces:  make(map[string]*Workspace),
		stopCleanup: make(chan struct{}),
	}

	if config.IdleTTL > 0 && config.CleanupInterval > 0 {
		r.wg.Add(1)
		go r.cleanupLoop()
	}

	return r
}

// Workspace returns the hydrated workspace of clientID. Hydration is shared
// by concurrent callers and keeps running when the caller that started it
// goes away.
func (r *Registry) Workspace(ctx context.Context, clientID string) (*Workspace, error) {
	if clientID == "" {
		return nil, ErrInvalidClientID
	}

	if ws, ok := r.touch(clientID); ok {
		return ws, nil
	}

	ch := r.sfg.DoChan(clientID, func() (interface{}, error) {
		if ws, ok := r.touch(clientID); ok {
			return ws, nil
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.HydrateTimeout)
		defer cancel()

		ws := &Workspace{
			ClientID: clientID,
			Cart:     NewCartStore(r.repo, clientID, r.config.PersistTimeout, r.logger),
			User:     NewUserStore(r.repo, clientID, r.config.PersistTimeout, r.logger),
		}
		if err := ws.Cart.Hydrate(ctx); err != nil {
			return nil, err
		}
		if err := ws.User.Hydrate(ctx); err != nil {
			return nil, err
		}

		r.mu.Lock()
		ws.lastAccess = time.Now()
		r.workspaces[clientID] = ws
		r.mu.Unlock()

		r.logger.DebugContext(ctx, "workspace hydrated", slog.String("client_id", clientID))
		return ws, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Workspace), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of workspaces held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

func (r *Registry) touch(clientID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[clientID]
	if ok {
		ws.lastAccess = time.Now()
	}
	return ws, ok
}

func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.evictIdle(time.Now()); n > 0 {
				r.logger.Debug("evicted idle workspaces", slog.Int("count", n))
			}
		case <-r.stopCleanup:
			return
		}
	}
}

// evictIdle drops workspaces not accessed within IdleTTL of now.
func (r *Registry) evictIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, ws := range r.workspaces {
		if now.Sub(ws.lastAccess) > r.config.IdleTTL {
			delete(r.workspaces, id)
			evicted++
		}
	}
	return evicted
}

// Close stops the background cleanup and waits for it to finish
func (r *Registry) Close() error {
	close(r.stopCleanup)
	r.wg.Wait()
	return nil
}
