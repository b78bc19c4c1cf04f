package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/repository"
)

const (
	NamespaceCart = "cart"
	NamespaceUser = "user"

	// DefaultPersistTimeout bounds a single snapshot write
	DefaultPersistTimeout = 2 * time.Second
	DefaultHydrateTimeout = 5 * time.Second
)

var (
	ErrNotHydrated     = errors.New("store not hydrated")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// snapshotter loads and saves one JSON snapshot under a fixed key.
type snapshotter struct {
	repo    repository.StateRepository
	key     string
	timeout time.Duration
	logger  *slog.Logger
}

// load decodes the stored snapshot into v. A missing or unreadable snapshot
// leaves v untouched and reports found=false; only repository failures are
// returned as errors.
func (s snapshotter) load(ctx context.Context, v any) (bool, error) {
	data, err := s.repo.Load(ctx, s.key)
	if errors.Is(err, repository.ErrStateNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", s.key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("discarding unreadable snapshot",
			slog.String("key", s.key),
			slog.Any("error", err))
		return false, nil
	}
	return true, nil
}

// save writes v. Failures are logged, never returned: the in-memory state
// stays authoritative for the running process.
func (s snapshotter) save(ctx context.Context, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("marshal snapshot failed", slog.String("key", s.key), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.repo.Save(ctx, s.key, data); err != nil {
		s.logger.ErrorContext(ctx, "persist snapshot failed",
			slog.String("key", s.key),
			slog.Any("error", err))
	}
}
