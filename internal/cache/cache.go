package cache

import (
	"context"
	"errors"
)

// StateCache holds serialized client state in front of the repository.
type StateCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")
