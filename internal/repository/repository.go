package repository

import (
	"context"
	"errors"
)

var ErrStateNotFound = errors.New("state not found")

// StateRepository is the storage port of the client stores: one JSON blob per key.
// Consumers define this interface, not the MongoDB implementation
type StateRepository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// StateKey scopes a store namespace ("cart", "user") to one client.
func StateKey(clientID, namespace string) string {
	return clientID + ":" + namespace
}
