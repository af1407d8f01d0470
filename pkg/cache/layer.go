// Package cache defines the layer contract of the transaction detail cache.
//
// Layers store encoded transaction snapshots as opaque bytes under owner-scoped
// keys. Encoding is the caller's concern, so every layer (in-process map, Redis,
// the store loader at the bottom of the chain) handles the same value shape.
package cache

import (
	"context"
	"time"
)

// CacheLayer is one level of the detail cache.
type CacheLayer interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl. A ttl of 0 selects the layer default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Name identifies the layer in logs and metrics.
	Name() string

	// Close releases the layer's resources.
	Close() error
}

// Pinger is implemented by layers backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}
