package cache

import (
	"context"
	"time"
)

// Cache is the contract for the cache layer. Implementations are expected
// to JSON-encode values; a miss leaves dest untouched.
type Cache interface {
	// Get fetches and unmarshals into dest. Returns (found, error).
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores a value with TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys from the cache.
	Delete(ctx context.Context, keys ...string) error

	// Ping checks the connection.
	Ping(ctx context.Context) error
}
