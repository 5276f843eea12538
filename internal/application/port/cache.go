package port

import (
	"context"
	"time"
)

// Cache is the read-through cache for hint listings and the single-use nonce
// store for inbound signed requests. Both concerns share one backend.
type Cache interface {
	// Get retrieves a value from cache. A miss is an error.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value with the cache's default TTL.
	Set(ctx context.Context, key string, value interface{}) error

	// SetIfAbsent stores the value only when the key does not exist yet,
	// with an explicit TTL. Returns whether the key was set; false means
	// the key was already present.
	SetIfAbsent(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// DeletePattern removes all keys matching pattern.
	DeletePattern(ctx context.Context, pattern string) error

	Close() error
}
