package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented TTL cache keyed by symbol. Values are serialized
// by the caller so the in-memory and Redis backends share one contract.
type Store interface {
	// Get returns the cached value, or ok=false on a miss or expiry.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key if present.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// DefaultTTL is how long a pipeline result stays fresh. Predictions are
// daily-granularity, so hours of staleness only costs upstream quota, not
// correctness.
const DefaultTTL = 4 * time.Hour
