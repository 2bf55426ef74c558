// Package cache stores successful lookup results for a fixed time-to-live.
package cache

import (
	"context"
	"time"

	"github.com/use-agent/regionscope/models"
)

// DefaultTTL is how long a successful lookup is served from the cache.
const DefaultTTL = time.Hour

// KeyPrefix namespaces lookup entries.
const KeyPrefix = "region_"

// Store is a TTL cache of successful lookup results.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the result stored under key if it is younger than the TTL.
	Get(ctx context.Context, key string) (models.LookupResult, bool)

	// Put stores result under key. Failures are never stored.
	Put(ctx context.Context, key string, result models.LookupResult)
}

// Key builds the cache key for an already-normalized identifier.
// Case is preserved.
func Key(identifier string) string {
	return KeyPrefix + identifier
}

// entry holds a cached result with its insertion timestamp.
type entry struct {
	Result     models.LookupResult `json:"result"`
	InsertedAt time.Time           `json:"insertedAt"`
}

// fresh reports whether e is still servable at now.
func (e entry) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.InsertedAt) < ttl
}
