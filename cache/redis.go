package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/use-agent/regionscope/models"
)

// Redis is a Store backed by a Redis server. Entries are JSON documents
// carrying their insertion time; the key expiry is set to the TTL and the
// age is checked again on read.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedis wraps an existing client. A non-positive ttl uses DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

// DialRedis parses url, connects and pings the server.
func DialRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, ttl), nil
}

// Get retrieves a cached result. Redis errors are logged and reported as a
// miss so a cache outage never fails a lookup.
func (r *Redis) Get(ctx context.Context, key string) (models.LookupResult, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis cache get failed", "key", key, "error", err)
		}
		return models.LookupResult{}, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		slog.Warn("redis cache entry is corrupt", "key", key, "error", err)
		return models.LookupResult{}, false
	}
	if !e.fresh(r.now(), r.ttl) {
		return models.LookupResult{}, false
	}
	return e.Result, true
}

// Put stores a successful result with the TTL as key expiry.
func (r *Redis) Put(ctx context.Context, key string, result models.LookupResult) {
	if !result.Success {
		return
	}

	b, err := json.Marshal(entry{Result: result, InsertedAt: r.now()})
	if err != nil {
		slog.Warn("redis cache marshal failed", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, key, b, r.ttl).Err(); err != nil {
		slog.Warn("redis cache put failed", "key", key, "error", err)
	}
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
