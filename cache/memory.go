package cache

import (
	"context"
	"sync"
	"time"

	"github.com/use-agent/regionscope/models"
)

// Memory is an in-process Store. Expired entries are skipped on read and
// overwritten by the next Put for the same key; nothing is purged in the
// background.
type Memory struct {
	mu    sync.RWMutex
	store map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemory creates a Memory store. A non-positive ttl uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		store: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a cached result if it exists and is younger than the TTL.
func (m *Memory) Get(_ context.Context, key string) (models.LookupResult, bool) {
	m.mu.RLock()
	e, ok := m.store[key]
	m.mu.RUnlock()

	if !ok || !e.fresh(m.now(), m.ttl) {
		return models.LookupResult{}, false
	}
	return e.Result, true
}

// Put stores a successful result, replacing any previous entry.
func (m *Memory) Put(_ context.Context, key string, result models.LookupResult) {
	if !result.Success {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = entry{
		Result:     result,
		InsertedAt: m.now(),
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
