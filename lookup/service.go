// Package lookup coordinates cached, rate-bounded region lookups on top of
// the browser driver.
package lookup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/use-agent/regionscope/cache"
	"github.com/use-agent/regionscope/metrics"
	"github.com/use-agent/regionscope/models"
)

// MaxBatchSize is the hard ceiling on identifiers per batch. Options may
// lower it, never raise it.
const MaxBatchSize = 5

// Driver runs one uncached lookup for a normalized identifier.
// *scraper.Driver satisfies it.
type Driver interface {
	Lookup(ctx context.Context, identifier string) models.LookupResult
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	MaxSessions  int           // default: 2
	QueueTimeout time.Duration // default: 60s
	MaxBatch     int           // default and upper bound: MaxBatchSize
}

// Service is the entry point for lookups. It is safe for concurrent use.
type Service struct {
	driver Driver
	store  cache.Store

	sem          *semaphore.Weighted
	group        singleflight.Group
	queueTimeout time.Duration
	maxBatch     int

	now func() time.Time
}

// NewService creates a Service. store may be nil to disable caching.
func NewService(driver Driver, store cache.Store, opts Options) *Service {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 2
	}
	if opts.QueueTimeout <= 0 {
		opts.QueueTimeout = 60 * time.Second
	}
	if opts.MaxBatch <= 0 || opts.MaxBatch > MaxBatchSize {
		opts.MaxBatch = MaxBatchSize
	}
	return &Service{
		driver:       driver,
		store:        store,
		sem:          semaphore.NewWeighted(int64(opts.MaxSessions)),
		queueTimeout: opts.QueueTimeout,
		maxBatch:     opts.MaxBatch,
		now:          time.Now,
	}
}

// MaxBatch returns the configured batch ceiling.
func (s *Service) MaxBatch() int {
	return s.maxBatch
}

// Lookup returns region data for raw, which may carry a leading "@" and
// surrounding whitespace.
//
// Flow:
//
//  1. Normalize      – empty after normalization → INVALID_INPUT failure
//  2. Cache          – fresh hit is returned with Cached set
//  3. De-duplicate   – concurrent misses for one key share a session
//  4. Acquire slot   – wait at most QueueTimeout, else BUSY failure
//  5. Drive          – one browser session
//  6. Store          – successes only
//
// Lookup never returns an error; failures are carried in the result.
func (s *Service) Lookup(ctx context.Context, raw string) models.LookupResult {
	result := s.lookup(ctx, raw)

	outcome := "success"
	if !result.Success {
		outcome = result.Code
	}
	metrics.RecordLookup(outcome)
	return result
}

func (s *Service) lookup(ctx context.Context, raw string) models.LookupResult {
	req, err := models.NewLookupRequest(raw)
	if err != nil {
		return models.Failed(raw, err, s.now())
	}
	key := cache.Key(req.Identifier)

	if s.store != nil {
		cached, ok := s.store.Get(ctx, key)
		metrics.RecordCache(ok)
		if ok {
			slog.Debug("lookup cache hit", "identifier", req.Identifier)
			cached.Cached = true
			return cached
		}
	}

	v, _, shared := s.group.Do(key, func() (any, error) {
		return s.drive(ctx, req.Identifier, key), nil
	})
	if shared {
		slog.Debug("lookup shared an in-flight session", "identifier", req.Identifier)
	}
	return v.(models.LookupResult)
}

// drive runs one browser session under the session limiter and stores a
// successful result.
func (s *Service) drive(ctx context.Context, identifier, key string) models.LookupResult {
	// The wait for a slot is bounded by the queue timeout only; a session,
	// once started, is not cancelled by the caller.
	ctx = context.WithoutCancel(ctx)

	acquireCtx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	err := s.sem.Acquire(acquireCtx, 1)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("no browser session slot", "identifier", identifier, "wait", s.queueTimeout.String())
		}
		return models.Failed(identifier, models.NewBusyError(s.queueTimeout), s.now())
	}
	defer s.sem.Release(1)

	done := metrics.SessionStarted()
	result := s.driver.Lookup(ctx, identifier)
	done()

	if result.Success && s.store != nil {
		s.store.Put(ctx, key, result)
	}
	return result
}

// LookupBatch runs Lookup for each identifier in order, one at a time.
// Batches above the ceiling are rejected before any lookup starts.
func (s *Service) LookupBatch(ctx context.Context, identifiers []string) ([]models.LookupResult, error) {
	if len(identifiers) > s.maxBatch {
		return nil, models.NewBatchTooLargeError(len(identifiers), s.maxBatch)
	}

	results := make([]models.LookupResult, 0, len(identifiers))
	for i, raw := range identifiers {
		slog.Debug("batch lookup", "index", i, "total", len(identifiers), "identifier", raw)
		results = append(results, s.Lookup(ctx, raw))
	}
	return results, nil
}
