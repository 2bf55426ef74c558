package lookup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/use-agent/regionscope/cache"
	"github.com/use-agent/regionscope/models"
)

// fakeDriver records calls and returns canned results.
type fakeDriver struct {
	mu    sync.Mutex
	calls []string
	fail  bool
	block chan struct{}
}

func (d *fakeDriver) Lookup(_ context.Context, identifier string) models.LookupResult {
	d.mu.Lock()
	d.calls = append(d.calls, identifier)
	d.mu.Unlock()

	if d.block != nil {
		<-d.block
	}
	if d.fail {
		return models.Failed(identifier, models.NewNoResultsError(), time.Now())
	}
	return models.Succeeded(identifier, models.RegionRecord{Nickname: "N-" + identifier, Country: "Italy"}, time.Now())
}

func (d *fakeDriver) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func TestLookup_NormalizedIdentifiersShareCacheEntry(t *testing.T) {
	d := &fakeDriver{}
	svc := NewService(d, cache.NewMemory(time.Hour), Options{})
	ctx := context.Background()

	first := svc.Lookup(ctx, "@abc ")
	if !first.Success || first.Cached {
		t.Fatalf("first lookup = %+v, want uncached success", first)
	}
	if first.Identifier != "abc" {
		t.Errorf("Identifier = %q, want abc", first.Identifier)
	}

	second := svc.Lookup(ctx, "abc")
	if !second.Success || !second.Cached {
		t.Errorf("second lookup = %+v, want cached success", second)
	}
	if got := d.callCount(); got != 1 {
		t.Errorf("driver calls = %d, want 1", got)
	}
}

func TestLookup_FailuresAreNotCached(t *testing.T) {
	d := &fakeDriver{fail: true}
	svc := NewService(d, cache.NewMemory(time.Hour), Options{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res := svc.Lookup(ctx, "ghost")
		if res.Success {
			t.Fatalf("lookup %d succeeded, want failure", i)
		}
		if res.Error != "no results found" {
			t.Errorf("Error = %q, want %q", res.Error, "no results found")
		}
	}
	if got := d.callCount(); got != 2 {
		t.Errorf("driver calls = %d, want 2", got)
	}
}

func TestLookup_EmptyIdentifier(t *testing.T) {
	tests := []string{"", "   ", "@", " @ "}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			d := &fakeDriver{}
			svc := NewService(d, nil, Options{})

			res := svc.Lookup(context.Background(), raw)
			if res.Success || res.Code != models.ErrCodeInvalidInput {
				t.Errorf("Lookup(%q) = %+v, want INVALID_INPUT", raw, res)
			}
			if !res.IsValidationFailure() {
				t.Error("IsValidationFailure() = false, want true")
			}
			if d.callCount() != 0 {
				t.Errorf("driver calls = %d, want 0", d.callCount())
			}
		})
	}
}

func TestLookup_NilStoreAlwaysDrives(t *testing.T) {
	d := &fakeDriver{}
	svc := NewService(d, nil, Options{})

	svc.Lookup(context.Background(), "abc")
	svc.Lookup(context.Background(), "abc")

	if got := d.callCount(); got != 2 {
		t.Errorf("driver calls = %d, want 2", got)
	}
}

func TestLookup_BusyWhenNoSlot(t *testing.T) {
	d := &fakeDriver{block: make(chan struct{})}
	svc := NewService(d, nil, Options{MaxSessions: 1, QueueTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Lookup(ctx, "first")
	}()

	// Wait for the first session to hold the only slot.
	for d.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	res := svc.Lookup(ctx, "second")
	close(d.block)
	wg.Wait()

	if res.Success || res.Code != models.ErrCodeBusy {
		t.Errorf("second lookup = %+v, want BUSY", res)
	}
	if res.Identifier != "second" {
		t.Errorf("Identifier = %q, want second", res.Identifier)
	}
}

func TestLookup_ConcurrentMissesShareSession(t *testing.T) {
	d := &fakeDriver{block: make(chan struct{})}
	svc := NewService(d, nil, Options{})
	ctx := context.Background()

	const n = 4
	results := make([]models.LookupResult, n)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = svc.Lookup(ctx, "abc")
	}()
	for d.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Lookup(ctx, "@abc")
		}(i)
	}
	// Give followers time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(d.block)
	wg.Wait()

	if got := d.callCount(); got != 1 {
		t.Errorf("driver calls = %d, want 1", got)
	}
	for i, r := range results {
		if !r.Success {
			t.Errorf("results[%d] = %+v, want success", i, r)
		}
	}
}

func TestLookupBatch_TooLarge(t *testing.T) {
	d := &fakeDriver{}
	svc := NewService(d, cache.NewMemory(time.Hour), Options{})

	_, err := svc.LookupBatch(context.Background(), []string{"a", "b", "c", "d", "e", "f"})
	if err == nil {
		t.Fatal("LookupBatch(6) error = nil, want BATCH_TOO_LARGE")
	}
	se := models.AsScrapeError(err)
	if se.Code != models.ErrCodeBatchTooLarge {
		t.Errorf("Code = %q, want %q", se.Code, models.ErrCodeBatchTooLarge)
	}
	if !se.IsValidation() {
		t.Error("IsValidation() = false, want true")
	}
	if d.callCount() != 0 {
		t.Errorf("driver calls = %d, want 0", d.callCount())
	}
}

func TestLookupBatch_CeilingCannotBeRaised(t *testing.T) {
	d := &fakeDriver{}
	svc := NewService(d, nil, Options{MaxBatch: 10})

	if got := svc.MaxBatch(); got != MaxBatchSize {
		t.Errorf("MaxBatch() = %d, want %d", got, MaxBatchSize)
	}
	if _, err := svc.LookupBatch(context.Background(), []string{"a", "b", "c", "d", "e", "f"}); err == nil {
		t.Error("LookupBatch(6) with MaxBatch 10 error = nil, want BATCH_TOO_LARGE")
	}
	if d.callCount() != 0 {
		t.Errorf("driver calls = %d, want 0", d.callCount())
	}
}

func TestLookupBatch_PreservesOrder(t *testing.T) {
	d := &fakeDriver{}
	svc := NewService(d, cache.NewMemory(time.Hour), Options{})

	input := []string{"zed", "@amy", "", "bob"}
	results, err := svc.LookupBatch(context.Background(), input)
	if err != nil {
		t.Fatalf("LookupBatch: %v", err)
	}
	if len(results) != len(input) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(input))
	}

	wantIDs := []string{"zed", "amy", "", "bob"}
	for i, want := range wantIDs {
		if results[i].Identifier != want {
			t.Errorf("results[%d].Identifier = %q, want %q", i, results[i].Identifier, want)
		}
	}
	if results[2].Code != models.ErrCodeInvalidInput {
		t.Errorf("results[2].Code = %q, want INVALID_INPUT", results[2].Code)
	}

	wantCalls := []string{"zed", "amy", "bob"}
	if len(d.calls) != len(wantCalls) {
		t.Fatalf("driver calls = %v, want %v", d.calls, wantCalls)
	}
	for i, want := range wantCalls {
		if d.calls[i] != want {
			t.Errorf("calls[%d] = %q, want %q", i, d.calls[i], want)
		}
	}
}

func TestLookupBatch_ExactlyMaxAllowed(t *testing.T) {
	d := &fakeDriver{}
	svc := NewService(d, nil, Options{})

	results, err := svc.LookupBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("LookupBatch(5): %v", err)
	}
	if len(results) != 5 {
		t.Errorf("len(results) = %d, want 5", len(results))
	}
}
