// Package cachefake provides an in-memory attrcache.Backend that records
// every operation for assertions.
package cachefake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goforj/attrcache"
	"github.com/goforj/attrcache/cachecore"
)

// Op identifies a backend operation for assertions.
type Op string

const (
	OpFetch   Op = "fetch"
	OpHit     Op = "hit"
	OpCompute Op = "compute"
	OpDelete  Op = "delete"
)

// Fake exposes a deterministic in-memory backend plus assertion helpers for
// tests. It wraps the memory store so no external services are needed.
type Fake struct {
	store   cachecore.Store
	backend *attrcache.StoreBackend
	counts  map[Op]map[string]int
	mu      sync.Mutex
}

// New creates a Fake using an in-memory store. opts are applied to the
// wrapped StoreBackend after the fake's own observer, so a caller-supplied
// WithObserver replaces the counting of fetch hits.
func New(opts ...attrcache.BackendOption) *Fake {
	f := &Fake{
		store:  attrcache.NewMemoryStore(context.Background()),
		counts: make(map[Op]map[string]int),
	}
	all := append([]attrcache.BackendOption{attrcache.WithObserver(attrcache.ObserverFunc(f.observe))}, opts...)
	f.backend = attrcache.NewStoreBackend(f.store, all...)
	return f
}

// Fetch implements attrcache.Backend.
func (f *Fake) Fetch(ctx context.Context, key string, ttl time.Duration, force bool, compute func(context.Context) (any, error)) (any, error) {
	f.record(OpFetch, key)
	if compute == nil {
		return f.backend.Fetch(ctx, key, ttl, force, nil)
	}
	return f.backend.Fetch(ctx, key, ttl, force, func(ctx context.Context) (any, error) {
		f.record(OpCompute, key)
		return compute(ctx)
	})
}

// Delete implements attrcache.Backend.
func (f *Fake) Delete(ctx context.Context, key string) error {
	f.record(OpDelete, key)
	return f.backend.Delete(ctx, key)
}

// Store returns the underlying byte store.
func (f *Fake) Store() cachecore.Store { return f.store }

// Has reports whether key currently holds a value.
func (f *Fake) Has(ctx context.Context, key string) bool {
	_, ok, err := f.store.Get(ctx, key)
	return err == nil && ok
}

// Reset clears recorded counts.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[Op]map[string]int)
}

// AssertCalled verifies key was touched by op the expected number of times.
func (f *Fake) AssertCalled(t *testing.T, op Op, key string, times int) {
	t.Helper()
	if got := f.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures key was never touched by op.
func (f *Fake) AssertNotCalled(t *testing.T, op Op, key string) {
	t.Helper()
	if got := f.Count(op, key); got != 0 {
		t.Fatalf("expected %s %q not called, got %d", op, key, got)
	}
}

// AssertTotal ensures the total call count for an op matches times.
func (f *Fake) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := f.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

// Count returns calls for op+key.
func (f *Fake) Count(op Op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[op][key]
}

// Total returns total calls for an op across keys.
func (f *Fake) Total(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int
	for _, v := range f.counts[op] {
		sum += v
	}
	return sum
}

func (f *Fake) observe(_ context.Context, op string, key string, hit bool, err error, _ time.Duration, _ cachecore.Driver) {
	if op == attrcache.OpFetch && hit && err == nil {
		f.record(OpHit, key)
	}
}

func (f *Fake) record(op Op, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		f.counts[op] = make(map[string]int)
	}
	f.counts[op][key]++
}

var _ attrcache.Backend = (*Fake)(nil)
