package attrcache

import (
	"context"
	"fmt"

	"github.com/goforj/attrcache/cachecore"
)

// NewStore returns a built-in store for cfg.Driver. Only the memory and null
// drivers are built in; the others are constructed from their driver
// packages and an unknown driver yields a store that fails every call.
//
// Example: select driver explicitly
//
//	ctx := context.Background()
//	store := attrcache.NewStore(ctx, attrcache.StoreConfig{Driver: attrcache.DriverMemory})
//	fmt.Println(store.Driver()) // memory
func NewStore(_ context.Context, cfg StoreConfig) cachecore.Store {
	cfg = cfg.withDefaults()
	switch cfg.Driver {
	case DriverMemory:
		cache := cfg.memory
		if cache == nil {
			cache = NewMemoryCache(cfg.MemoryCleanupInterval)
		}
		return newSharedMemoryStore(cache, cfg.Prefix)
	case DriverNull:
		return newNullStore()
	default:
		return &errorStore{
			driver: cfg.Driver,
			err:    fmt.Errorf("attrcache: driver %q is not built in; construct it from its driver package", cfg.Driver),
		}
	}
}

// NewMemoryStore is a convenience for an in-process store.
//
// Example: memory backend
//
//	ctx := context.Background()
//	backend := attrcache.NewStoreBackend(attrcache.NewMemoryStore(ctx))
//	fmt.Println(backend.Driver()) // memory
func NewMemoryStore(ctx context.Context, opts ...StoreOption) cachecore.Store {
	cfg := StoreConfig{Driver: DriverMemory}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return NewStore(ctx, cfg)
}

// NewNullStore returns a store that never retains values.
func NewNullStore(ctx context.Context) cachecore.Store {
	return NewStore(ctx, StoreConfig{Driver: DriverNull})
}
