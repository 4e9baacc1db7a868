package attrcache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// StoreOption mutates StoreConfig when constructing a store.
type StoreOption func(StoreConfig) StoreConfig

// WithMemoryCleanupInterval overrides the sweep interval for the memory driver.
func WithMemoryCleanupInterval(interval time.Duration) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.MemoryCleanupInterval = interval
		return cfg
	}
}

// WithPrefix sets the key prefix for the memory driver.
func WithPrefix(prefix string) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.Prefix = prefix
		return cfg
	}
}

// WithSharedMemory makes memory stores built from the same cache share it.
// Each store still sees only its own prefix.
func WithSharedMemory(shared *gocache.Cache) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.memory = shared
		return cfg
	}
}
