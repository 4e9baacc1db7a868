package attrcache

import (
	"time"

	"github.com/goforj/attrcache/cachecore"
	gocache "github.com/patrickmn/go-cache"
)

const defaultMemoryCleanupInterval = 10 * time.Minute

// StoreConfig controls how a built-in store is constructed. Shared backends
// (redis, SQL, NATS, DynamoDB) live in the driver packages.
type StoreConfig struct {
	Driver Driver

	// Prefix scopes keys so several stores can share one memory cache.
	// Defaults to cachecore.DefaultPrefix.
	Prefix string

	// MemoryCleanupInterval controls how often expired memory entries are swept.
	MemoryCleanupInterval time.Duration

	memory *gocache.Cache
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.Prefix == "" {
		c.Prefix = cachecore.DefaultPrefix
	}
	if c.MemoryCleanupInterval <= 0 {
		c.MemoryCleanupInterval = defaultMemoryCleanupInterval
	}
	return c
}
