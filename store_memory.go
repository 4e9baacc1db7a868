package attrcache

import (
	"context"
	"strings"
	"time"

	"github.com/goforj/attrcache/cachecore"
	gocache "github.com/patrickmn/go-cache"
)

type memoryStore struct {
	cache  *gocache.Cache
	prefix string
}

// NewMemoryCache returns a go-cache instance that several memory stores can
// share through WithSharedMemory.
func NewMemoryCache(cleanupInterval time.Duration) *gocache.Cache {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultMemoryCleanupInterval
	}
	return gocache.New(gocache.NoExpiration, cleanupInterval)
}

func newMemoryStore(cleanupInterval time.Duration) cachecore.Store {
	return newSharedMemoryStore(NewMemoryCache(cleanupInterval), cachecore.DefaultPrefix)
}

func newSharedMemoryStore(cache *gocache.Cache, prefix string) cachecore.Store {
	if prefix == "" {
		prefix = cachecore.DefaultPrefix
	}
	return &memoryStore{cache: cache, prefix: prefix}
}

func (s *memoryStore) Driver() cachecore.Driver {
	return cachecore.DriverMemory
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := s.cache.Get(s.cacheKey(key))
	if !ok {
		return nil, false, nil
	}
	body, ok := item.([]byte)
	if !ok {
		return nil, false, nil
	}
	return cachecore.CloneBytes(body), true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.cache.Set(s.cacheKey(key), cachecore.CloneBytes(value), ttl)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(s.cacheKey(key))
	return nil
}

func (s *memoryStore) DeleteMany(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(s.cacheKey(key))
	}
	return nil
}

// Flush removes only entries under the store prefix.
func (s *memoryStore) Flush(_ context.Context) error {
	scope := s.prefix + ":"
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, scope) {
			s.cache.Delete(key)
		}
	}
	return nil
}

func (s *memoryStore) cacheKey(key string) string {
	return s.prefix + ":" + key
}
