package cachecore

import (
	"context"
	"time"
)

// Store is the byte-level contract every cache driver implements.
//
// A ttl <= 0 passed to Set means the entry never expires on its own; it lives
// until Delete, DeleteMany or Flush removes it.
type Store interface {
	Driver() Driver
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
}
