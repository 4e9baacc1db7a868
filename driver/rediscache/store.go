package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/goforj/attrcache/cachecore"
	"github.com/redis/go-redis/v9"
)

const flushScanCount = 200

var errNoClient = errors.New("redis cache client unavailable")

// Client captures the subset of redis.Client used by the store.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Config configures a Redis-backed cache store.
type Config struct {
	cachecore.BaseConfig
	Client Client
}

type store struct {
	client Client
	prefix string
}

// New builds a Redis-backed cachecore.Store.
//
// Defaults:
// - Prefix: "app" when empty
// - Client: nil allowed (operations return errors until a client is provided)
//
// A ttl <= 0 stores the key without expiry.
func New(cfg Config) cachecore.Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = cachecore.DefaultPrefix
	}
	return &store{
		client: cfg.Client,
		prefix: prefix,
	}
}

func (s *store) Driver() cachecore.Driver {
	return cachecore.DriverRedis
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, errNoClient
	}
	value, err := s.client.Get(ctx, s.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.client == nil {
		return errNoClient
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.cacheKey(key), value, ttl).Err()
}

func (s *store) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return errNoClient
	}
	return s.client.Del(ctx, s.cacheKey(key)).Err()
}

func (s *store) DeleteMany(ctx context.Context, keys ...string) error {
	if s.client == nil {
		return errNoClient
	}
	if len(keys) == 0 {
		return nil
	}
	cacheKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		cacheKeys = append(cacheKeys, s.cacheKey(key))
	}
	return s.client.Del(ctx, cacheKeys...).Err()
}

func (s *store) Flush(ctx context.Context) error {
	if s.client == nil {
		return errNoClient
	}
	pattern := s.cacheKey("*")
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, flushScanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *store) cacheKey(key string) string {
	return s.prefix + ":" + key
}
