package attrcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/goforj/attrcache/cachecore"
)

// shapingStore applies compression and size limits on top of any store.
type shapingStore struct {
	inner cachecore.Store
	codec  CompressionCodec
	max    int
	logger *slog.Logger
}

func newShapingStore(inner cachecore.Store, codec CompressionCodec, max int, logger *slog.Logger) cachecore.Store {
	if codec == CompressionNone && max <= 0 {
		return inner
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &shapingStore{inner: inner, codec: codec, max: max, logger: logger}
}

func (s *shapingStore) Driver() cachecore.Driver { return s.inner.Driver() }

func (s *shapingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return body, ok, err
	}
	decoded, err := decodeValue(body)
	if err != nil {
		// Corrupt or foreign payloads read as misses and are overwritten by
		// the next Set.
		s.logger.WarnContext(ctx, "attrcache: discarding undecodable compressed entry", "key", key, "error", err)
		return nil, false, nil
	}
	return decoded, true, nil
}

func (s *shapingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := encodeValue(s.codec, s.max, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, encoded, ttl)
}

func (s *shapingStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *shapingStore) DeleteMany(ctx context.Context, keys ...string) error {
	return s.inner.DeleteMany(ctx, keys...)
}

func (s *shapingStore) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}
