package attrcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goforj/attrcache/cachecore"
	"golang.org/x/sync/singleflight"
)

// Backend is the fetch-or-compute store policies resolve through.
//
// Contract:
//   - Fetch returns the stored value when present, unexpired and force is
//     false. Otherwise it calls compute, stores the result for ttl (ttl <= 0
//     means no expiry) and returns it.
//   - When compute fails, Fetch returns that error and leaves the entry at key
//     untouched.
//   - Delete is a no-op for absent keys.
//   - Implementations must be safe for concurrent use.
type Backend interface {
	Fetch(ctx context.Context, key string, ttl time.Duration, force bool, compute func(context.Context) (any, error)) (any, error)
	Delete(ctx context.Context, key string) error
}

var errNilCompute = errors.New("attrcache: fetch requires a compute callback")

// BackendOption configures a StoreBackend.
type BackendOption func(*backendConfig)

type backendConfig struct {
	codec         Codec
	observer      Observer
	logger        *slog.Logger
	singleFlight  bool
	compression   CompressionCodec
	maxValueBytes int
	encryptionKey []byte
}

// WithCodec replaces the default JSONCodec.
func WithCodec(codec Codec) BackendOption {
	return func(cfg *backendConfig) {
		cfg.codec = codec
	}
}

// WithObserver attaches an observer to receive operation events.
func WithObserver(o Observer) BackendOption {
	return func(cfg *backendConfig) {
		cfg.observer = o
	}
}

// WithBackendLogger sets the logger for undecodable entries and store errors.
func WithBackendLogger(logger *slog.Logger) BackendOption {
	return func(cfg *backendConfig) {
		cfg.logger = logger
	}
}

// WithSingleFlight collapses concurrent computations for the same key into
// one call. Without it, concurrent misses each run compute. The shared
// compute ignores the cancellation of the caller that started it.
func WithSingleFlight() BackendOption {
	return func(cfg *backendConfig) {
		cfg.singleFlight = true
	}
}

// WithCompression compresses encoded values before they reach the store.
func WithCompression(codec CompressionCodec) BackendOption {
	return func(cfg *backendConfig) {
		cfg.compression = codec
	}
}

// WithMaxValueBytes rejects values larger than n bytes after compression.
// Encryption overhead is not counted.
func WithMaxValueBytes(n int) BackendOption {
	return func(cfg *backendConfig) {
		cfg.maxValueBytes = n
	}
}

// WithEncryptionKey encrypts stored values with AES-GCM. The key must be 16,
// 24 or 32 bytes; any other length makes every operation fail with
// ErrEncryptionKey.
func WithEncryptionKey(key []byte) BackendOption {
	return func(cfg *backendConfig) {
		cfg.encryptionKey = cachecore.CloneBytes(key)
	}
}

// StoreBackend implements Backend on top of a byte-level cachecore.Store.
type StoreBackend struct {
	store    cachecore.Store
	driver   cachecore.Driver
	codec    Codec
	observer Observer
	logger   *slog.Logger
	group    *singleflight.Group
}

// NewStoreBackend wraps store. Values are encoded with the configured codec
// and returned in decoded form on hits and misses alike, so callers see the
// same Go shape either way.
func NewStoreBackend(store cachecore.Store, opts ...BackendOption) *StoreBackend {
	cfg := backendConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.codec == nil {
		cfg.codec = JSONCodec{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.compression == "" {
		cfg.compression = CompressionNone
	}

	// Values are compressed and size-checked before they are sealed, so the
	// limit applies to the compressed payload.
	driver := store.Driver()
	var wrapped cachecore.Store
	sealed, err := newEncryptingStore(store, cfg.encryptionKey)
	if err != nil {
		wrapped = &errorStore{driver: driver, err: err}
	} else {
		wrapped = newShapingStore(sealed, cfg.compression, cfg.maxValueBytes, cfg.logger)
	}

	b := &StoreBackend{
		store:    wrapped,
		driver:   driver,
		codec:    cfg.codec,
		observer: cfg.observer,
		logger:   cfg.logger,
	}
	if cfg.singleFlight {
		b.group = &singleflight.Group{}
	}
	return b
}

// Driver reports the underlying store driver.
func (b *StoreBackend) Driver() cachecore.Driver {
	return b.driver
}

// Fetch implements Backend.
func (b *StoreBackend) Fetch(ctx context.Context, key string, ttl time.Duration, force bool, compute func(context.Context) (any, error)) (any, error) {
	start := time.Now()
	if compute == nil {
		b.observe(ctx, OpFetch, key, false, errNilCompute, start)
		return nil, errNilCompute
	}
	if !force {
		body, ok, err := b.store.Get(ctx, key)
		if err != nil {
			err = fmt.Errorf("attrcache: read %s: %w", key, err)
			b.observe(ctx, OpFetch, key, false, err, start)
			return nil, err
		}
		if ok {
			value, err := b.codec.Decode(body)
			if err == nil {
				b.observe(ctx, OpFetch, key, true, nil, start)
				return value, nil
			}
			b.logger.WarnContext(ctx, "attrcache: discarding undecodable entry", "key", key, "error", err)
		}
	}

	body, err := b.load(ctx, key, ttl, compute)
	if err != nil {
		b.observe(ctx, OpFetch, key, false, err, start)
		return nil, err
	}
	value, err := b.codec.Decode(body)
	if err != nil {
		err = fmt.Errorf("attrcache: decode %s: %w", key, err)
	}
	b.observe(ctx, OpFetch, key, false, err, start)
	return value, err
}

// load computes and stores the encoded value. With single flight, concurrent
// callers share one compute that runs detached from any caller's
// cancellation; each caller still stops waiting when its own ctx is done.
// Callers decode the shared bytes separately, so results never alias.
func (b *StoreBackend) load(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) ([]byte, error) {
	if b.group == nil {
		return b.computeAndStore(ctx, key, ttl, compute)
	}
	detached := context.WithoutCancel(ctx)
	ch := b.group.DoChan(key, func() (any, error) {
		return b.computeAndStore(detached, key, ttl, compute)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *StoreBackend) computeAndStore(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) ([]byte, error) {
	start := time.Now()
	value, err := compute(ctx)
	b.observe(ctx, OpCompute, key, false, err, start)
	if err != nil {
		return nil, err
	}
	body, err := b.codec.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("attrcache: encode %s: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := b.store.Set(ctx, key, body, ttl); err != nil {
		return nil, fmt.Errorf("attrcache: write %s: %w", key, err)
	}
	return body, nil
}

// Delete implements Backend.
func (b *StoreBackend) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := b.store.Delete(ctx, key)
	b.observe(ctx, OpDelete, key, err == nil, err, start)
	return err
}

func (b *StoreBackend) observe(ctx context.Context, op, key string, hit bool, err error, start time.Time) {
	if b.observer == nil {
		return
	}
	b.observer.OnCacheOp(ctx, op, key, hit, err, time.Since(start), b.driver)
}

var _ Backend = (*StoreBackend)(nil)
