package natscache

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"github.com/goforj/attrcache/cachecore"
	"github.com/nats-io/nats.go"
)

const envelopeHeaderLen = 12

var (
	envelopeMagic = []byte("ACV1")
	errNoKeyValue = errors.New("nats cache key-value unavailable")
)

// KeyValue captures the subset of nats.KeyValue used by the store.
type KeyValue interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Delete(key string, opts ...nats.DeleteOpt) error
	Purge(key string, opts ...nats.DeleteOpt) error
	ListKeys(opts ...nats.WatchOpt) (nats.KeyLister, error)
}

// Config configures a NATS JetStream KeyValue-backed cache store.
type Config struct {
	cachecore.BaseConfig
	KeyValue KeyValue
	// BucketTTL stores raw values and leaves expiry to the bucket's MaxAge.
	// Per-entry ttl is ignored in that mode.
	BucketTTL bool
}

type store struct {
	kv          KeyValue
	scopePrefix string
	bucketTTL   bool
}

// New builds a NATS-backed cachecore.Store.
//
// Defaults:
// - Prefix: "app" when empty
// - BucketTTL: false (per-entry expiry kept in a value envelope)
// - KeyValue: nil allowed (operations return errors until one is provided)
//
// Example:
//
//	js, _ := nc.JetStream()
//	kv, _ := js.CreateKeyValue(&nats.KeyValueConfig{Bucket: "attrcache"})
//	store := natscache.New(natscache.Config{KeyValue: kv})
func New(cfg Config) cachecore.Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = cachecore.DefaultPrefix
	}
	return &store{
		kv:          cfg.KeyValue,
		scopePrefix: "p." + encodeKeyPart(prefix) + ".k.",
		bucketTTL:   cfg.BucketTTL,
	}
}

func (s *store) Driver() cachecore.Driver { return cachecore.DriverNATS }

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.kv == nil {
		return nil, false, errNoKeyValue
	}
	cacheKey := s.cacheKey(key)
	entry, err := s.kv.Get(cacheKey)
	if isMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Operation() == nats.KeyValueDelete || entry.Operation() == nats.KeyValuePurge {
		return nil, false, nil
	}
	if s.bucketTTL {
		return cachecore.CloneBytes(entry.Value()), true, nil
	}
	value, expiresAt, ok := decodeEnvelope(entry.Value())
	if !ok {
		// Written by something else; not ours to serve.
		return nil, false, nil
	}
	if expiresAt > 0 && time.Now().UnixMilli() > expiresAt {
		_ = s.kv.Purge(cacheKey)
		return nil, false, nil
	}
	return cachecore.CloneBytes(value), true, nil
}

func (s *store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.kv == nil {
		return errNoKeyValue
	}
	body := cachecore.CloneBytes(value)
	if !s.bucketTTL {
		body = encodeEnvelope(value, ttl, time.Now())
	}
	_, err := s.kv.Put(s.cacheKey(key), body)
	return err
}

func (s *store) Delete(_ context.Context, key string) error {
	if s.kv == nil {
		return errNoKeyValue
	}
	err := s.kv.Delete(s.cacheKey(key))
	if isMiss(err) {
		return nil
	}
	return err
}

func (s *store) DeleteMany(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *store) Flush(_ context.Context) error {
	if s.kv == nil {
		return errNoKeyValue
	}
	lister, err := s.kv.ListKeys(nats.IgnoreDeletes())
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}
		return err
	}
	defer func() { _ = lister.Stop() }()

	for key := range lister.Keys() {
		if !strings.HasPrefix(key, s.scopePrefix) {
			continue
		}
		if err := s.kv.Purge(key); err != nil && !isMiss(err) {
			return err
		}
	}
	return nil
}

// cacheKey base64-encodes the key since NATS KV keys reject ':' and spaces.
func (s *store) cacheKey(key string) string {
	return s.scopePrefix + encodeKeyPart(key)
}

// encodeEnvelope prefixes value with a magic marker and its expiry in unix
// milliseconds; 0 means the entry never expires.
func encodeEnvelope(value []byte, ttl time.Duration, now time.Time) []byte {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixMilli()
	}
	body := make([]byte, envelopeHeaderLen+len(value))
	copy(body[:4], envelopeMagic)
	binary.BigEndian.PutUint64(body[4:envelopeHeaderLen], uint64(expiresAt))
	copy(body[envelopeHeaderLen:], value)
	return body
}

func decodeEnvelope(body []byte) (value []byte, expiresAt int64, ok bool) {
	if len(body) < envelopeHeaderLen || !bytes.Equal(body[:4], envelopeMagic) {
		return nil, 0, false
	}
	return body[envelopeHeaderLen:], int64(binary.BigEndian.Uint64(body[4:envelopeHeaderLen])), true
}

func isMiss(err error) bool {
	return errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted)
}

func encodeKeyPart(part string) string {
	if part == "" {
		return "_"
	}
	return base64.RawURLEncoding.EncodeToString([]byte(part))
}
