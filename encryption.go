package attrcache

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
	"time"

	"github.com/goforj/attrcache/cachecore"
)

var (
	encryptionMagic = []byte("ENC1")

	ErrEncryptionKey = errors.New("attrcache: encryption key must be 16, 24, or 32 bytes")
	ErrDecryptFailed = errors.New("attrcache: decrypt failed")
)

// encryptingStore seals values with AES-GCM before they reach inner.
type encryptingStore struct {
	inner cachecore.Store
	aead  cipher.AEAD
}

func newEncryptingStore(inner cachecore.Store, key []byte) (cachecore.Store, error) {
	if len(key) == 0 {
		return inner, nil
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrEncryptionKey
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &encryptingStore{inner: inner, aead: aead}, nil
}

func (s *encryptingStore) Driver() cachecore.Driver { return s.inner.Driver() }

func (s *encryptingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return body, ok, err
	}
	plain, err := s.decrypt(body, key)
	if err != nil {
		// Entries sealed under another key (or never sealed) read as misses
		// and are overwritten by the next Set.
		return nil, false, nil
	}
	return plain, true, nil
}

func (s *encryptingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	enc, err := s.encrypt(value, key)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, enc, ttl)
}

func (s *encryptingStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *encryptingStore) DeleteMany(ctx context.Context, keys ...string) error {
	return s.inner.DeleteMany(ctx, keys...)
}

func (s *encryptingStore) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}

// The cache key is bound as additional data, so a ciphertext copied to
// another key fails to open.
func (s *encryptingStore) encrypt(plain []byte, key string) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ct := s.aead.Seal(nil, nonce, plain, []byte(key))
	buf := make([]byte, 0, len(encryptionMagic)+1+len(nonce)+len(ct))
	buf = append(buf, encryptionMagic...)
	buf = append(buf, byte(len(nonce)))
	buf = append(buf, nonce...)
	buf = append(buf, ct...)
	return buf, nil
}

func (s *encryptingStore) decrypt(in []byte, key string) ([]byte, error) {
	if len(in) < len(encryptionMagic)+1 || !bytes.Equal(in[:len(encryptionMagic)], encryptionMagic) {
		return nil, ErrDecryptFailed
	}
	nonceLen := int(in[len(encryptionMagic)])
	offset := len(encryptionMagic) + 1
	if len(in) < offset+nonceLen {
		return nil, ErrDecryptFailed
	}
	plain, err := s.aead.Open(nil, in[offset:offset+nonceLen], in[offset+nonceLen:], []byte(key))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}
