package attrcache

import (
	"context"
	"time"

	"github.com/goforj/attrcache/cachecore"
)

// nullStore never retains anything; every attribute is recomputed.
type nullStore struct{}

func newNullStore() cachecore.Store { return &nullStore{} }

func (s *nullStore) Driver() cachecore.Driver { return cachecore.DriverNull }

func (s *nullStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *nullStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (s *nullStore) Delete(context.Context, string) error { return nil }

func (s *nullStore) DeleteMany(context.Context, ...string) error { return nil }

func (s *nullStore) Flush(context.Context) error { return nil }
