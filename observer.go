package attrcache

import (
	"context"
	"time"

	"github.com/goforj/attrcache/cachecore"
)

// Backend operation names reported to observers.
const (
	OpFetch   = "fetch"
	OpCompute = "compute"
	OpDelete  = "delete"
)

// Observer receives events for backend operations.
// It is called from StoreBackend after each operation completes.
type Observer interface {
	OnCacheOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver cachecore.Driver)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver cachecore.Driver)

// OnCacheOp implements Observer.
func (f ObserverFunc) OnCacheOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver cachecore.Driver) {
	if f == nil {
		return
	}
	f(ctx, op, key, hit, err, dur, driver)
}
