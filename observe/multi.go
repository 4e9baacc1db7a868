package observe

import (
	"context"
	"time"

	"github.com/goforj/attrcache"
	"github.com/goforj/attrcache/cachecore"
)

// Multi forwards each event to every non-nil observer in order.
type Multi []attrcache.Observer

// OnCacheOp implements attrcache.Observer.
func (m Multi) OnCacheOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver cachecore.Driver) {
	for _, o := range m {
		if o != nil {
			o.OnCacheOp(ctx, op, key, hit, err, dur, driver)
		}
	}
}

var _ attrcache.Observer = Multi(nil)
