package observe

import (
	"context"
	"time"

	"github.com/goforj/attrcache"
	"github.com/goforj/attrcache/cachecore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goforj/attrcache"

// Tracer emits one span per backend operation. Spans are recorded after the
// fact with the operation's measured start and end.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer uses tracer, or the global provider's tracer when nil.
func NewTracer(tracer trace.Tracer) *Tracer {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Tracer{tracer: tracer}
}

// OnCacheOp implements attrcache.Observer.
func (t *Tracer) OnCacheOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver cachecore.Driver) {
	end := time.Now()
	_, span := t.tracer.Start(ctx, "attrcache."+op,
		trace.WithTimestamp(end.Add(-dur)),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Bool("cache.hit", hit),
			attribute.String("cache.driver", string(driver)),
		),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(end))
}

var _ attrcache.Observer = (*Tracer)(nil)
