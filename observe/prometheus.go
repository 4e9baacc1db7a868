package observe

import (
	"context"
	"time"

	"github.com/goforj/attrcache"
	"github.com/goforj/attrcache/cachecore"
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
	ResultOK    = "ok"
)

// Prometheus records backend operations as counters and latency histograms.
type Prometheus struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheus registers the collectors on reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if namespace == "" {
		namespace = "attrcache"
	}
	p := &Prometheus{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_operations_total",
			Help:      "Total number of attribute cache backend operations",
		}, []string{"op", "result", "driver"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_operation_duration_seconds",
			Help:      "Duration of attribute cache backend operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "driver"}),
	}
	if err := reg.Register(p.ops); err != nil {
		return nil, err
	}
	if err := reg.Register(p.duration); err != nil {
		return nil, err
	}
	return p, nil
}

// OnCacheOp implements attrcache.Observer.
func (p *Prometheus) OnCacheOp(_ context.Context, op string, _ string, hit bool, err error, dur time.Duration, driver cachecore.Driver) {
	p.ops.WithLabelValues(op, result(op, hit, err), string(driver)).Inc()
	p.duration.WithLabelValues(op, string(driver)).Observe(dur.Seconds())
}

func result(op string, hit bool, err error) string {
	switch {
	case err != nil:
		return ResultError
	case op != attrcache.OpFetch:
		return ResultOK
	case hit:
		return ResultHit
	default:
		return ResultMiss
	}
}

var _ attrcache.Observer = (*Prometheus)(nil)
