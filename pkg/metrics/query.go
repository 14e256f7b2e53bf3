package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
)

// QueryMetrics records list-query latency and outcomes per entity.
type QueryMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewQueryMetrics registers the query metrics on the provided registerer.
func NewQueryMetrics(reg prometheus.Registerer) *QueryMetrics {
	if reg == nil {
		return &QueryMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_query_duration_seconds",
		Help:    "Duration of list queries in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity", "operation"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_query_total",
		Help: "List queries by outcome code.",
	}, []string{"entity", "operation", "code"})
	reg.MustRegister(duration, total)
	return &QueryMetrics{duration: duration, total: total}
}

// ObserveQuery satisfies the query engine observer hook.
func (m *QueryMetrics) ObserveQuery(entity, operation string, elapsed time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	entity = normalizeLabel(entity)
	m.duration.WithLabelValues(entity, operation).Observe(elapsed.Seconds())
	m.total.WithLabelValues(entity, operation, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(pkgerrors.CodeOf(err))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
