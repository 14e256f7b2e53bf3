package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks order placement.
type CheckoutMetrics struct {
	duration  prometheus.Histogram
	attempts  *prometheus.CounterVec
	conflicts prometheus.Counter
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_checkout_duration_seconds",
		Help:    "Duration of order placement transactions.",
		Buckets: prometheus.DefBuckets,
	})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_total",
		Help: "Order placement attempts by outcome code.",
	}, []string{"code"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_stock_conflicts_total",
		Help: "Conditional stock decrements that matched no row.",
	})
	reg.MustRegister(duration, attempts, conflicts)
	return &CheckoutMetrics{duration: duration, attempts: attempts, conflicts: conflicts}
}

// ObserveCheckout records one PlaceOrder call.
func (m *CheckoutMetrics) ObserveCheckout(elapsed time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	m.attempts.WithLabelValues(outcome(err)).Inc()
}

// IncStockConflict counts a lost race on a stock decrement.
func (m *CheckoutMetrics) IncStockConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}
