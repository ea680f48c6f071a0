package loader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts retrieval outcomes and fallback usage. A nil *Metrics is a
// valid no-op receiver so callers without a registry skip instrumentation.
type Metrics struct {
	fetchAttempts *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	fetchDuration prometheus.Histogram
}

// NewMetrics registers the loader collectors on reg. Passing nil returns a
// no-op Metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragingest",
			Subsystem: "loader",
			Name:      "fetch_attempts_total",
			Help:      "URL load attempts by terminal outcome.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragingest",
			Subsystem: "loader",
			Name:      "fallbacks_total",
			Help:      "Fallback strategy attempts by strategy name.",
		}, []string{"strategy"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ragingest",
			Subsystem: "loader",
			Name:      "fetch_duration_seconds",
			Help:      "Wall time of complete URL loads including fallbacks.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	reg.MustRegister(m.fetchAttempts, m.fallbacks, m.fetchDuration)
	return m
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeFallback(strategy string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(strategy).Inc()
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}
