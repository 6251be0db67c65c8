package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	TurnsTotal        *prometheus.CounterVec
	GuardrailFailures *prometheus.CounterVec
	FallbacksTotal    *prometheus.CounterVec
	ExternalCallTime  *prometheus.HistogramVec
	TurnDuration      prometheus.Histogram
}

// NewMetrics creates and registers the collectors. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kidspark",
			Name:      "turns_total",
			Help:      "Handled turns by intent and outcome.",
		}, []string{"intent", "outcome"}),
		GuardrailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kidspark",
			Name:      "guardrail_failures_total",
			Help:      "Guardrail verdict failures by stage.",
		}, []string{"stage"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kidspark",
			Name:      "fallbacks_total",
			Help:      "Deterministic fallback responses by cause.",
		}, []string{"cause"}),
		ExternalCallTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kidspark",
			Name:      "external_call_seconds",
			Help:      "Latency of external calls by target.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"target"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kidspark",
			Name:      "turn_seconds",
			Help:      "End-to-end turn latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
	reg.MustRegister(
		m.TurnsTotal,
		m.GuardrailFailures,
		m.FallbacksTotal,
		m.ExternalCallTime,
		m.TurnDuration,
	)
	return m
}

// ObserveCall records one external call's duration.
func (m *Metrics) ObserveCall(target string, start time.Time) {
	m.ExternalCallTime.WithLabelValues(target).Observe(time.Since(start).Seconds())
}

// ServeMetrics exposes /metrics on addr. Blocks until the listener fails.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
