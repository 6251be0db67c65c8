package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TurnsTotal.WithLabelValues("why", "ok").Inc()
	m.TurnsTotal.WithLabelValues("why", "ok").Inc()
	m.GuardrailFailures.WithLabelValues("output").Inc()
	m.FallbacksTotal.WithLabelValues("low_grounding").Inc()
	m.ObserveCall("generation", time.Now().Add(-time.Millisecond))
	m.TurnDuration.Observe(0.2)

	if got := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("why", "ok")); got != 2 {
		t.Errorf("turns counter = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.GuardrailFailures.WithLabelValues("output")); got != 1 {
		t.Errorf("guardrail failures = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("low_grounding")); got != 1 {
		t.Errorf("fallbacks = %f, want 1", got)
	}
}

func TestMetricsDoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewMetrics(reg)
}
