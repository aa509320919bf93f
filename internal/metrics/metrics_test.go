package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		SessionTransitionsTotal,
		SessionFailuresTotal,
		SessionAuthenticated,
		IdentityRequestsTotal,
		IdentityRequestDuration,
		GateDecisionsTotal,
	}

	for _, metric := range metrics {
		desc := make(chan *prometheus.Desc, 1)
		metric.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestCounterMetrics(t *testing.T) {
	tests := []struct {
		name    string
		counter *prometheus.CounterVec
		labels  []string
	}{
		{"transitions", SessionTransitionsTotal, []string{"login", "authenticated"}},
		{"failures", SessionFailuresTotal, []string{"refresh", "invalidated"}},
		{"identity requests", IdentityRequestsTotal, []string{"me", "200"}},
		{"gate decisions", GateDecisionsTotal, []string{"redirect"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := tt.counter.WithLabelValues(tt.labels...)
			before := testutil.ToFloat64(counter)

			counter.Inc()

			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestSessionAuthenticatedGauge(t *testing.T) {
	SessionAuthenticated.Set(1)
	assert.Equal(t, float64(1), testutil.ToFloat64(SessionAuthenticated))

	SessionAuthenticated.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(SessionAuthenticated))
}
