package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Metrics
var (
	// SessionTransitionsTotal tracks session state changes by operation and resulting phase
	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipedeck_session_transitions_total",
			Help: "Session state transitions by operation and resulting phase",
		},
		[]string{"operation", "phase"},
	)

	// SessionFailuresTotal tracks recovered failures by operation and outcome
	SessionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipedeck_session_failures_total",
			Help: "Recovered session failures by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// SessionAuthenticated is 1 while the console holds an authenticated session
	SessionAuthenticated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipedeck_session_authenticated",
			Help: "1 while an authenticated session is held, 0 otherwise",
		},
	)
)

// Identity Service Metrics
var (
	// IdentityRequestsTotal tracks identity service calls by endpoint and status
	IdentityRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipedeck_identity_requests_total",
			Help: "Identity service requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// IdentityRequestDuration tracks identity service latency in seconds
	IdentityRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipedeck_identity_request_duration_seconds",
			Help:    "Identity service request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)
)

// Dashboard Metrics
var (
	// GateDecisionsTotal tracks protected view decisions by action
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipedeck_gate_decisions_total",
			Help: "Protected view gate decisions by action",
		},
		[]string{"action"},
	)
)
