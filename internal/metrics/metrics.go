package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters and histograms for the login flow and its collaborators. All are
// registered on the default registry and served from /metrics.
var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sms_auth",
		Name:      "login_attempts_total",
		Help:      "Credential submissions by outcome.",
	}, []string{"outcome"})

	SessionCommits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sms_auth",
		Name:      "session_commits_total",
		Help:      "Sessions fully established and persisted.",
	})

	SessionInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sms_auth",
		Name:      "session_invalidations_total",
		Help:      "Sessions cleared, by reason (logout, expired, corrupt).",
	}, []string{"reason"})

	FlowCancellations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sms_auth",
		Name:      "flow_cancellations_total",
		Help:      "Login flows dismissed before a session was committed.",
	})

	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sms_auth",
		Name:      "backend_requests_total",
		Help:      "Requests issued to the school backend, by endpoint and status.",
	}, []string{"endpoint", "status"})

	BackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sms_auth",
		Name:      "backend_request_seconds",
		Help:      "School backend round-trip latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
)
