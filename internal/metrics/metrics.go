package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "medportal"
)

var (
	// Guard Metrics
	GuardDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Route guard decisions by guard kind, requested area and outcome.",
	}, []string{"guard", "area", "outcome", "reason"})

	GuardNavigationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_navigations_total",
		Help:      "Corrective navigations issued by the cross-role guard.",
	}, []string{"target", "status"})

	// Session Metrics
	SessionLoadFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_load_failures_total",
		Help:      "Persisted sessions that could not be restored and were treated as signed out.",
	}, []string{"reason"})

	// Auth Metrics
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login and signup attempts by method and result.",
	}, []string{"method", "result"})
)
