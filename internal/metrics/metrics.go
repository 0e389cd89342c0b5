// Package metrics exposes Prometheus counters for the auth flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registered collectors. One instance is created in
// main and threaded through the auth service.
type Metrics struct {
	LoginAttempts *prometheus.CounterVec
	SessionsIssued prometheus.Counter
}

// New registers the auth collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tma",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		SessionsIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tma",
			Subsystem: "auth",
			Name:      "sessions_issued_total",
			Help:      "Session tokens issued on successful logins.",
		}),
	}
}

// Outcome labels for login_attempts_total.
const (
	OutcomeSuccess         = "success"
	OutcomeRateLimited     = "rate_limited"
	OutcomeUserNotFound    = "user_not_found"
	OutcomeAccountLocked   = "account_locked"
	OutcomeInvalidPassword = "invalid_password"
	OutcomeSystemError     = "system_error"
)
