// Package metrics holds the Prometheus collectors for login and token checks.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Result labels.
const (
	ResultOK                 = "ok"
	ResultInvalidRequest     = "invalid_request"
	ResultInvalidCredentials = "invalid_credentials"
	ResultRateLimited        = "rate_limited"
	ResultMalformed          = "malformed"
	ResultInvalidSignature   = "invalid_signature"
	ResultExpired            = "expired"
	ResultUnknownSubject     = "unknown_subject"
	ResultError              = "error"
)

// Auth counts login attempts and token verifications. A nil *Auth records nothing.
type Auth struct {
	Logins        *prometheus.CounterVec
	Verifications *prometheus.CounterVec
}

// NewAuth creates the collectors and registers them with reg.
// Panics if registration fails (following prometheus convention).
func NewAuth(reg prometheus.Registerer) *Auth {
	m := &Auth{
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		Verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_token_verifications_total",
				Help: "Total number of token verifications by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.Logins, m.Verifications)
	return m
}

// Login records a login attempt.
func (m *Auth) Login(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// Verification records a token verification.
func (m *Auth) Verification(result string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(result).Inc()
}
