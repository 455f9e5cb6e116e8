// Package metrics exposes Prometheus counters for the session core on a
// private registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authcore"

// Rotation outcomes.
const (
	OutcomeOK               = "ok"
	OutcomeInvalidToken     = "invalid_token"
	OutcomeReuseDetected    = "reuse_detected"
	OutcomeRateLimited      = "rate_limited"
	OutcomeStoreUnavailable = "store_unavailable"
)

// Access verification results.
const (
	ResultValid   = "valid"
	ResultExpired = "expired"
	ResultInvalid = "invalid"
)

type Metrics struct {
	registry       *prometheus.Registry
	sessionsIssued prometheus.Counter
	rotations      *prometheus.CounterVec
	logouts        prometheus.Counter
	verifications  *prometheus.CounterVec
	swept          prometheus.Counter
	reuseRevoked   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Token pairs issued at login.",
		}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rotations_total",
			Help:      "Refresh rotations by outcome.",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Logout requests.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_verifications_total",
			Help:      "Access token verifications by result.",
		}, []string{"result"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Expired session rows purged by the sweeper.",
		}),
		reuseRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reuse_revoked_sessions_total",
			Help:      "Sessions revoked after a refresh token replay.",
		}),
	}

	m.registry.MustRegister(
		m.sessionsIssued,
		m.rotations,
		m.logouts,
		m.verifications,
		m.swept,
		m.reuseRevoked,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, o := range []string{OutcomeOK, OutcomeInvalidToken, OutcomeReuseDetected, OutcomeRateLimited, OutcomeStoreUnavailable} {
		m.rotations.WithLabelValues(o)
	}

	return m
}

// Registry returns the private registry, for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterAuditDropped exposes fn as authcore_audit_dropped_total.
func (m *Metrics) RegisterAuditDropped(fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Audit events dropped because the dispatcher buffer was full.",
	}, fn))
}

func (m *Metrics) SessionIssued() {
	if m == nil {
		return
	}
	m.sessionsIssued.Inc()
}

func (m *Metrics) Rotation(outcome string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Logout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}

func (m *Metrics) AccessVerification(result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) Swept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}

// ReuseRevoked counts sessions deleted while containing a replayed token.
func (m *Metrics) ReuseRevoked(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.reuseRevoked.Add(float64(n))
}
