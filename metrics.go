package goAuthClient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the client's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	login          *prometheus.CounterVec
	logout         *prometheus.CounterVec
	selfHeal       prometheus.Counter
	guardDecisions *prometheus.CounterVec
	guardStale     prometheus.Counter
	invalidations  *prometheus.CounterVec
	auditDropped   *prometheus.CounterVec
	loginLatency   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. It returns
// nil when cfg.Enabled is false.
func NewMetrics(cfg MetricsConfig, reg prometheus.Registerer) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	ns := cfg.Namespace

	m := &Metrics{
		login: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "login_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		logout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "logout_total",
			Help:      "Logouts by result of the server call.",
		}, []string{"result"}),
		selfHeal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "storage_self_heal_total",
			Help:      "Half-written credentials cleared from the token store.",
		}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "guard_decisions_total",
			Help:      "Route guard decisions by view.",
		}, []string{"view"}),
		guardStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "guard_stale_total",
			Help:      "Inconsistencies that outlived the guard timeout.",
		}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "session_invalidated_total",
			Help:      "Sessions ended without an explicit logout, by reason.",
		}, []string{"reason"}),
		auditDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "audit_dropped_total",
			Help:      "Audit events that never reached the sink, by reason.",
		}, []string{"reason"}),
		loginLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "login_latency_seconds",
			Help:      "Latency of login requests to the auth API.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.login,
		m.logout,
		m.selfHeal,
		m.guardDecisions,
		m.guardStale,
		m.invalidations,
		m.auditDropped,
		m.loginLatency,
	)
	return m
}

func (m *Metrics) observeLogin(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.login.WithLabelValues(result).Inc()
	if elapsed > 0 {
		m.loginLatency.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeLogout(result string) {
	if m == nil {
		return
	}
	m.logout.WithLabelValues(result).Inc()
}

func (m *Metrics) incSelfHeal() {
	if m == nil {
		return
	}
	m.selfHeal.Inc()
}

func (m *Metrics) observeGuard(view string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(view).Inc()
}

func (m *Metrics) incGuardStale() {
	if m == nil {
		return
	}
	m.guardStale.Inc()
}

func (m *Metrics) incInvalidated(reason string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(reason).Inc()
}

func (m *Metrics) incAuditDropped(reason string) {
	if m == nil {
		return
	}
	m.auditDropped.WithLabelValues(reason).Inc()
}
