// Package metrics exposes the Prometheus collectors of the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels of the session counters.
const (
	LoginSuccess   = "success"
	LoginRejected  = "rejected"
	LoginThrottled = "throttled"

	RefreshRotated  = "rotated"
	RefreshInvalid  = "invalid"
	RefreshMismatch = "mismatch"
	RefreshReuse    = "reuse"
)

type Metrics struct {
	logins       *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	logouts      prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialnet",
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialnet",
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Refresh attempts by outcome.",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "socialnet",
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Refresh tokens removed by logout.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialnet",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "socialnet",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.logins, m.refreshes, m.logouts, m.httpRequests, m.httpDuration)
	return m
}

// The recording methods are no-ops on a nil *Metrics so that components can
// run without instrumentation in tests.

func (m *Metrics) Login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Refresh(outcome string) {
	if m != nil {
		m.refreshes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Logout() {
	if m != nil {
		m.logouts.Inc()
	}
}

func (m *Metrics) HTTPRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
