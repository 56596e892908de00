package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics counts checkout session lifecycle transitions.
type SessionMetrics struct {
	started    prometheus.Counter
	heartbeats *prometheus.CounterVec
	completed  *prometheus.CounterVec
	abandoned  prometheus.Counter
	expired    prometheus.Counter
}

// NewSessionMetrics registers lifecycle counters on the provided registerer.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	if reg == nil {
		return &SessionMetrics{}
	}
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_started_total",
		Help: "Checkout sessions created via the start endpoint.",
	})
	heartbeats := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_session_heartbeats_total",
		Help: "Heartbeat calls by outcome (applied or rejected).",
	}, []string{"outcome"})
	completed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_completed_total",
		Help: "Sessions converted, split by whether they were recovered from abandonment.",
	}, []string{"recovered"})
	abandoned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_abandoned_total",
		Help: "Active sessions reclassified as abandoned.",
	})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_expired_total",
		Help: "Abandoned sessions closed out as expired.",
	})
	reg.MustRegister(started, heartbeats, completed, abandoned, expired)
	return &SessionMetrics{
		started:    started,
		heartbeats: heartbeats,
		completed:  completed,
		abandoned:  abandoned,
		expired:    expired,
	}
}

// IncStarted counts a freshly created session.
func (m *SessionMetrics) IncStarted() {
	if m == nil || m.started == nil {
		return
	}
	m.started.Inc()
}

// IncHeartbeat counts a heartbeat by outcome.
func (m *SessionMetrics) IncHeartbeat(outcome string) {
	if m == nil || m.heartbeats == nil {
		return
	}
	m.heartbeats.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCompleted counts a conversion; recovered marks completions of
// previously abandoned sessions.
func (m *SessionMetrics) IncCompleted(recovered bool) {
	if m == nil || m.completed == nil {
		return
	}
	label := "false"
	if recovered {
		label = "true"
	}
	m.completed.WithLabelValues(label).Inc()
}

// IncAbandoned counts a session reclassified by the abandonment job.
func (m *SessionMetrics) IncAbandoned() {
	if m == nil || m.abandoned == nil {
		return
	}
	m.abandoned.Inc()
}

// IncExpired counts a session closed by the expiry job.
func (m *SessionMetrics) IncExpired() {
	if m == nil || m.expired == nil {
		return
	}
	m.expired.Inc()
}
