package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "partnerdash"

// Metrics holds the Prometheus metrics for the usage tracker and its API.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Capture metrics
	EntriesRecorded *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	ClickBuckets    prometheus.Gauge
	ActiveSessions  prometheus.Gauge

	// Log store metrics
	LogEntries   prometheus.Gauge
	LogEvictions prometheus.Counter
	StoreErrors  *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
}

// New registers all metrics with reg. Pass prometheus.NewRegistry() in tests
// to avoid duplicate registration against the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EntriesRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "entries_recorded_total",
			Help:      "Usage log entries recorded, by action.",
		}, []string{"action"}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "events_dropped_total",
			Help:      "Interaction events dropped before recording, by reason.",
		}, []string{"reason"}),
		ClickBuckets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "click_buckets",
			Help:      "Live click buckets held by the spatial aggregator.",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "active_sessions",
			Help:      "Client browsing sessions with a live tracker.",
		}),
		LogEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "entries",
			Help:      "Entries retained in the persisted usage log.",
		}),
		LogEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "evictions_total",
			Help:      "Entries discarded by the retention cap.",
		}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "errors_total",
			Help:      "Log store failures, by operation.",
		}, []string{"op"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) RecordEntry(action string) {
	if m == nil {
		return
	}
	m.EntriesRecorded.WithLabelValues(action).Inc()
}

func (m *Metrics) Drop(reason string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetClickBuckets(n int) {
	if m == nil {
		return
	}
	m.ClickBuckets.Set(float64(n))
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) SetLogEntries(n int) {
	if m == nil {
		return
	}
	m.LogEntries.Set(float64(n))
}

func (m *Metrics) Evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LogEvictions.Add(float64(n))
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}
