package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordEntry("click")
		m.Drop("disabled")
		m.Evicted(3)
		m.SetLogEntries(10)
		m.SetClickBuckets(2)
		m.SetActiveSessions(4)
		m.StoreError("append")
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordEntry("click")
	m.RecordEntry("click")
	m.Drop("excluded")
	m.Evicted(5)
	m.Evicted(0)
	m.SetLogEntries(1000)
	m.SetActiveSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EntriesRecorded.WithLabelValues("click")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("excluded")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.LogEvictions))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.LogEntries))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveSessions))
}
