package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherNames(t *testing.T, m *PrometheusMetrics) map[string]bool {
	t.Helper()
	families, err := m.registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestPrometheusMetrics_CounterRegistrationAndNaming(t *testing.T) {
	m := NewPrometheus("filehandler")

	m.IncrementCounter("jobs.processed", map[string]string{"kind": "archive"})
	m.IncrementCounter("jobs.processed", map[string]string{"kind": "file"})

	names := gatherNames(t, m)
	assert.True(t, names["filehandler_jobs_processed"])
}

func TestPrometheusMetrics_CounterValue(t *testing.T) {
	m := NewPrometheus("svc")

	for i := 0; i < 3; i++ {
		m.IncrementCounter("queue.enqueued", nil)
	}

	families, err := m.registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Len(t, families[0].GetMetric(), 1)
	assert.Equal(t, float64(3), families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestPrometheusMetrics_HistogramAndGauge(t *testing.T) {
	m := NewPrometheus("svc")

	m.RecordHistogram("extract.duration_seconds", 0.42, map[string]string{"status": "done"})
	m.SetGauge("queue.depth", 7, nil)

	names := gatherNames(t, m)
	assert.True(t, names["svc_extract_duration_seconds"])
	assert.True(t, names["svc_queue_depth"])
}

func TestPrometheusMetrics_InconsistentTagsDoNotPanic(t *testing.T) {
	m := NewPrometheus("svc")

	m.IncrementCounter("jobs.failed", map[string]string{"reason": "open"})

	// Later call with a different tag set must not panic; unknown tags are
	// dropped and missing ones default to empty.
	assert.NotPanics(t, func() {
		m.IncrementCounter("jobs.failed", map[string]string{"other": "x"})
		m.IncrementCounter("jobs.failed", nil)
	})
}

func TestPrometheusMetrics_HandlerServesRegistry(t *testing.T) {
	m := NewPrometheus("svc")
	assert.NotNil(t, m.Handler())
}
