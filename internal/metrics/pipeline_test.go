package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.IncOutcome("created")
	m.IncOutcome("created")
	m.IncOutcome("skipped")
	m.IncRetryResult("succeeded")
	m.ObserveRetryRun(120 * time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["payment_events_total"])
	assert.True(t, names["retry_batches_total"])
	assert.True(t, names["retry_attempts_total"])
	assert.True(t, names["retry_batch_duration_seconds"])
	assert.True(t, names["retry_last_run_timestamp_seconds"])
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var m *PipelineMetrics
	m.IncOutcome("created")
	m.IncRetryResult("failed")
	m.ObserveRetryRun(time.Second)

	disabled := NewPipelineMetrics(nil)
	disabled.IncOutcome("updated")
	disabled.ObserveRetryRun(time.Second)
}
