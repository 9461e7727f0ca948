package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records processing outcomes and retry worker activity.
// A nil receiver disables all recording, so components can be constructed
// without metrics in tests.
type PipelineMetrics struct {
	outcomes     *prometheus.CounterVec
	retryRuns    prometheus.Counter
	retryResults *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastRunUnix  prometheus.Gauge
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_events_total",
		Help: "Processed payment notifications by outcome.",
	}, []string{"outcome"})
	retryRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retry_batches_total",
		Help: "Retry worker batch executions.",
	})
	retryResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Retry attempts by result.",
	}, []string{"result"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "retry_batch_duration_seconds",
		Help:    "Duration of retry worker batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	lastRunUnix := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "retry_last_run_timestamp_seconds",
		Help: "Unix timestamp of the last retry worker run.",
	})
	reg.MustRegister(outcomes, retryRuns, retryResults, runDuration, lastRunUnix)
	return &PipelineMetrics{
		outcomes:     outcomes,
		retryRuns:    retryRuns,
		retryResults: retryResults,
		runDuration:  runDuration,
		lastRunUnix:  lastRunUnix,
	}
}

// IncOutcome counts one processed notification by its tagged outcome.
func (m *PipelineMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

// ObserveRetryRun records one retry batch execution.
func (m *PipelineMetrics) ObserveRetryRun(duration time.Duration) {
	if m == nil || m.retryRuns == nil {
		return
	}
	m.retryRuns.Inc()
	m.runDuration.Observe(duration.Seconds())
	m.lastRunUnix.SetToCurrentTime()
}

// IncRetryResult counts one retry attempt result ("succeeded" or "failed").
func (m *PipelineMetrics) IncRetryResult(result string) {
	if m == nil || m.retryResults == nil {
		return
	}
	m.retryResults.WithLabelValues(result).Inc()
}
