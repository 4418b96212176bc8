// Package metrics exposes Prometheus metrics for the save pipeline and the
// integrity and transfer projections.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomePassed labels a verdict that let the write through.
const OutcomePassed = "passed"

// SyncMetrics holds all Prometheus metrics of the sync server. A nil
// *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	VerdictsTotal   *prometheus.CounterVec // gophsync_save_verdicts_total{outcome}
	ChainDuration   prometheus.Histogram   // gophsync_save_chain_duration_seconds
	ItemsSavedTotal prometheus.Counter     // gophsync_items_saved_total
	SkippedRows     *prometheus.CounterVec // gophsync_skipped_rows_total{projection}
	PublishFailures prometheus.Counter     // gophsync_event_publish_failures_total
}

// New registers the metrics with registry, or the default registerer when
// registry is nil. Registering twice on the same registry panics.
func New(registry prometheus.Registerer) *SyncMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &SyncMetrics{
		VerdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gophsync_save_verdicts_total",
			Help: "Save verdicts by outcome (passed or conflict type)",
		}, []string{"outcome"}),

		ChainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gophsync_save_chain_duration_seconds",
			Help:    "Time spent evaluating the save rule chain for one item",
			Buckets: prometheus.DefBuckets,
		}),

		ItemsSavedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gophsync_items_saved_total",
			Help: "Items persisted after passing validation",
		}),

		SkippedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gophsync_skipped_rows_total",
			Help: "Stored rows skipped while building a projection",
		}, []string{"projection"}),

		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "gophsync_event_publish_failures_total",
			Help: "Domain events that could not be enqueued",
		}),
	}
}

// RecordVerdict counts one verdict and the time the chain took.
func (m *SyncMetrics) RecordVerdict(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.VerdictsTotal.WithLabelValues(outcome).Inc()
	m.ChainDuration.Observe(durationSeconds)
}

func (m *SyncMetrics) RecordSaved() {
	if m == nil {
		return
	}
	m.ItemsSavedTotal.Inc()
}

func (m *SyncMetrics) RecordSkipped(projection string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SkippedRows.WithLabelValues(projection).Add(float64(n))
}

func (m *SyncMetrics) RecordPublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}
