// Package metrics exposes Prometheus metrics for the collector pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "oddscollector"

// Metrics holds the per-provider pipeline counters. All methods are safe
// on a nil receiver so the pipeline can run without metrics wired in
// (tests, tools).
type Metrics struct {
	listingsCollected *prometheus.CounterVec
	fetchAttempts     *prometheus.CounterVec
	fetchFailures     *prometheus.CounterVec
	recordsEnriched   *prometheus.CounterVec
	recordsValid      *prometheus.CounterVec
	recordsPersisted  *prometheus.CounterVec
	recordsMerged     prometheus.Counter
	flushes           *prometheus.CounterVec
	flushErrors       *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	labels := []string{"provider"}
	return &Metrics{
		listingsCollected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "listings_collected_total",
			Help: "Candidate listings discovered during listing scans.",
		}, labels),
		fetchAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "detail_fetch_attempts_total",
			Help: "Detail fetch attempts, including retries.",
		}, labels),
		fetchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "detail_fetch_failures_total",
			Help: "Detail fetches that exhausted their retry budget.",
		}, labels),
		recordsEnriched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_enriched_total",
			Help: "Records that received a detail payload.",
		}, labels),
		recordsValid: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_valid_total",
			Help: "Reduced records that passed the validity filter.",
		}, labels),
		recordsPersisted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_persisted_total",
			Help: "Documents written to the raw collection.",
		}, labels),
		recordsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_merged_total",
			Help: "Normalized documents merged and upserted per cycle.",
		}),
		flushes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "persist_flushes_total",
			Help: "Bulk replace flushes performed.",
		}, labels),
		flushErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "persist_flush_errors_total",
			Help: "Bulk replace flushes that failed and lost their batch.",
		}, labels),
		runDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help:    "Duration of one full provider collection run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, labels),
	}
}

func (m *Metrics) ListingsCollected(provider string, n int) {
	if m == nil {
		return
	}
	m.listingsCollected.WithLabelValues(provider).Add(float64(n))
}

func (m *Metrics) FetchAttempt(provider string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(provider).Inc()
}

func (m *Metrics) FetchFailure(provider string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordEnriched(provider string) {
	if m == nil {
		return
	}
	m.recordsEnriched.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordValid(provider string) {
	if m == nil {
		return
	}
	m.recordsValid.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordsPersisted(provider string, n int) {
	if m == nil {
		return
	}
	m.recordsPersisted.WithLabelValues(provider).Add(float64(n))
}

// RecordsMerged counts across the whole cycle: the merge stage runs
// once for all providers, so there is no per-provider label here.
func (m *Metrics) RecordsMerged(n int) {
	if m == nil {
		return
	}
	m.recordsMerged.Add(float64(n))
}

func (m *Metrics) Flush(provider string) {
	if m == nil {
		return
	}
	m.flushes.WithLabelValues(provider).Inc()
}

func (m *Metrics) FlushError(provider string) {
	if m == nil {
		return
	}
	m.flushErrors.WithLabelValues(provider).Inc()
}

func (m *Metrics) ObserveRunDuration(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(provider).Observe(seconds)
}
