// Package metrics exposes Prometheus counters for operator visibility into
// pipeline runs.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	entriesSeenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqless_pipeline_entries_total",
			Help: "Total number of raw log entries read by the pipeline.",
		},
	)
	entriesEligibleTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqless_pipeline_entries_eligible_total",
			Help: "Total number of log entries that passed the physical-quality and authority gate.",
		},
	)
	malformedInputsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqless_pipeline_malformed_inputs_total",
			Help: "Total number of entries skipped because their SQL could not be tokenized.",
		},
	)
	suspiciousInputsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqless_pipeline_suspicious_inputs_total",
			Help: "Total number of entries skipped because a literal looked like an injection probe.",
		},
	)
	fingerprintCollisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqless_pipeline_fingerprint_collisions_total",
			Help: "Total number of fingerprint collision anomalies detected during grouping.",
		},
	)
	fingerprintsDecidedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqless_pipeline_fingerprints_decided_total",
			Help: "Total number of fingerprint groups scored, by acceptance decision.",
		},
		[]string{"decision"},
	)
	storeSwapsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqless_store_swaps_total",
			Help: "Total number of successful intent-SQL store index swaps.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		entriesSeenTotal,
		entriesEligibleTotal,
		malformedInputsTotal,
		suspiciousInputsTotal,
		fingerprintCollisionsTotal,
		fingerprintsDecidedTotal,
		storeSwapsTotal,
	)
}

func ObserveEntriesSeen(n int)     { entriesSeenTotal.Add(float64(n)) }
func ObserveEntriesEligible(n int) { entriesEligibleTotal.Add(float64(n)) }
func ObserveMalformedInputs(n int) { malformedInputsTotal.Add(float64(n)) }
func ObserveSuspiciousInputs(n int) {
	suspiciousInputsTotal.Add(float64(n))
}
func ObserveFingerprintCollisions(n int) {
	fingerprintCollisionsTotal.Add(float64(n))
}

func ObserveDecision(accepted bool) {
	if accepted {
		fingerprintsDecidedTotal.WithLabelValues("accepted").Inc()
	} else {
		fingerprintsDecidedTotal.WithLabelValues("rejected").Inc()
	}
}

func ObserveStoreSwap() { storeSwapsTotal.Inc() }
