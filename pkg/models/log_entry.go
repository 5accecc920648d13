// Package models contains domain types for sqless-engine.
package models

import "time"

// LogEntry is a raw query-log record as read from the log snapshot.
// Entries are immutable once read; the pipeline never writes back to them.
type LogEntry struct {
	RawSQL       string    `json:"raw_sql"`
	Executor     string    `json:"executor"`
	Success      bool      `json:"success"`
	ScannedBytes int64     `json:"scanned_bytes"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// FilteredEntry is a LogEntry that passed the physical-quality and authority
// gate. MaskedSQL is the PII-masked text that all downstream stages consume;
// the raw text never leaves the filter.
type FilteredEntry struct {
	MaskedSQL       string
	Executor        string
	AuthorityWeight float64
	Timestamp       time.Time
}

// AuthorityMap maps an executor identity to an authority weight in [0,1].
// It is externally supplied configuration and read-only during a run.
type AuthorityMap map[string]float64

// Weight returns the authority weight for an executor and whether the
// executor is whitelisted at all.
func (m AuthorityMap) Weight(executor string) (float64, bool) {
	w, ok := m[executor]
	return w, ok
}
