package models

import "time"

// FingerprintStats aggregates all contributing entries for one fingerprint.
// The aggregation is commutative (sum, max, max), so partial aggregates from
// parallel workers can be merged in any order.
type FingerprintStats struct {
	Fingerprint        string    `json:"fingerprint"`
	OccurrenceCount    int       `json:"occurrence_count"`
	MaxAuthorityWeight float64   `json:"max_authority_weight"`
	LastSeen           time.Time `json:"last_seen"`
}

// Merge folds another partial aggregate for the same fingerprint into s.
func (s *FingerprintStats) Merge(other FingerprintStats) {
	s.OccurrenceCount += other.OccurrenceCount
	if other.MaxAuthorityWeight > s.MaxAuthorityWeight {
		s.MaxAuthorityWeight = other.MaxAuthorityWeight
	}
	if other.LastSeen.After(s.LastSeen) {
		s.LastSeen = other.LastSeen
	}
}

// TrustScore is the scored confidence for one fingerprint at scoring time.
// It is not persisted independently of the pair it scores.
type TrustScore struct {
	Value     float64 `json:"value"` // in [0,1]
	Frequency float64 `json:"frequency"`
	Authority float64 `json:"authority"`
	Recency   float64 `json:"recency"`
	Accepted  bool    `json:"accepted"`
}

// IntentSQLPair is the unit stored long-term. Pairs are created only for
// accepted fingerprints and are immutable once stored; a pipeline re-run
// replaces the full set rather than patching individual pairs.
type IntentSQLPair struct {
	Fingerprint string    `json:"fingerprint"`
	TemplateSQL string    `json:"template_sql"`
	IntentLabel string    `json:"intent_label"`
	TrustScore  float64   `json:"trust_score"`
	Tables      []string  `json:"tables"`
	LastSeen    time.Time `json:"last_seen"`
}
