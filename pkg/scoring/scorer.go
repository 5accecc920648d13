// Package scoring computes trust scores for fingerprint groups.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/sqless-ai/sqless-engine/pkg/config"
	"github.com/sqless-ai/sqless-engine/pkg/models"
)

// Scorer combines three normalized signals into a weighted trust score:
//
//   - frequency: occurrence count, saturating at the configured ceiling so a
//     single extremely-repeated fingerprint cannot dominate arbitrarily
//   - authority: the maximum authority weight observed across contributors
//   - recency: exponential decay of the age of the last occurrence against a
//     configured half-life
//
// Scoring is order-independent and reproducible: stats are pre-aggregated per
// fingerprint, and the same stats with the same reference time always yield
// the same score.
type Scorer struct {
	cfg config.ScoringConfig
	now func() time.Time
}

// NewScorer validates the scoring configuration and returns a scorer.
// Invalid configuration is fatal to the run; it must be rejected before any
// store mutation.
func NewScorer(cfg config.ScoringConfig) (*Scorer, error) {
	if cfg.AcceptanceThreshold < 0 || cfg.AcceptanceThreshold > 1 {
		return nil, fmt.Errorf("acceptance threshold %v outside [0,1]", cfg.AcceptanceThreshold)
	}
	if cfg.MinOccurrenceFloor < 1 {
		return nil, fmt.Errorf("min occurrence floor %d below 1", cfg.MinOccurrenceFloor)
	}
	if cfg.FrequencySaturation < 1 {
		return nil, fmt.Errorf("frequency saturation %d below 1", cfg.FrequencySaturation)
	}
	if cfg.RecencyHalfLifeHours <= 0 {
		return nil, fmt.Errorf("recency half-life %v not positive", cfg.RecencyHalfLifeHours)
	}
	if sum := cfg.FrequencyWeight + cfg.AuthorityWeight + cfg.RecencyWeight; math.Abs(sum-1.0) > 1e-9 {
		return nil, fmt.Errorf("signal weights sum to %v, want 1", sum)
	}
	return &Scorer{cfg: cfg, now: time.Now}, nil
}

// WithClock overrides the reference clock. Tests use this to pin "now".
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Score computes the trust score and acceptance decision for one fingerprint
// group. Acceptance requires both the score threshold and the occurrence
// floor: a single high-authority, very-recent occurrence is not corroboration
// enough to seed a long-term template.
func (s *Scorer) Score(stats models.FingerprintStats) models.TrustScore {
	frequency := math.Min(1, float64(stats.OccurrenceCount)/float64(s.cfg.FrequencySaturation))
	authority := clamp01(stats.MaxAuthorityWeight)
	recency := s.recency(stats.LastSeen)

	value := s.cfg.FrequencyWeight*frequency +
		s.cfg.AuthorityWeight*authority +
		s.cfg.RecencyWeight*recency

	return models.TrustScore{
		Value:     value,
		Frequency: frequency,
		Authority: authority,
		Recency:   recency,
		Accepted:  value >= s.cfg.AcceptanceThreshold && stats.OccurrenceCount >= s.cfg.MinOccurrenceFloor,
	}
}

// recency decays from 1.0 at "now" toward 0 with the configured half-life.
// A fingerprint last seen exactly one half-life ago scores 0.5.
func (s *Scorer) recency(lastSeen time.Time) float64 {
	ageHours := s.now().Sub(lastSeen).Hours()
	if ageHours <= 0 {
		return 1.0
	}
	return math.Exp2(-ageHours / s.cfg.RecencyHalfLifeHours)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
