package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqless-ai/sqless-engine/pkg/config"
	"github.com/sqless-ai/sqless-engine/pkg/models"
)

func validScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		FrequencySaturation:  10,
		RecencyHalfLifeHours: 168,
		FrequencyWeight:      0.3,
		AuthorityWeight:      0.5,
		RecencyWeight:        0.2,
		AcceptanceThreshold:  0.6,
		MinOccurrenceFloor:   3,
	}
}

func newTestScorer(t *testing.T, cfg config.ScoringConfig, now time.Time) *Scorer {
	t.Helper()
	scorer, err := NewScorer(cfg)
	require.NoError(t, err)
	return scorer.WithClock(func() time.Time { return now })
}

func TestNewScorer_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.ScoringConfig)
	}{
		{name: "threshold unset", mutate: func(c *config.ScoringConfig) { c.AcceptanceThreshold = -1 }},
		{name: "threshold above one", mutate: func(c *config.ScoringConfig) { c.AcceptanceThreshold = 1.5 }},
		{name: "floor unset", mutate: func(c *config.ScoringConfig) { c.MinOccurrenceFloor = 0 }},
		{name: "saturation below one", mutate: func(c *config.ScoringConfig) { c.FrequencySaturation = 0 }},
		{name: "half-life not positive", mutate: func(c *config.ScoringConfig) { c.RecencyHalfLifeHours = 0 }},
		{name: "weights do not sum to one", mutate: func(c *config.ScoringConfig) { c.FrequencyWeight = 0.9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validScoringConfig()
			tt.mutate(&cfg)
			_, err := NewScorer(cfg)
			assert.Error(t, err)
		})
	}
}

func TestScore_FrequencySaturation(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, validScoringConfig(), now)

	tests := []struct {
		occurrences  int
		wantFreq     float64
	}{
		{occurrences: 9, wantFreq: 0.9},
		{occurrences: 10, wantFreq: 1.0},
		{occurrences: 50, wantFreq: 1.0},
	}

	for _, tt := range tests {
		score := scorer.Score(models.FingerprintStats{
			Fingerprint:        "fp",
			OccurrenceCount:    tt.occurrences,
			MaxAuthorityWeight: 1.0,
			LastSeen:           now,
		})
		assert.InDelta(t, tt.wantFreq, score.Frequency, 1e-9, "occurrences=%d", tt.occurrences)
	}
}

func TestScore_RecencyHalfLife(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, validScoringConfig(), now)

	t.Run("seen now scores full recency", func(t *testing.T) {
		score := scorer.Score(models.FingerprintStats{OccurrenceCount: 5, LastSeen: now})
		assert.InDelta(t, 1.0, score.Recency, 1e-9)
	})

	t.Run("one half-life ago scores half", func(t *testing.T) {
		score := scorer.Score(models.FingerprintStats{OccurrenceCount: 5, LastSeen: now.Add(-168 * time.Hour)})
		assert.InDelta(t, 0.5, score.Recency, 1e-9)
	})

	t.Run("two half-lives ago scores a quarter", func(t *testing.T) {
		score := scorer.Score(models.FingerprintStats{OccurrenceCount: 5, LastSeen: now.Add(-336 * time.Hour)})
		assert.InDelta(t, 0.25, score.Recency, 1e-9)
	})
}

func TestScore_AcceptanceFloor(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, validScoringConfig(), now)

	// Maximal authority and recency cannot compensate for a single
	// occurrence; repetition is required as corroboration.
	score := scorer.Score(models.FingerprintStats{
		Fingerprint:        "fp",
		OccurrenceCount:    1,
		MaxAuthorityWeight: 1.0,
		LastSeen:           now,
	})
	assert.GreaterOrEqual(t, score.Value, 0.6, "score itself clears the threshold")
	assert.False(t, score.Accepted, "floor must still reject it")
}

func TestScore_WeightedSum(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, validScoringConfig(), now)

	score := scorer.Score(models.FingerprintStats{
		Fingerprint:        "fp",
		OccurrenceCount:    5, // frequency 0.5
		MaxAuthorityWeight: 0.8,
		LastSeen:           now, // recency 1.0
	})
	assert.InDelta(t, 0.3*0.5+0.5*0.8+0.2*1.0, score.Value, 1e-9)
	assert.True(t, score.Accepted)
}

func TestScore_Deterministic(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, validScoringConfig(), now)

	stats := models.FingerprintStats{
		Fingerprint:        "fp",
		OccurrenceCount:    7,
		MaxAuthorityWeight: 0.9,
		LastSeen:           now.Add(-24 * time.Hour),
	}
	first := scorer.Score(stats)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, scorer.Score(stats))
	}
}

func TestScore_AuthorityClamped(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scorer := newTestScorer(t, validScoringConfig(), now)

	score := scorer.Score(models.FingerprintStats{OccurrenceCount: 5, MaxAuthorityWeight: 1.7, LastSeen: now})
	assert.InDelta(t, 1.0, score.Authority, 1e-9)
}
