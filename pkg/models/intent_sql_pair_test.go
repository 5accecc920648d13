package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStatsMerge(t *testing.T) {
	earlier := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	a := FingerprintStats{Fingerprint: "fp", OccurrenceCount: 3, MaxAuthorityWeight: 0.4, LastSeen: earlier}
	b := FingerprintStats{Fingerprint: "fp", OccurrenceCount: 2, MaxAuthorityWeight: 0.9, LastSeen: later}

	t.Run("sum count, max authority, max timestamp", func(t *testing.T) {
		merged := a
		merged.Merge(b)
		assert.Equal(t, 5, merged.OccurrenceCount)
		assert.InDelta(t, 0.9, merged.MaxAuthorityWeight, 1e-9)
		assert.Equal(t, later, merged.LastSeen)
	})

	t.Run("merge order does not matter", func(t *testing.T) {
		ab := a
		ab.Merge(b)
		ba := b
		ba.Merge(a)
		assert.Equal(t, ab.OccurrenceCount, ba.OccurrenceCount)
		assert.Equal(t, ab.MaxAuthorityWeight, ba.MaxAuthorityWeight)
		assert.Equal(t, ab.LastSeen, ba.LastSeen)
	})
}
