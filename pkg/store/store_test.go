package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sqless-ai/sqless-engine/pkg/apperrors"
	"github.com/sqless-ai/sqless-engine/pkg/config"
	"github.com/sqless-ai/sqless-engine/pkg/models"
)

func testStoreConfig() config.StoreConfig {
	return config.StoreConfig{MinSimilarity: 0.0001, DefaultTopK: 5}
}

func newTestStore(pairs ...models.IntentSQLPair) *Store {
	s := New(testStoreConfig(), zap.NewNop())
	s.Swap(pairs)
	return s
}

func pairAt(fingerprint, label string, trust float64, lastSeen time.Time) models.IntentSQLPair {
	return models.IntentSQLPair{
		Fingerprint: fingerprint,
		TemplateSQL: "select * from t",
		IntentLabel: label,
		TrustScore:  trust,
		LastSeen:    lastSeen,
	}
}

func TestQuery_EmptyStore(t *testing.T) {
	s := New(testStoreConfig(), zap.NewNop())
	results := s.Query("gmv by day", 5)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestQuery_NoMatchBelowSimilarityFloor(t *testing.T) {
	seen := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(pairAt("fp1", "Aggregates sum of gmv over orders grouped by dt.", 0.9, seen))

	results := s.Query("completely unrelated words", 5)
	assert.Empty(t, results)
}

func TestQuery_RanksBySimilarity(t *testing.T) {
	seen := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(
		pairAt("fp-orders", "Aggregates sum of gmv over orders grouped by dt.", 0.5, seen),
		pairAt("fp-users", "Retrieves user rows from users filtered by region.", 0.5, seen),
	)

	results := s.Query("gmv orders", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "fp-orders", results[0].Fingerprint)
}

func TestQuery_TrustBoostsEqualSimilarity(t *testing.T) {
	seen := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	label := "Aggregates sum of gmv over orders grouped by dt."
	s := newTestStore(
		pairAt("fp-low", label, 0.3, seen),
		pairAt("fp-high", label, 0.9, seen),
	)

	results := s.Query("gmv by day", 5)
	require.Len(t, results, 2)
	assert.Equal(t, "fp-high", results[0].Fingerprint)
	assert.Equal(t, "fp-low", results[1].Fingerprint)
}

func TestQuery_HigherSimilarityBeatsEqualTrust(t *testing.T) {
	seen := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(
		pairAt("fp-close", "Aggregates sum of gmv over orders grouped by dt.", 0.5, seen),
		pairAt("fp-far", "Aggregates count of refunds over refunds.", 0.5, seen),
	)

	results := s.Query("gmv over orders", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "fp-close", results[0].Fingerprint)
}

func TestQuery_TieBreaksByRecencyThenFingerprint(t *testing.T) {
	older := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	label := "Aggregates sum of gmv over orders grouped by dt."

	t.Run("recency wins", func(t *testing.T) {
		s := newTestStore(
			pairAt("fp-a", label, 0.5, older),
			pairAt("fp-b", label, 0.5, newer),
		)
		results := s.Query("gmv", 5)
		require.Len(t, results, 2)
		assert.Equal(t, "fp-b", results[0].Fingerprint)
	})

	t.Run("fingerprint breaks the full tie", func(t *testing.T) {
		s := newTestStore(
			pairAt("fp-z", label, 0.5, newer),
			pairAt("fp-a", label, 0.5, newer),
		)
		results := s.Query("gmv", 5)
		require.Len(t, results, 2)
		assert.Equal(t, "fp-a", results[0].Fingerprint)
	})
}

func TestQuery_TopKLimit(t *testing.T) {
	seen := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	label := "Aggregates sum of gmv over orders grouped by dt."
	s := newTestStore(
		pairAt("fp-1", label, 0.9, seen),
		pairAt("fp-2", label, 0.8, seen),
		pairAt("fp-3", label, 0.7, seen),
	)

	assert.Len(t, s.Query("gmv", 2), 2)
	assert.Len(t, s.Query("gmv", 0), 3, "k=0 falls back to the configured default")
}

func TestGet_ByFingerprint(t *testing.T) {
	seen := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(pairAt("fp-1", "Aggregates sum of gmv over orders.", 0.9, seen))

	pair, err := s.Get("fp-1")
	require.NoError(t, err)
	assert.Equal(t, "fp-1", pair.Fingerprint)

	_, err = s.Get("fp-missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSwap_ReplacesWholeIndex(t *testing.T) {
	seen := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(pairAt("fp-old", "Aggregates sum of gmv over orders.", 0.9, seen))
	require.Equal(t, 1, s.Len())

	s.Swap([]models.IntentSQLPair{
		pairAt("fp-new-1", "Retrieves user rows from users.", 0.5, seen),
		pairAt("fp-new-2", "Aggregates count of refunds over refunds.", 0.5, seen),
	})

	assert.Equal(t, 2, s.Len())
	assert.Empty(t, s.Query("gmv orders", 5), "pairs from the previous index must be gone")
}
