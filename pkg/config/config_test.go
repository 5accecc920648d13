package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
env: test
logs_path: logs.jsonl
authority_map_path: authority.yaml
filter:
  min_scanned_bytes: 1048576
  min_elapsed_ms: 300
scoring:
  frequency_saturation: 10
  recency_half_life_hours: 168
  frequency_weight: 0.3
  authority_weight: 0.5
  recency_weight: 0.2
  acceptance_threshold: 0.6
  min_occurrence_floor: 3
store:
  min_similarity: 0.0001
  default_top_k: 5
`

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, validYAML), "1.2.3")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "logs.jsonl", cfg.LogsPath)
	assert.Equal(t, int64(1048576), cfg.Filter.MinScannedBytes)
	assert.InDelta(t, 0.6, cfg.Scoring.AcceptanceThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Scoring.MinOccurrenceFloor)
	assert.Equal(t, 5, cfg.Store.DefaultTopK)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_GatesHaveNoDefaults(t *testing.T) {
	t.Run("missing acceptance threshold", func(t *testing.T) {
		yaml := `
scoring:
  min_occurrence_floor: 3
`
		_, err := Load(writeConfigFile(t, yaml), "test")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "acceptance_threshold")
	})

	t.Run("missing occurrence floor", func(t *testing.T) {
		yaml := `
scoring:
  acceptance_threshold: 0.6
`
		_, err := Load(writeConfigFile(t, yaml), "test")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "min_occurrence_floor")
	})
}

func TestLoad_RejectsBadScoringWeights(t *testing.T) {
	yaml := `
scoring:
  frequency_weight: 0.5
  authority_weight: 0.5
  recency_weight: 0.2
  acceptance_threshold: 0.6
  min_occurrence_floor: 3
`
	_, err := Load(writeConfigFile(t, yaml), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SCORING_ACCEPTANCE_THRESHOLD", "0.8")
	cfg, err := Load(writeConfigFile(t, validYAML), "test")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, cfg.Scoring.AcceptanceThreshold, 1e-9)
}

func TestLoad_MissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("SCORING_ACCEPTANCE_THRESHOLD", "0.7")
	t.Setenv("SCORING_MIN_OCCURRENCE_FLOOR", "2")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"), "test")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, cfg.Scoring.AcceptanceThreshold, 1e-9)
	assert.Equal(t, 2, cfg.Scoring.MinOccurrenceFloor)
	assert.Equal(t, "local", cfg.Env)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "sqless",
		Password: "secret",
		Database: "sqless_engine",
		SSLMode:  "require",
	}
	assert.True(t, cfg.Enabled())
	assert.Equal(t,
		"host=db.internal port=5432 user=sqless password=secret dbname=sqless_engine sslmode=require",
		cfg.ConnectionString())
}

func TestLoadAuthorityMap(t *testing.T) {
	t.Run("valid map", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "authority.yaml")
		require.NoError(t, os.WriteFile(path, []byte("alice@corp: 1.0\nbatch-job: 0.4\n"), 0o644))

		m, err := LoadAuthorityMap(path)
		require.NoError(t, err)
		require.Len(t, m, 2)

		w, ok := m.Weight("alice@corp")
		assert.True(t, ok)
		assert.InDelta(t, 1.0, w, 1e-9)

		_, ok = m.Weight("nobody@corp")
		assert.False(t, ok)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAuthorityMap(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "authority.yaml")
		require.NoError(t, os.WriteFile(path, []byte("not: [valid: map"), 0o644))
		_, err := LoadAuthorityMap(path)
		assert.Error(t, err)
	})
}
