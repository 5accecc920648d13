package config

import (
	"fmt"
	"math"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for sqless-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. The scoring gate values
// (acceptance_threshold, min_occurrence_floor) have no defaults on purpose:
// they directly gate data quality and must be set explicitly.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Input locations for a batch run
	LogsPath         string `yaml:"logs_path" env:"LOGS_PATH" env-default:"query_logs.jsonl"`
	AuthorityMapPath string `yaml:"authority_map_path" env:"AUTHORITY_MAP_PATH" env-default:"authority_map.yaml"`

	Filter  FilterConfig  `yaml:"filter"`
	Scoring ScoringConfig `yaml:"scoring"`
	Store   StoreConfig   `yaml:"store"`

	// Snapshot database (optional - if host is empty, snapshots are disabled)
	Database DatabaseConfig `yaml:"database"`
}

// FilterConfig holds the physical-layer log filter thresholds.
// An entry is dropped only when BOTH thresholds fail; satisfying either one
// is enough signal that the query did real work.
type FilterConfig struct {
	MinScannedBytes int64 `yaml:"min_scanned_bytes" env:"FILTER_MIN_SCANNED_BYTES" env-default:"1048576"`
	MinElapsedMS    int64 `yaml:"min_elapsed_ms" env:"FILTER_MIN_ELAPSED_MS" env-default:"300"`
}

// ScoringConfig holds the trust scorer weights and gates.
// FrequencyWeight + AuthorityWeight + RecencyWeight must sum to 1.
type ScoringConfig struct {
	FrequencySaturation  int     `yaml:"frequency_saturation" env:"SCORING_FREQUENCY_SATURATION" env-default:"10"`
	RecencyHalfLifeHours float64 `yaml:"recency_half_life_hours" env:"SCORING_RECENCY_HALF_LIFE_HOURS" env-default:"168"`
	FrequencyWeight      float64 `yaml:"frequency_weight" env:"SCORING_FREQUENCY_WEIGHT" env-default:"0.3"`
	AuthorityWeight      float64 `yaml:"authority_weight" env:"SCORING_AUTHORITY_WEIGHT" env-default:"0.5"`
	RecencyWeight        float64 `yaml:"recency_weight" env:"SCORING_RECENCY_WEIGHT" env-default:"0.2"`

	// Required - negative sentinel defaults are rejected by Validate.
	AcceptanceThreshold float64 `yaml:"acceptance_threshold" env:"SCORING_ACCEPTANCE_THRESHOLD" env-default:"-1"`
	MinOccurrenceFloor  int     `yaml:"min_occurrence_floor" env:"SCORING_MIN_OCCURRENCE_FLOOR" env-default:"-1"`
}

// StoreConfig holds retrieval settings for the intent-SQL store.
type StoreConfig struct {
	// MinSimilarity is the floor below which a pair is not considered a
	// match at all; queries with no pair above it return empty results.
	MinSimilarity float64 `yaml:"min_similarity" env:"STORE_MIN_SIMILARITY" env-default:"0.0001"`
	DefaultTopK   int     `yaml:"default_top_k" env:"STORE_DEFAULT_TOP_K" env-default:"5"`
}

// DatabaseConfig holds PostgreSQL configuration for the snapshot store.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:""`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"sqless"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"sqless_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// Enabled reports whether a snapshot database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Load reads configuration from the given YAML file with environment variable
// overrides, then validates it. The version parameter is injected at build
// time and set on the returned Config. A validation failure is fatal to the
// run: the caller must not touch the store or snapshot before Load succeeds.
func Load(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the scoring weights and gates. It rejects the sentinel
// defaults for acceptance_threshold and min_occurrence_floor so a run can
// never start with silently-defaulted quality gates.
func (c *Config) Validate() error {
	s := c.Scoring

	if s.AcceptanceThreshold < 0 || s.AcceptanceThreshold > 1 {
		return fmt.Errorf("scoring.acceptance_threshold must be set within [0,1], got %v", s.AcceptanceThreshold)
	}
	if s.MinOccurrenceFloor < 1 {
		return fmt.Errorf("scoring.min_occurrence_floor must be set to at least 1, got %d", s.MinOccurrenceFloor)
	}
	if s.FrequencySaturation < 1 {
		return fmt.Errorf("scoring.frequency_saturation must be at least 1, got %d", s.FrequencySaturation)
	}
	if s.RecencyHalfLifeHours <= 0 {
		return fmt.Errorf("scoring.recency_half_life_hours must be positive, got %v", s.RecencyHalfLifeHours)
	}
	for name, w := range map[string]float64{
		"frequency_weight": s.FrequencyWeight,
		"authority_weight": s.AuthorityWeight,
		"recency_weight":   s.RecencyWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("scoring.%s must be within [0,1], got %v", name, w)
		}
	}
	if sum := s.FrequencyWeight + s.AuthorityWeight + s.RecencyWeight; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1, got %v", sum)
	}

	if c.Store.MinSimilarity < 0 || c.Store.MinSimilarity > 1 {
		return fmt.Errorf("store.min_similarity must be within [0,1], got %v", c.Store.MinSimilarity)
	}
	if c.Store.DefaultTopK < 1 {
		return fmt.Errorf("store.default_top_k must be at least 1, got %d", c.Store.DefaultTopK)
	}
	if c.Filter.MinScannedBytes < 0 || c.Filter.MinElapsedMS < 0 {
		return fmt.Errorf("filter thresholds must not be negative")
	}
	return nil
}
