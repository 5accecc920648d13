// Package pipeline orchestrates the log-to-store mining run.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sqless-ai/sqless-engine/pkg/apperrors"
	"github.com/sqless-ai/sqless-engine/pkg/config"
	"github.com/sqless-ai/sqless-engine/pkg/models"
	"github.com/sqless-ai/sqless-engine/pkg/pii"
)

// Filter is the physical-layer gate over raw log entries. It drops failed
// executions, entries that did negligible work, and entries from executors
// outside the authority whitelist.
//
// PII masking happens here, before any other step, because masked text must
// be the very text that flows into fingerprinting: two semantically identical
// queries holding different PII must fingerprint identically, and a missed
// mask must never be able to leak PII into the long-term store.
type Filter struct {
	cfg         config.FilterConfig
	authorities models.AuthorityMap
	masker      *pii.Masker
	logger      *zap.Logger
}

// NewFilter validates the authority map and returns a filter.
func NewFilter(cfg config.FilterConfig, authorities models.AuthorityMap, logger *zap.Logger) (*Filter, error) {
	if len(authorities) == 0 {
		return nil, apperrors.ErrAuthorityMapEmpty
	}
	for executor, w := range authorities {
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("executor %q has weight %v: %w", executor, w, apperrors.ErrAuthorityWeightInvalid)
		}
	}
	return &Filter{
		cfg:         cfg,
		authorities: authorities,
		masker:      pii.NewMasker(),
		logger:      logger.Named("filter"),
	}, nil
}

// Apply returns the eligible entries, PII-masked. Ineligible entries are
// expected and dropped silently; they are not errors.
func (f *Filter) Apply(entries []models.LogEntry) []models.FilteredEntry {
	filtered := make([]models.FilteredEntry, 0, len(entries))
	for _, e := range entries {
		masked := f.masker.Mask(e.RawSQL)

		if masked == "" {
			continue
		}
		if !e.Success {
			continue
		}
		// Either threshold satisfied is enough signal of a real query;
		// drop only when both fail.
		if e.ScannedBytes < f.cfg.MinScannedBytes && e.ElapsedMS < f.cfg.MinElapsedMS {
			continue
		}
		weight, ok := f.authorities.Weight(e.Executor)
		if !ok {
			continue
		}

		filtered = append(filtered, models.FilteredEntry{
			MaskedSQL:       masked,
			Executor:        e.Executor,
			AuthorityWeight: weight,
			Timestamp:       e.Timestamp,
		})
	}
	f.logger.Debug("filter applied",
		zap.Int("entries_in", len(entries)),
		zap.Int("entries_out", len(filtered)))
	return filtered
}
