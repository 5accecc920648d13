// Package repositories contains the persistence layer for sqless-engine.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sqless-ai/sqless-engine/pkg/models"
)

// SnapshotRepository persists the accepted IntentSQLPair set between pipeline
// runs, keyed by fingerprint. The snapshot is sufficient to rebuild the store
// without re-scanning raw logs and to diff against a later run's fingerprint
// set.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a snapshot repository over an open handle.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// ReplaceAll swaps the persisted snapshot for the given run in a single
// transaction: either the previous snapshot survives untouched or the new one
// replaces it completely. There is no incremental patching.
func (r *SnapshotRepository) ReplaceAll(ctx context.Context, runID uuid.UUID, pairs []models.IntentSQLPair) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM intent_sql_pairs`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	const insert = `
INSERT INTO intent_sql_pairs (fingerprint, template_sql, intent_label, trust_score, tables, last_seen, run_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, p := range pairs {
		if _, err := tx.ExecContext(ctx, insert,
			p.Fingerprint,
			p.TemplateSQL,
			p.IntentLabel,
			p.TrustScore,
			strings.Join(p.Tables, ","),
			p.LastSeen,
			runID,
		); err != nil {
			return fmt.Errorf("insert pair %s: %w", p.Fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadAll reads the persisted snapshot ordered by fingerprint.
func (r *SnapshotRepository) LoadAll(ctx context.Context) ([]models.IntentSQLPair, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT fingerprint, template_sql, intent_label, trust_score, tables, last_seen
FROM intent_sql_pairs
ORDER BY fingerprint ASC`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	pairs := make([]models.IntentSQLPair, 0)
	for rows.Next() {
		var p models.IntentSQLPair
		var tables string
		if err := rows.Scan(&p.Fingerprint, &p.TemplateSQL, &p.IntentLabel, &p.TrustScore, &tables, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if tables != "" {
			p.Tables = strings.Split(tables, ",")
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return pairs, nil
}

// SnapshotDiff lists fingerprints that appeared in the current run but not
// the previous snapshot, and ones that went stale (present before, absent
// now).
type SnapshotDiff struct {
	Appeared []string
	Stale    []string
}

// Diff compares a previous snapshot against the current run's pairs by
// fingerprint. Both result lists keep the input ordering of their source set.
func Diff(previous, current []models.IntentSQLPair) SnapshotDiff {
	prevSet := make(map[string]bool, len(previous))
	for _, p := range previous {
		prevSet[p.Fingerprint] = true
	}
	currSet := make(map[string]bool, len(current))
	for _, p := range current {
		currSet[p.Fingerprint] = true
	}

	var diff SnapshotDiff
	for _, p := range current {
		if !prevSet[p.Fingerprint] {
			diff.Appeared = append(diff.Appeared, p.Fingerprint)
		}
	}
	for _, p := range previous {
		if !currSet[p.Fingerprint] {
			diff.Stale = append(diff.Stale, p.Fingerprint)
		}
	}
	return diff
}
