// Package database manages the snapshot PostgreSQL connection and its
// migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sqless-ai/sqless-engine/pkg/apperrors"
	"github.com/sqless-ai/sqless-engine/pkg/config"
)

// Open connects to the snapshot database and verifies the connection.
// The caller owns the returned handle.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if !cfg.Enabled() {
		return nil, apperrors.ErrSnapshotNotConfigured
	}

	db, err := sql.Open("pgx", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping snapshot db: %w", err)
	}

	return db, nil
}
