package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/sqless-ai/sqless-engine/pkg/config"
	"github.com/sqless-ai/sqless-engine/pkg/database"
	"github.com/sqless-ai/sqless-engine/pkg/logging"
	"github.com/sqless-ai/sqless-engine/pkg/models"
	"github.com/sqless-ai/sqless-engine/pkg/pipeline"
	"github.com/sqless-ai/sqless-engine/pkg/repositories"
	"github.com/sqless-ai/sqless-engine/pkg/scoring"
	"github.com/sqless-ai/sqless-engine/pkg/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	query := flag.String("query", "", "optional natural-language lookup to run after the batch completes")
	topK := flag.Int("top-k", 0, "result count for -query (0 uses the configured default)")
	flag.Parse()

	// Configuration problems are fatal before anything else runs; the prior
	// snapshot stays authoritative.
	cfg, err := config.Load(*configPath, Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger, *query, *topK); err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, query string, topK int) error {
	ctx := context.Background()

	authorities, err := config.LoadAuthorityMap(cfg.AuthorityMapPath)
	if err != nil {
		return err
	}
	entries, err := readLogEntries(cfg.LogsPath)
	if err != nil {
		return err
	}
	logger.Info("log snapshot loaded",
		zap.String("path", cfg.LogsPath),
		zap.Int("entries", len(entries)),
		zap.Int("executors_whitelisted", len(authorities)))

	filter, err := pipeline.NewFilter(cfg.Filter, authorities, logger)
	if err != nil {
		return err
	}
	scorer, err := scoring.NewScorer(cfg.Scoring)
	if err != nil {
		return err
	}
	st := store.New(cfg.Store, logger)

	result, err := pipeline.New(filter, scorer, st, logger).Run(ctx, entries)
	if err != nil {
		return err
	}

	if cfg.Database.Enabled() {
		if err := persistSnapshot(ctx, cfg, logger, result); err != nil {
			return err
		}
	}

	if query != "" {
		printResults(st.Query(query, topK))
	}
	return nil
}

// persistSnapshot replaces the database snapshot with this run's accepted
// pairs and logs the fingerprint diff against the previous run.
func persistSnapshot(ctx context.Context, cfg *config.Config, logger *zap.Logger, result pipeline.Result) error {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := database.RunMigrations(db, cfg.Database.MigrationsPath, logger); err != nil {
		return err
	}

	repo := repositories.NewSnapshotRepository(db)
	previous, err := repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	if err := repo.ReplaceAll(ctx, result.RunID, result.AcceptedPairs); err != nil {
		return err
	}

	diff := repositories.Diff(previous, result.AcceptedPairs)
	logger.Info("snapshot persisted",
		zap.String("run_id", result.RunID.String()),
		zap.Int("pairs", len(result.AcceptedPairs)),
		zap.Strings("appeared", diff.Appeared),
		zap.Strings("stale", diff.Stale))
	return nil
}

// readLogEntries decodes a JSON Lines file of LogEntry records. The source
// format upstream of this file is out of scope; by the time the pipeline
// sees them, entries are an already-deserialized bounded sequence.
func readLogEntries(path string) ([]models.LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []models.LogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry models.LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("decode log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log snapshot: %w", err)
	}
	return entries, nil
}

func printResults(pairs []models.IntentSQLPair) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(pairs)
}
