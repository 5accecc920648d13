package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sqless-ai/sqless-engine/pkg/apperrors"
	"github.com/sqless-ai/sqless-engine/pkg/intent"
	"github.com/sqless-ai/sqless-engine/pkg/logging"
	"github.com/sqless-ai/sqless-engine/pkg/metrics"
	"github.com/sqless-ai/sqless-engine/pkg/models"
	"github.com/sqless-ai/sqless-engine/pkg/scoring"
	"github.com/sqless-ai/sqless-engine/pkg/sqltemplate"
	"github.com/sqless-ai/sqless-engine/pkg/store"
)

// Collision records a fingerprint collision anomaly: two structurally
// different templates that hashed to the same fingerprint. This indicates a
// normalization or hashing bug upstream; colliding entries are reported and
// excluded rather than silently merged.
type Collision struct {
	Fingerprint    string
	ExistingSQL    string
	ConflictingSQL string
}

// Result summarizes one completed pipeline run.
type Result struct {
	RunID    uuid.UUID
	Duration time.Duration

	EntriesSeen     int
	EntriesEligible int
	MalformedCount  int
	SuspiciousCount int

	FingerprintCount int
	AcceptedPairs    []models.IntentSQLPair
	RejectedCount    int
	Collisions       []Collision
}

// Pipeline runs the full mining sequence: filter, template, infer, group,
// score, and finally publish to the store in a single atomic swap.
//
// A run either completes and publishes or fails with the prior store intact;
// per-entry problems (malformed SQL, injection probes) never abort the run.
type Pipeline struct {
	filter  *Filter
	builder *sqltemplate.Builder
	inferer *intent.Inferer
	scorer  *scoring.Scorer
	store   *store.Store
	logger  *zap.Logger
	workers int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the per-entry stage parallelism. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New wires a pipeline from its already-validated stages.
func New(filter *Filter, scorer *scoring.Scorer, st *store.Store, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		filter:  filter,
		builder: sqltemplate.NewBuilder(),
		inferer: intent.NewInferer(),
		scorer:  scorer,
		store:   st,
		logger:  logger.Named("pipeline"),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// group carries one fingerprint's template and its running aggregate.
type group struct {
	template models.SQLTemplate
	stats    models.FingerprintStats
}

// partial is one worker's local aggregate. Workers never share state; their
// partials are merged afterwards via the commutative reduction
// (sum occurrences, max authority, max timestamp).
type partial struct {
	groups     map[string]*group
	order      []string // fingerprints in first-seen order, for deterministic merges
	malformed  int
	suspicious int
	collisions []Collision
}

// Run executes one batch over a bounded log snapshot. The returned error is
// non-nil only for fatal conditions (context cancellation); in that case the
// store is left untouched and the prior index keeps serving.
func (p *Pipeline) Run(ctx context.Context, entries []models.LogEntry) (Result, error) {
	started := time.Now()
	result := Result{RunID: uuid.New(), EntriesSeen: len(entries)}
	metrics.ObserveEntriesSeen(len(entries))

	eligible := p.filter.Apply(entries)
	result.EntriesEligible = len(eligible)
	metrics.ObserveEntriesEligible(len(eligible))

	partials, err := p.templatePhase(ctx, eligible)
	if err != nil {
		return Result{}, err
	}

	merged := p.mergePhase(partials, &result)
	p.scorePhase(merged, &result)

	sort.Slice(result.AcceptedPairs, func(i, j int) bool {
		return result.AcceptedPairs[i].Fingerprint < result.AcceptedPairs[j].Fingerprint
	})

	p.store.Swap(result.AcceptedPairs)
	metrics.ObserveStoreSwap()

	result.Duration = time.Since(started)
	p.logger.Info("run complete",
		zap.String("run_id", result.RunID.String()),
		zap.Int("entries_seen", result.EntriesSeen),
		zap.Int("entries_eligible", result.EntriesEligible),
		zap.Int("malformed", result.MalformedCount),
		zap.Int("suspicious", result.SuspiciousCount),
		zap.Int("fingerprints", result.FingerprintCount),
		zap.Int("accepted", len(result.AcceptedPairs)),
		zap.Int("rejected", result.RejectedCount),
		zap.Int("collisions", len(result.Collisions)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// templatePhase fans the eligible entries out across workers. Templating and
// aggregation are per-entry pure functions, so partitioning needs no ordering
// guarantees; each worker owns a contiguous slice and a local partial.
func (p *Pipeline) templatePhase(ctx context.Context, eligible []models.FilteredEntry) ([]*partial, error) {
	workers := p.workers
	if workers > len(eligible) {
		workers = len(eligible)
	}
	if workers < 1 {
		workers = 1
	}

	partials := make([]*partial, workers)
	chunk := (len(eligible) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(eligible) {
			hi = len(eligible)
		}
		if lo >= hi {
			partials[w] = newPartial()
			continue
		}
		w := w
		slice := eligible[lo:hi]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[w] = p.processChunk(slice)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("template phase aborted: %w", err)
	}
	return partials, nil
}

func newPartial() *partial {
	return &partial{groups: make(map[string]*group)}
}

// processChunk templates each entry and folds it into the worker-local
// aggregate.
func (p *Pipeline) processChunk(entries []models.FilteredEntry) *partial {
	local := newPartial()
	for _, entry := range entries {
		tpl, err := p.builder.Build(entry.MaskedSQL)
		if err != nil {
			if errors.Is(err, apperrors.ErrMalformedInput) {
				local.malformed++
				p.logger.Debug("skipping malformed entry",
					zap.String("sql", logging.SanitizeQuery(entry.MaskedSQL)),
					zap.Error(err))
				continue
			}
			// The builder only reports malformed input today; anything else
			// is still a per-entry problem, never fatal to the run.
			local.malformed++
			continue
		}

		if probes := sqltemplate.CheckTemplateLiterals(tpl); len(probes) > 0 {
			local.suspicious++
			p.logger.Warn("skipping suspected injection probe",
				zap.String("fingerprint", tpl.Fingerprint),
				zap.String("libinjection_fingerprint", probes[0].Fingerprint))
			continue
		}

		local.add(tpl, entry)
	}
	return local
}

// add folds one templated entry into the partial, asserting the fingerprint
// invariant: one fingerprint maps to exactly one template shape.
func (pt *partial) add(tpl models.SQLTemplate, entry models.FilteredEntry) {
	existing, ok := pt.groups[tpl.Fingerprint]
	if !ok {
		pt.groups[tpl.Fingerprint] = &group{
			template: tpl,
			stats: models.FingerprintStats{
				Fingerprint:        tpl.Fingerprint,
				OccurrenceCount:    1,
				MaxAuthorityWeight: entry.AuthorityWeight,
				LastSeen:           entry.Timestamp,
			},
		}
		pt.order = append(pt.order, tpl.Fingerprint)
		return
	}
	if existing.template.TemplateSQL != tpl.TemplateSQL {
		pt.collisions = append(pt.collisions, Collision{
			Fingerprint:    tpl.Fingerprint,
			ExistingSQL:    existing.template.TemplateSQL,
			ConflictingSQL: tpl.TemplateSQL,
		})
		return
	}
	existing.stats.Merge(models.FingerprintStats{
		Fingerprint:        tpl.Fingerprint,
		OccurrenceCount:    1,
		MaxAuthorityWeight: entry.AuthorityWeight,
		LastSeen:           entry.Timestamp,
	})
}

// mergePhase reduces worker partials into the final fingerprint grouping.
// Partials are visited in worker order so collision reporting is reproducible
// across identical runs.
func (p *Pipeline) mergePhase(partials []*partial, result *Result) map[string]*group {
	merged := make(map[string]*group)
	for _, pt := range partials {
		if pt == nil {
			continue
		}
		result.MalformedCount += pt.malformed
		result.SuspiciousCount += pt.suspicious
		result.Collisions = append(result.Collisions, pt.collisions...)

		for _, fp := range pt.order {
			g := pt.groups[fp]
			existing, ok := merged[fp]
			if !ok {
				merged[fp] = g
				continue
			}
			if existing.template.TemplateSQL != g.template.TemplateSQL {
				result.Collisions = append(result.Collisions, Collision{
					Fingerprint:    fp,
					ExistingSQL:    existing.template.TemplateSQL,
					ConflictingSQL: g.template.TemplateSQL,
				})
				continue
			}
			existing.stats.Merge(g.stats)
		}
	}

	metrics.ObserveMalformedInputs(result.MalformedCount)
	metrics.ObserveSuspiciousInputs(result.SuspiciousCount)
	metrics.ObserveFingerprintCollisions(len(result.Collisions))
	if len(result.Collisions) > 0 {
		p.logger.Error("fingerprint collision anomalies detected",
			zap.Int("count", len(result.Collisions)),
			zap.Error(apperrors.ErrFingerprintCollision))
	}
	return merged
}

// scorePhase scores each fingerprint group independently and keeps only the
// accepted ones. Rejection is binary: rejected fingerprints produce no pair
// at all.
func (p *Pipeline) scorePhase(merged map[string]*group, result *Result) {
	result.FingerprintCount = len(merged)
	for _, g := range merged {
		trust := p.scorer.Score(g.stats)
		metrics.ObserveDecision(trust.Accepted)
		if !trust.Accepted {
			result.RejectedCount++
			continue
		}
		result.AcceptedPairs = append(result.AcceptedPairs, models.IntentSQLPair{
			Fingerprint: g.template.Fingerprint,
			TemplateSQL: g.template.TemplateSQL,
			IntentLabel: p.inferer.Infer(g.template),
			TrustScore:  trust.Value,
			Tables:      g.template.Tables,
			LastSeen:    g.stats.LastSeen,
		})
	}
}
