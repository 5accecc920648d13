// Package store holds the process-wide intent-SQL index and serves top-K
// natural-language retrieval over it.
package store

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sqless-ai/sqless-engine/pkg/apperrors"
	"github.com/sqless-ai/sqless-engine/pkg/config"
	"github.com/sqless-ai/sqless-engine/pkg/models"
)

// tokenRegex splits on anything that is not a word character or a Han
// character; intent labels and queries may mix scripts.
var tokenRegex = regexp.MustCompile(`[^a-z0-9_\p{Han}]+`)

// relevance weighting between lexical similarity and trust. Both constants
// are positive, so strictly higher similarity at equal trust never ranks
// lower, and strictly higher trust at equal similarity never ranks lower.
const (
	similarityWeight = 0.6
	trustWeight      = 0.4
)

// entry is one indexed pair with its precomputed label token set.
type entry struct {
	pair   models.IntentSQLPair
	tokens map[string]bool
}

type index struct {
	entries []entry
}

// Store is a single-writer, multiple-reader index over the current
// IntentSQLPair set. Build replaces the entire index through one atomic
// pointer swap: readers either see the previous complete index or the new
// complete index, never a partial one. Queries in flight keep the index they
// started with.
type Store struct {
	cfg     config.StoreConfig
	logger  *zap.Logger
	current atomic.Pointer[index]
}

// New returns an empty store.
func New(cfg config.StoreConfig, logger *zap.Logger) *Store {
	s := &Store{cfg: cfg, logger: logger.Named("store")}
	s.current.Store(&index{})
	return s
}

// Swap builds a fresh index from the pair set and publishes it atomically,
// replacing whatever was being served before.
func (s *Store) Swap(pairs []models.IntentSQLPair) {
	next := &index{entries: make([]entry, 0, len(pairs))}
	for _, p := range pairs {
		next.entries = append(next.entries, entry{pair: p, tokens: tokenSet(p.IntentLabel)})
	}
	s.current.Store(next)
	s.logger.Info("index swapped", zap.Int("pairs", len(pairs)))
}

// Len reports the number of pairs in the currently served index.
func (s *Store) Len() int {
	return len(s.current.Load().entries)
}

// Get returns the pair for an exact fingerprint, or apperrors.ErrNotFound.
func (s *Store) Get(fingerprint string) (models.IntentSQLPair, error) {
	for _, e := range s.current.Load().entries {
		if e.pair.Fingerprint == fingerprint {
			return e.pair, nil
		}
	}
	return models.IntentSQLPair{}, apperrors.ErrNotFound
}

// Query returns up to k pairs ranked by relevance to the natural-language
// query, most relevant first.
//
// Relevance combines token-overlap similarity between the query and each
// pair's intent label with the pair's trust score, so a lower-similarity but
// much higher-trust template may legitimately outrank a marginally-closer
// low-trust one. Pairs below the similarity floor are not matches at all.
// Ties break by last-seen timestamp descending, then fingerprint ascending.
// An empty store or no match yields an empty (non-nil) slice.
func (s *Store) Query(naturalLanguage string, k int) []models.IntentSQLPair {
	if k <= 0 {
		k = s.cfg.DefaultTopK
	}
	idx := s.current.Load()
	queryTokens := tokenSet(naturalLanguage)

	type scored struct {
		pair      models.IntentSQLPair
		relevance float64
	}
	matches := make([]scored, 0, len(idx.entries))
	for _, e := range idx.entries {
		similarity := overlapSimilarity(queryTokens, e.tokens)
		if similarity < s.cfg.MinSimilarity {
			continue
		}
		matches = append(matches, scored{
			pair:      e.pair,
			relevance: similarityWeight*similarity + trustWeight*e.pair.TrustScore,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].relevance != matches[j].relevance {
			return matches[i].relevance > matches[j].relevance
		}
		if !matches[i].pair.LastSeen.Equal(matches[j].pair.LastSeen) {
			return matches[i].pair.LastSeen.After(matches[j].pair.LastSeen)
		}
		return matches[i].pair.Fingerprint < matches[j].pair.Fingerprint
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	results := make([]models.IntentSQLPair, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.pair)
	}
	return results
}

// overlapSimilarity is token overlap normalized by query size. The +1 keeps
// single-token queries from producing degenerate 1.0 scores on any overlap.
func overlapSimilarity(query, label map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	overlap := 0
	for tok := range query {
		if label[tok] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(query)+1)
}

func tokenSet(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range tokenRegex.Split(strings.ToLower(text), -1) {
		if tok != "" {
			tokens[tok] = true
		}
	}
	return tokens
}
