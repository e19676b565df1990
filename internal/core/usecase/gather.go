package usecase

import (
	"context"
	"log/slog"

	"github.com/yking-ly/nyaya/internal/core/domain"
	"github.com/yking-ly/nyaya/internal/core/ports"
)

// injectedDistanceCeiling separates synthesized candidates (exact matches and
// summaries, distance <= 0.0001) from real vector hits when counting results.
const injectedDistanceCeiling = 0.0002

// filteredSearchK is the per-shard k used when searching inside specific
// documents matched by the uploads index.
const filteredSearchK = 10

// Gatherer runs the multi-strategy candidate search: exact-match
// short-circuit, filtered and unfiltered sharded vector search, progressive
// deepening and query expansion. Strategies fail independently; the pool is
// whatever survived, deduplicated by full-text hash with earlier strategies
// winning ties. Candidate order within the pool is not meaningful until the
// reranker runs.
type Gatherer struct {
	searcher ports.VectorSearcher
	router   *ExactMatchRouter
	expander *Expander
	tuning   domain.RetrievalTuning
	logger   *slog.Logger
}

func NewGatherer(
	searcher ports.VectorSearcher,
	router *ExactMatchRouter,
	expander *Expander,
	tuning domain.RetrievalTuning,
	logger *slog.Logger,
) *Gatherer {
	return &Gatherer{
		searcher: searcher,
		router:   router,
		expander: expander,
		tuning:   tuning.Normalize(),
		logger:   logger,
	}
}

func (g *Gatherer) Gather(
	ctx context.Context,
	query string,
	baseK int,
	complexity domain.QueryComplexity,
	expandAlways bool,
) []domain.Candidate {
	if baseK <= 0 {
		baseK = 5
	}

	// Strategy 0: curated section index. A hit is authoritative statute
	// text at distance 0, so it short-circuits vector search entirely.
	if exact := g.router.TryExactMatch(query); len(exact) > 0 {
		g.logger.Info("exact_match_short_circuit", "candidates", len(exact))
		return domain.DeduplicateCandidates(exact)
	}

	pool := make([]domain.Candidate, 0, baseK*4)

	// Strategy 0.5: uploads index. Summaries are injected and matched
	// documents get a boosted filtered search; a core-document hit replaces
	// the broad unfiltered search entirely.
	matches, hasCoreDocument := g.router.SearchUploads(query)
	skipGeneralSearch := hasCoreDocument
	if len(matches) > 0 {
		pool = append(pool, g.router.SummaryCandidates(matches)...)
		pool = append(pool, g.searchFiltered(ctx, query, matches)...)
	}

	// Strategy 1: primary fan-out across all shards.
	currentK := baseK
	if !skipGeneralSearch {
		pool = append(pool, g.search(ctx, query, currentK)...)
	}

	// Progressive deepening when the pool is empty, the best distance is
	// poor, or the filtered-only search came back too thin.
	needsDeepening := false
	if len(pool) == 0 {
		needsDeepening = true
	} else {
		realHits := 0
		for _, cand := range pool {
			if cand.Distance > injectedDistanceCeiling {
				realHits++
			}
		}
		switch {
		case skipGeneralSearch && realHits < g.tuning.MinFilteredHits:
			needsDeepening = true
		case bestDistance(pool) > g.tuning.DistanceCeiling:
			needsDeepening = true
		}
	}

	if needsDeepening {
		for depth := 2; depth <= g.tuning.MaxDepthLevels; depth++ {
			currentK = min(currentK*2, g.tuning.MaxSearchK)
			g.logger.Info("deepening_search", "depth", depth, "k", currentK)

			deeper := g.search(ctx, query, currentK)
			if len(deeper) == 0 {
				break
			}
			pool = append(pool, deeper...)
			if bestDistance(deeper) < g.tuning.EarlyStopDistance {
				break
			}
		}
	}

	// Strategy 2: query expansion for queries that benefit from recall.
	if expandAlways || complexity.Type == domain.QueryComplex || complexity.Type == domain.QueryComparative {
		expansionK := min(currentK, g.tuning.ExpansionSearchK)
		for _, expanded := range g.expander.Expand(ctx, query, complexity) {
			pool = append(pool, g.search(ctx, expanded, expansionK)...)
		}
	}

	return domain.DeduplicateCandidates(pool)
}

// GatherTargeted runs small searches for the adaptive second pass, one per
// probe query, and returns the merged results.
func (g *Gatherer) GatherTargeted(ctx context.Context, probes []string, k int) []domain.Candidate {
	if k <= 0 {
		k = g.tuning.ExpansionSearchK
	}
	out := make([]domain.Candidate, 0, len(probes)*k)
	for _, probe := range probes {
		out = append(out, g.search(ctx, probe, k)...)
	}
	return out
}

func (g *Gatherer) search(ctx context.Context, query string, k int) []domain.Candidate {
	results, err := g.searcher.Search(ctx, query, k)
	if err != nil {
		g.logger.Warn("vector_search_failed", "k", k, "error", err)
		return nil
	}
	return results
}

func (g *Gatherer) searchFiltered(ctx context.Context, query string, matches []domain.UploadMatch) []domain.Candidate {
	filenames := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Record.Filename != "" {
			filenames = append(filenames, m.Record.Filename)
		}
	}
	if len(filenames) == 0 {
		return nil
	}

	results, err := g.searcher.SearchFiltered(ctx, query, filteredSearchK, filenames)
	if err != nil {
		g.logger.Warn("filtered_search_failed", "filenames", len(filenames), "error", err)
		return nil
	}

	// Matched documents were asked for by name, so their chunks outrank
	// equally-distant hits from the broad search.
	boosted := make([]domain.Candidate, len(results))
	for i, cand := range results {
		cand.Distance = max(cand.Distance-g.tuning.FilteredBoost, 0.001)
		boosted[i] = cand
	}
	return boosted
}

func bestDistance(candidates []domain.Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	best := candidates[0].Distance
	for _, cand := range candidates[1:] {
		if cand.Distance < best {
			best = cand.Distance
		}
	}
	return best
}
