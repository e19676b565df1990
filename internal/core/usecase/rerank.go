package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/yking-ly/nyaya/internal/core/domain"
	"github.com/yking-ly/nyaya/internal/core/ports"
)

// Reranker reorders a deduplicated candidate pool with a cross-encoder
// backend. Backend scores are probabilities in [0,1], higher better; they are
// a different scale from vector distances and the two are never compared.
// An unavailable backend degrades to passing through the first topK
// candidates in their pre-rerank order.
type Reranker struct {
	backend ports.RerankBackend
	logger  *slog.Logger
}

func NewReranker(backend ports.RerankBackend, logger *slog.Logger) *Reranker {
	return &Reranker{backend: backend, logger: logger}
}

func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.Candidate, topK int) []domain.RankedCandidate {
	candidates = domain.DeduplicateCandidates(candidates)
	if len(candidates) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = len(candidates)
	}

	if r.backend == nil {
		return passthrough(candidates, topK)
	}

	passages := make([]domain.Chunk, len(candidates))
	for i, cand := range candidates {
		passages[i] = cand.Chunk
	}

	ranked, err := r.backend.Rerank(ctx, query, passages)
	if err != nil || len(ranked) == 0 {
		r.logger.Warn("rerank_fallback", "candidates", len(candidates), "error", err)
		return passthrough(candidates, topK)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// passthrough keeps the pre-rerank order and assigns no cross-encoder score.
func passthrough(candidates []domain.Candidate, topK int) []domain.RankedCandidate {
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	out := make([]domain.RankedCandidate, len(candidates))
	for i, cand := range candidates {
		out[i] = domain.RankedCandidate{Chunk: cand.Chunk}
	}
	return out
}
