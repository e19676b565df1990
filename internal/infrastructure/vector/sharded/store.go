package sharded

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/yking-ly/nyaya/internal/core/domain"
	"github.com/yking-ly/nyaya/internal/core/ports"
)

// Shard is one vector collection. The production implementation is the
// qdrant client; tests swap in fakes.
type Shard interface {
	Query(ctx context.Context, queryVector []float32, limit int, filenames []string) ([]domain.Candidate, error)
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Collection() string
}

// Store fans searches out across all shards concurrently and merges the
// results by ascending distance. A failing shard is logged and skipped; the
// search only errors when every shard failed, so a degraded cluster still
// answers from whatever remains. Writes assign chunks round-robin by chunk
// index, which keeps shard placement stable across re-ingests of the same
// document.
type Store struct {
	shards   []Shard
	embedder ports.Embedder
	logger   *slog.Logger
}

func NewStore(shards []Shard, embedder ports.Embedder, logger *slog.Logger) *Store {
	return &Store{shards: shards, embedder: embedder, logger: logger}
}

func (s *Store) Search(ctx context.Context, queryText string, k int) ([]domain.Candidate, error) {
	return s.search(ctx, queryText, k, nil)
}

func (s *Store) SearchFiltered(ctx context.Context, queryText string, k int, filenames []string) ([]domain.Candidate, error) {
	return s.search(ctx, queryText, k, filenames)
}

func (s *Store) search(ctx context.Context, queryText string, k int, filenames []string) ([]domain.Candidate, error) {
	if len(s.shards) == 0 {
		return nil, fmt.Errorf("no shards configured")
	}
	if k <= 0 {
		k = 5
	}

	vector, err := s.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		merged  []domain.Candidate
		failed  int
		lastErr error
	)
	for _, shard := range s.shards {
		wg.Add(1)
		go func(shard Shard) {
			defer wg.Done()
			results, err := shard.Query(ctx, vector, k, filenames)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				lastErr = err
				s.logger.Warn("shard_query_failed", "collection", shard.Collection(), "error", err)
				return
			}
			merged = append(merged, results...)
		}(shard)
	}
	wg.Wait()

	if failed == len(s.shards) {
		return nil, fmt.Errorf("all %d shards failed: %w", failed, lastErr)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Distance < merged[j].Distance
	})
	return merged, nil
}

func (s *Store) IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(s.shards) == 0 {
		return fmt.Errorf("no shards configured")
	}

	perShardChunks := make([][]domain.Chunk, len(s.shards))
	perShardVectors := make([][][]float32, len(s.shards))
	for i := range chunks {
		shard := chunks[i].ChunkIndex % len(s.shards)
		perShardChunks[shard] = append(perShardChunks[shard], chunks[i])
		perShardVectors[shard] = append(perShardVectors[shard], vectors[i])
	}

	for i, shard := range s.shards {
		if len(perShardChunks[i]) == 0 {
			continue
		}
		if err := shard.Upsert(ctx, perShardChunks[i], perShardVectors[i]); err != nil {
			return fmt.Errorf("upsert shard %s: %w", shard.Collection(), err)
		}
		s.logger.Info("shard_upsert",
			"collection", shard.Collection(),
			"points", len(perShardChunks[i]),
		)
	}
	return nil
}
