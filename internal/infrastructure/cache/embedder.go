package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/yking-ly/nyaya/internal/core/ports"
)

const defaultEmbeddingTTL = 24 * time.Hour

type embeddingEntry struct {
	vector    []float32
	expiresAt time.Time
}

// Embedder memoizes vectors by content hash in front of a real embedder.
// Embeddings are deterministic for a given model, so a long TTL is safe; the
// cache mainly absorbs repeated query embeddings and re-ingests.
type Embedder struct {
	inner ports.Embedder
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[string]embeddingEntry
}

func NewEmbedder(inner ports.Embedder) *Embedder {
	return &Embedder{
		inner:   inner,
		ttl:     defaultEmbeddingTTL,
		now:     time.Now,
		entries: make(map[string]embeddingEntry),
	}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := contentHash(text)
	if vector, ok := e.get(key); ok {
		return vector, nil
	}
	vector, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	e.put(key, vector)
	return vector, nil
}

// Embed fills cache hits locally and embeds only the misses in one batch.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	missingTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		if vector, ok := e.get(contentHash(text)); ok {
			out[i] = vector
			continue
		}
		missing = append(missing, i)
		missingTexts = append(missingTexts, text)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := e.inner.Embed(ctx, missingTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missing {
		if j < len(vectors) {
			out[i] = vectors[j]
			e.put(contentHash(texts[i]), vectors[j])
		}
	}
	return out, nil
}

func (e *Embedder) get(key string) ([]float32, bool) {
	e.mu.RLock()
	entry, ok := e.entries[key]
	e.mu.RUnlock()
	if !ok || e.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.vector, true
}

func (e *Embedder) put(key string, vector []float32) {
	e.mu.Lock()
	e.entries[key] = embeddingEntry{vector: vector, expiresAt: e.now().Add(e.ttl)}
	e.mu.Unlock()
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
