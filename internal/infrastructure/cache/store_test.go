package cache

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResponseCacheNormalizesKeys(t *testing.T) {
	s := New(testLogger())
	s.SetResponse("What  is THEFT", []string{"bns", "ipc"}, domain.CachedAnswer{Answer: "a"})

	if _, ok := s.GetResponse("what is theft", []string{"ipc", "bns"}); !ok {
		t.Fatalf("equivalent query/collections missed the cache")
	}
	if _, ok := s.GetResponse("what is theft", nil); ok {
		t.Fatalf("collection-free lookup hit a filtered entry")
	}
}

func TestResponseCacheExpiry(t *testing.T) {
	current := time.Now()
	s := New(testLogger(), WithTTL(time.Hour), withClock(func() time.Time { return current }))
	s.SetResponse("q", nil, domain.CachedAnswer{Answer: "a"})

	if _, ok := s.GetResponse("q", nil); !ok {
		t.Fatalf("fresh entry missed")
	}
	current = current.Add(2 * time.Hour)
	if _, ok := s.GetResponse("q", nil); ok {
		t.Fatalf("expired entry served")
	}
}

func TestResponseCacheClear(t *testing.T) {
	s := New(testLogger())
	s.SetResponse("q", nil, domain.CachedAnswer{Answer: "a"})
	s.Clear()
	if _, ok := s.GetResponse("q", nil); ok {
		t.Fatalf("entry survived Clear")
	}
}

func TestResponseCacheEviction(t *testing.T) {
	s := New(testLogger(), WithMaxEntries(2))
	s.SetResponse("one", nil, domain.CachedAnswer{Answer: "1"})
	s.SetResponse("two", nil, domain.CachedAnswer{Answer: "2"})
	s.SetResponse("three", nil, domain.CachedAnswer{Answer: "3"})

	hits := 0
	for _, q := range []string{"one", "two", "three"} {
		if _, ok := s.GetResponse(q, nil); ok {
			hits++
		}
	}
	if hits != 2 {
		t.Fatalf("live entries = %d, want maxEntries 2", hits)
	}
}

func TestResponseCachePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.json")

	first := New(testLogger(), WithPersistence(path))
	first.SetResponse("q", []string{"ipc"}, domain.CachedAnswer{Answer: "persisted", Sources: []string{"ipc.pdf"}})
	if err := first.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	second := New(testLogger(), WithPersistence(path))
	cached, ok := second.GetResponse("q", []string{"ipc"})
	if !ok {
		t.Fatalf("persisted entry not loaded")
	}
	if cached.Answer != "persisted" || len(cached.Sources) != 1 {
		t.Fatalf("loaded entry = %+v", cached)
	}
}

type countingEmbedder struct {
	queryCalls int
	batchTexts [][]string
}

func (f *countingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	f.queryCalls++
	return []float32{0.5}, nil
}

func (f *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.batchTexts = append(f.batchTexts, texts)
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func TestCachedEmbedderQueryMemoized(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewEmbedder(inner)

	for i := 0; i < 3; i++ {
		if _, err := e.EmbedQuery(context.Background(), "same text"); err != nil {
			t.Fatalf("EmbedQuery() error = %v", err)
		}
	}
	if inner.queryCalls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.queryCalls)
	}
}

func TestCachedEmbedderBatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewEmbedder(inner)

	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	vectors, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("vectors = %d, want 3", len(vectors))
	}
	if len(inner.batchTexts) != 2 {
		t.Fatalf("batch calls = %d, want 2", len(inner.batchTexts))
	}
	if len(inner.batchTexts[1]) != 1 || inner.batchTexts[1][0] != "c" {
		t.Fatalf("second batch = %v, want only the miss", inner.batchTexts[1])
	}
}
