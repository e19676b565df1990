package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

func TestUpsertEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/shard0":
			atomic.AddInt32(&ensureCalls, 1)
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			vectors, _ := body["vectors"].(map[string]any)
			if vectors["distance"] != "Euclid" {
				t.Errorf("collection metric = %v, want Euclid", vectors["distance"])
			}
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/shard0/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "shard0")
	chunks := []domain.Chunk{
		{ID: "11111111-1111-1111-1111-111111111111", Text: "a", Filename: "ipc.pdf", ChunkIndex: 0},
		{ID: "22222222-2222-2222-2222-222222222222", Text: "b", Filename: "ipc.pdf", ChunkIndex: 1},
	}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.Upsert(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	if err := client.Upsert(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/shard0" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "shard0")
	err := client.Upsert(context.Background(), []domain.Chunk{{ID: "x", Text: "a"}}, [][]float32{{0.1, 0.2}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestQueryMapsScoreToDistanceAndPayloadToChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/shard0/points/search" {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if _, hasFilter := body["filter"]; hasFilter {
				t.Errorf("unexpected filter in unfiltered query")
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":[
				{"id":"p1","score":1.42,"payload":{"text":"Section 378 defines theft","filename":"ipc.pdf","chunk_index":7,"act":"IPC"}}
			]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "shard0")
	out, err := client.Query(context.Background(), []float32{0.1, 0.2}, 5, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("results = %d, want 1", len(out))
	}
	cand := out[0]
	if cand.Distance != 1.42 {
		t.Fatalf("distance = %f, want 1.42", cand.Distance)
	}
	if cand.Chunk.Filename != "ipc.pdf" || cand.Chunk.ChunkIndex != 7 || cand.Chunk.Act != "IPC" {
		t.Fatalf("chunk = %+v", cand.Chunk)
	}
	if cand.Chunk.Kind != domain.ChunkKindVector {
		t.Fatalf("kind = %s, want vector", cand.Chunk.Kind)
	}
}

func TestQueryFilenameFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/shard0/points/search" {
			var body struct {
				Filter struct {
					Must []struct {
						Key   string `json:"key"`
						Match struct {
							Any []string `json:"any"`
						} `json:"match"`
					} `json:"must"`
				} `json:"filter"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body.Filter.Must) != 1 || body.Filter.Must[0].Key != "filename" {
				t.Errorf("filter = %+v, want filename match", body.Filter)
			}
			if len(body.Filter.Must[0].Match.Any) != 2 {
				t.Errorf("filter values = %v, want 2 filenames", body.Filter.Must[0].Match.Any)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "shard0")
	if _, err := client.Query(context.Background(), []float32{0.1}, 5, []string{"a.pdf", "b.pdf"}); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
}
