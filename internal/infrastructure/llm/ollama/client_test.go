package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

func TestGenerateSendsPromptAndTrimsResponse(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		if payload["stream"] != false {
			t.Errorf("stream = %v, want false", payload["stream"])
		}
		_, _ = w.Write([]byte(`{"response":"  answer text  "}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed", nil))
	answer, err := gen.Generate(context.Background(), "what is theft?", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "answer text" {
		t.Fatalf("answer = %q", answer)
	}
	if capturedPrompt != "what is theft?" {
		t.Fatalf("prompt = %q", capturedPrompt)
	}
}

func TestGenerateStreamDeliversTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"response":"Theft ","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"is ","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"defined.","done":true}` + "\n"))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed", nil))
	var tokens []string
	answer, err := gen.GenerateStream(context.Background(), "q", nil, func(token string) bool {
		tokens = append(tokens, token)
		return true
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if answer != "Theft is defined." {
		t.Fatalf("answer = %q", answer)
	}
	if len(tokens) != 3 {
		t.Fatalf("tokens = %v, want 3", tokens)
	}
}

func TestGenerateStreamInterruptReturnsPartial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"response":"one ","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"two ","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"three","done":true}` + "\n"))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed", nil))
	calls := 0
	answer, err := gen.GenerateStream(context.Background(), "q", nil, func(string) bool {
		calls++
		return calls < 2
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if answer != "one two " {
		t.Fatalf("partial answer = %q", answer)
	}
	if calls != 2 {
		t.Fatalf("callback calls = %d, want 2", calls)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", nil))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("502 not classified temporary: %v", err)
	}
}

func TestEmbedVectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", nil))
	_, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}
