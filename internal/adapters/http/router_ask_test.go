package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yking-ly/nyaya/internal/config"
	"github.com/yking-ly/nyaya/internal/core/domain"
)

type askFake struct {
	result *domain.AskResult
	err    error
	// script drives the sink before the result is returned, mimicking the
	// streaming behaviour of the real use case.
	script func(sink domain.AskSink)

	lastRequest domain.AskRequest
}

func (f *askFake) Ask(_ context.Context, req domain.AskRequest, sink domain.AskSink) (*domain.AskResult, error) {
	f.lastRequest = req
	if f.script != nil {
		f.script(sink)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type storageFake struct {
	saved map[string][]byte
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = raw
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type docQueueFake struct {
	published []string
	err       error
}

func (f *docQueueFake) PublishDocumentUploaded(_ context.Context, filename string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, filename)
	return nil
}

func (f *docQueueFake) SubscribeDocumentUploaded(context.Context, func(context.Context, string) error) error {
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(cfg config.Config) http.Handler {
	ask := &askFake{result: &domain.AskResult{
		Answer:    "Theft is defined in Section 378.",
		Sources:   []string{"ipc.pdf"},
		Path:      domain.PathDeep,
		Citations: domain.CitationReport{Valid: true},
	}}
	return NewRouter(cfg, ask, &storageFake{}, &docQueueFake{}, nil, quietLogger()).Handler()
}

func postAsk(t *testing.T, handler http.Handler, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestAskReturnsResultJSON(t *testing.T) {
	handler := newTestHandler(config.Config{})
	res := postAsk(t, handler, map[string]any{"query": "what is theft"})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var result domain.AskResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Answer == "" || len(result.Sources) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	handler := newTestHandler(config.Config{})
	res := postAsk(t, handler, map[string]any{"query": "   "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskRejectsInvalidJSON(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader("{not json"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskForwardsOptionsAndHistory(t *testing.T) {
	ask := &askFake{result: &domain.AskResult{Path: domain.PathNone}}
	handler := NewRouter(config.Config{}, ask, &storageFake{}, &docQueueFake{}, nil, quietLogger()).Handler()

	res := postAsk(t, handler, map[string]any{
		"query": "chori ki saza",
		"options": map[string]any{
			"language": "hi-romanized",
			"category": "criminal",
		},
		"history": []map[string]string{{"role": "user", "content": "earlier question"}},
		"user_id": "u-1",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ask.lastRequest.Options.Language != "hi-romanized" {
		t.Fatalf("language not forwarded: %+v", ask.lastRequest.Options)
	}
	if ask.lastRequest.Options.Category != "criminal" {
		t.Fatalf("category not forwarded: %+v", ask.lastRequest.Options)
	}
	if len(ask.lastRequest.History) != 1 || ask.lastRequest.UserID != "u-1" {
		t.Fatalf("request not forwarded: %+v", ask.lastRequest)
	}
}

func TestAskStreamEmitsSSEEvents(t *testing.T) {
	ask := &askFake{
		result: &domain.AskResult{
			Answer:    "Bail is covered by Section 438.",
			Sources:   []string{"crpc.pdf"},
			Path:      domain.PathDeep,
			Citations: domain.CitationReport{Valid: true},
		},
		script: func(sink domain.AskSink) {
			if sink.OnStatus != nil {
				sink.OnStatus("searching")
			}
			if sink.OnSources != nil {
				sink.OnSources([]string{"crpc.pdf"})
			}
			if sink.OnToken != nil {
				sink.OnToken("Bail ")
				sink.OnToken("is covered.")
			}
		},
	}
	handler := NewRouter(config.Config{}, ask, &storageFake{}, &docQueueFake{}, nil, quietLogger()).Handler()

	res := postAsk(t, handler, map[string]any{"query": "anticipatory bail", "stream": true})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q, want text/event-stream", ct)
	}

	body := res.Body.String()
	for _, event := range []string{"event: status", "event: sources", "event: token", "event: done"} {
		if !strings.Contains(body, event) {
			t.Fatalf("missing %q in stream:\n%s", event, body)
		}
	}
	if strings.Index(body, "event: sources") > strings.Index(body, "event: token") {
		t.Fatalf("sources emitted after first token:\n%s", body)
	}
}

func TestAskStreamEmitsErrorEvent(t *testing.T) {
	ask := &askFake{err: domain.WrapError(domain.ErrTemporary, "ask", errors.New("llm down"))}
	handler := NewRouter(config.Config{}, ask, &storageFake{}, &docQueueFake{}, nil, quietLogger()).Handler()

	res := postAsk(t, handler, map[string]any{"query": "what is theft", "stream": true})
	if !strings.Contains(res.Body.String(), "event: error") {
		t.Fatalf("expected error event, got:\n%s", res.Body.String())
	}
}
