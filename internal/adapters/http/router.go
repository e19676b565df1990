package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/yking-ly/nyaya/internal/config"
	"github.com/yking-ly/nyaya/internal/core/domain"
	"github.com/yking-ly/nyaya/internal/core/ports"
	"github.com/yking-ly/nyaya/internal/observability/metrics"
)

// AskService is the question-answering entry point the router serves. The
// concrete implementation is usecase.AskUseCase.
type AskService interface {
	Ask(ctx context.Context, req domain.AskRequest, sink domain.AskSink) (*domain.AskResult, error)
}

type Router struct {
	cfg      config.Config
	ask      AskService
	storage  ports.ObjectStorage
	docQueue ports.DocumentQueue
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

func NewRouter(
	cfg config.Config,
	ask AskService,
	storage ports.ObjectStorage,
	docQueue ports.DocumentQueue,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		ask:      ask,
		storage:  storage,
		docQueue: docQueue,
		metrics:  m,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.askHandler)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	if rt.cfg.APIMaxConcurrent > 0 {
		wait := time.Duration(rt.cfg.APIQueueWaitMillis) * time.Millisecond
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrent, wait)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequestBody struct {
	Query          string               `json:"query"`
	History        []domain.ChatMessage `json:"history,omitempty"`
	Options        domain.AskOptions    `json:"options"`
	UserID         string               `json:"user_id,omitempty"`
	ConversationID string               `json:"conversation_id,omitempty"`
	Stream         bool                 `json:"stream,omitempty"`
}

func (rt *Router) askHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var body askRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	req := domain.AskRequest{
		Query:          body.Query,
		History:        body.History,
		Options:        body.Options,
		UserID:         body.UserID,
		ConversationID: body.ConversationID,
	}

	if body.Stream || strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		rt.askStream(w, r, req)
		return
	}

	start := time.Now()
	result, err := rt.ask.Ask(r.Context(), req, domain.AskSink{})
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	rt.recordAsk(result, start)
	writeJSON(w, http.StatusOK, result)
}

// askStream serves one Ask call over SSE. Events: status, sources, token,
// done. The done event carries the full result; a client disconnect
// interrupts generation through the token callback.
func (rt *Router) askStream(w http.ResponseWriter, r *http.Request, req domain.AskRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	sink := domain.AskSink{
		OnStatus: func(message string) {
			writeSSE(w, flusher, "status", map[string]string{"message": message})
		},
		OnSources: func(filenames []string) {
			writeSSE(w, flusher, "sources", map[string]any{"sources": filenames})
		},
		OnToken: func(token string) bool {
			if ctx.Err() != nil {
				return false
			}
			writeSSE(w, flusher, "token", map[string]string{"token": token})
			return ctx.Err() == nil
		},
	}

	start := time.Now()
	result, err := rt.ask.Ask(ctx, req, sink)
	if err != nil {
		writeSSE(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}
	rt.recordAsk(result, start)
	writeSSE(w, flusher, "done", result)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	filename := filepath.Base(fileHeader.Filename)
	if filename == "" || filename == "." {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "filename is required"})
		return
	}

	if err := rt.storage.Save(r.Context(), filename, file); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if err := rt.docQueue.PublishDocumentUploaded(r.Context(), filename); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"filename": filename,
		"status":   "queued",
	})
}

func (rt *Router) recordAsk(result *domain.AskResult, start time.Time) {
	if rt.metrics == nil || result == nil {
		return
	}
	rt.metrics.RecordAsk("api", string(result.Path), len(result.Sources), time.Since(start))
	if result.FromCache {
		rt.metrics.RecordCacheHit("api")
	}
	if result.Interrupted {
		rt.metrics.RecordInterrupted("api")
	}
	if result.AdaptiveRetried {
		rt.metrics.RecordAdaptiveRetry("api")
	}
	if !result.Citations.Valid {
		rt.metrics.RecordCitationViolation("api")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
