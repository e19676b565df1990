package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yking-ly/nyaya/internal/core/domain"
	"github.com/yking-ly/nyaya/internal/infrastructure/resilience"
)

// Client calls the cross-encoder scoring service. Scores are relevance
// probabilities in [0,1], higher better; they share no scale with vector
// distances. Callers treat any failure as a signal to fall back to
// pre-rerank order, so errors here are never fatal.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Rerank(ctx context.Context, query string, passages []domain.Chunk) ([]domain.RankedCandidate, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	texts := make([]string, len(passages))
	for i, chunk := range passages {
		texts[i] = chunk.Text
	}
	reqBody := map[string]any{
		"model":     c.model,
		"query":     query,
		"documents": texts,
	}

	var response struct {
		Scores []float64 `json:"scores"`
	}
	call := func(ctx context.Context) error {
		return c.post(ctx, "/rerank", reqBody, &response)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "rerank", call, classifyRerankError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrDegraded, "rerank", err)
	}
	if len(response.Scores) != len(passages) {
		return nil, domain.WrapError(domain.ErrDegraded, "rerank",
			fmt.Errorf("scored %d of %d passages", len(response.Scores), len(passages)))
	}

	out := make([]domain.RankedCandidate, len(passages))
	for i, chunk := range passages {
		out[i] = domain.RankedCandidate{Chunk: chunk, Score: response.Scores[i]}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(data)); msg != "" {
			return fmt.Errorf("rerank status %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("rerank status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rerank response: %w", err)
	}
	return nil
}

func classifyRerankError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	// The reranker is optional: record failures so the breaker can open and
	// spare the latency, but retry only once via the executor's policy.
	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}
