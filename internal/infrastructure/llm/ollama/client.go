package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yking-ly/nyaya/internal/infrastructure/resilience"
)

// Client talks to a single Ollama instance serving both the generation and
// embedding models. The instance runs one model at a time, so all generation
// calls are serialized behind genMu; embeddings use a separate model slot and
// run unserialized.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor

	genMu sync.Mutex
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 300 * time.Second},
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.execute(ctx, "ollama_embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed returned %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, prompt string, stop []string) (string, error) {
	g.client.genMu.Lock()
	defer g.client.genMu.Unlock()

	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
	}
	if len(stop) > 0 {
		reqBody["options"] = map[string]any{"stop": stop}
	}

	var response struct {
		Response string `json:"response"`
	}
	err := g.client.execute(ctx, "ollama_generate", func(ctx context.Context) error {
		return g.client.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	})
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}

// GenerateStream produces tokens via the NDJSON streaming endpoint. The
// stream is not retried: tokens already delivered to onToken cannot be taken
// back. onToken returning false stops consumption and returns the text
// produced so far.
func (g *Generator) GenerateStream(ctx context.Context, prompt string, stop []string, onToken func(token string) bool) (string, error) {
	g.client.genMu.Lock()
	defer g.client.genMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": true,
	}
	if len(stop) > 0 {
		reqBody["options"] = map[string]any{"stop": stop}
	}

	resp, err := g.client.postStream(ctx, "/api/generate", reqBody, "generate")
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate", err)
	}
	defer resp.Body.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk struct {
			Response string `json:"response"`
			Done     bool   `json:"done"`
		}
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return b.String(), fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Response != "" {
			b.WriteString(chunk.Response)
			if onToken != nil && !onToken(chunk.Response) {
				cancel()
				return b.String(), nil
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return b.String(), fmt.Errorf("read stream: %w", err)
	}
	return b.String(), nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyOllamaError)
}
