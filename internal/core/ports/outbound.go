package ports

import (
	"context"
	"io"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

// Embedder builds vectors for chunks and query text. Deterministic per model
// version, so results are cacheable by content hash.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher performs semantic search across all shards and merges
// results. Distance semantics: lower is more similar. A filtered search
// restricts candidates to the given filenames.
type VectorSearcher interface {
	Search(ctx context.Context, queryText string, k int) ([]domain.Candidate, error)
	SearchFiltered(ctx context.Context, queryText string, k int, filenames []string) ([]domain.Candidate, error)
}

// VectorIndexer writes chunks into the sharded store. Shard assignment is
// stable (round-robin) so re-querying a shard set is deterministic.
type VectorIndexer interface {
	IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
}

// Generator produces text from the shared LLM. Invocations are serialized by
// the implementation; only one stream is active per process.
type Generator interface {
	Generate(ctx context.Context, prompt string, stop []string) (string, error)
	// GenerateStream calls onToken per produced token. onToken returning
	// false interrupts generation; the text produced so far is returned.
	GenerateStream(ctx context.Context, prompt string, stop []string, onToken func(token string) bool) (string, error)
}

// RerankBackend scores (query, passage) pairs with a cross-encoder model.
// Score semantics: higher is more relevant, range [0,1].
type RerankBackend interface {
	Rerank(ctx context.Context, query string, passages []domain.Chunk) ([]domain.RankedCandidate, error)
}

// Translator converts text between languages, best effort. Callers fall back
// to the original text on error.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// SectionIndex is the curated keyword-triggered fast path over statutes.
type SectionIndex interface {
	Match(query string) []domain.SectionEntry
	Reload() error
}

// UploadsIndex scores ingested-document summaries against a query.
type UploadsIndex interface {
	Search(query string) []domain.UploadMatch
	Add(record domain.UploadRecord) error
	Reload() error
}

// ResponseCache stores full answers keyed by normalized query and the sorted
// collection filter. Entries expire after their TTL and are cleared whenever
// the underlying index changes.
type ResponseCache interface {
	GetResponse(query string, collections []string) (*domain.CachedAnswer, bool)
	SetResponse(query string, collections []string, answer domain.CachedAnswer)
	Clear()
}

// ConversationStore persists chat history used for prompt assembly.
type ConversationStore interface {
	EnsureConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error)
	AppendMessage(ctx context.Context, message domain.ConversationMessage) error
	ListRecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]domain.ConversationMessage, error)
}

// MessageQueue propagates index-update events so caches can be invalidated
// after ingestion.
type MessageQueue interface {
	PublishIndexUpdated(ctx context.Context, filename string) error
	SubscribeIndexUpdated(ctx context.Context, handler func(context.Context, string) error) error
}

// DocumentQueue hands uploaded files to the indexer workers. Exactly one
// worker receives each event.
type DocumentQueue interface {
	PublishDocumentUploaded(ctx context.Context, filename string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// ObjectStorage persists uploaded source documents under opaque keys.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor extracts plain text from a stored source document.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}
