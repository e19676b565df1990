package ports

import (
	"context"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

// AnswerService is the inbound contract for retrieval-augmented answering.
// Sink callbacks stream status messages, finalized sources and answer tokens
// while the call is in flight; the returned result carries the full answer.
type AnswerService interface {
	Ask(ctx context.Context, req domain.AskRequest, sink domain.AskSink) (*domain.AskResult, error)
}

// DocumentIndexer is the inbound contract for the ingestion pipeline.
type DocumentIndexer interface {
	IndexFile(ctx context.Context, path string) error
}
