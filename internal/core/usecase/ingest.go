package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yking-ly/nyaya/internal/core/domain"
	"github.com/yking-ly/nyaya/internal/core/ports"
)

const summaryMaxChars = 600

// IngestUseCase runs the document pipeline: extract text, split into chunks,
// embed, write to the sharded vector store, register the document in the
// uploads index and announce the update so response caches flush.
type IngestUseCase struct {
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	indexer   ports.VectorIndexer
	uploads   ports.UploadsIndex
	queue     ports.MessageQueue
	generator ports.Generator
	logger    *slog.Logger
}

func NewIngestUseCase(
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	indexer ports.VectorIndexer,
	uploads ports.UploadsIndex,
	queue ports.MessageQueue,
	generator ports.Generator,
	logger *slog.Logger,
) *IngestUseCase {
	return &IngestUseCase{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		indexer:   indexer,
		uploads:   uploads,
		queue:     queue,
		generator: generator,
		logger:    logger,
	}
}

func (uc *IngestUseCase) IndexFile(ctx context.Context, path string) error {
	const op = "ingest.index_file"
	started := time.Now()

	text, err := uc.extractor.Extract(ctx, path)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("extract %s: %w", path, err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("no extractable text in %s", path))
	}

	pieces := uc.chunker.Split(text)
	if len(pieces) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("no chunks produced for %s", path))
	}

	filename := filepath.Base(path)
	chunks := make([]domain.Chunk, len(pieces))
	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			Text:       piece,
			Filename:   filename,
			ChunkIndex: i,
			Language:   domain.LanguageEnglish,
			Kind:       domain.ChunkKindVector,
		}
		texts[i] = piece
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, op, fmt.Errorf("embed %s: %w", filename, err))
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(domain.ErrTemporary, op,
			fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	if err := uc.indexer.IndexChunks(ctx, chunks, vectors); err != nil {
		return domain.WrapError(domain.ErrTemporary, op, fmt.Errorf("index %s: %w", filename, err))
	}

	record := domain.UploadRecord{
		Filename: filename,
		Summary:  uc.summarize(ctx, filename, text),
		Chunks:   len(chunks),
	}
	if err := uc.uploads.Add(record); err != nil {
		uc.logger.Warn("uploads_index_add_failed", "filename", filename, "error", err)
	}

	if uc.queue != nil {
		if err := uc.queue.PublishIndexUpdated(ctx, filename); err != nil {
			uc.logger.Warn("index_update_publish_failed", "filename", filename, "error", err)
		}
	}

	uc.logger.Info("document_indexed",
		"filename", filename,
		"chunks", len(chunks),
		"duration", time.Since(started).String(),
	)
	return nil
}

// summarize asks the LLM for a short document summary and falls back to the
// leading text when the model is unavailable.
func (uc *IngestUseCase) summarize(ctx context.Context, filename, text string) string {
	head := text
	if len(head) > 4000 {
		head = head[:4000]
	}

	if uc.generator != nil {
		prompt := "Summarize the following legal document excerpt in two sentences. " +
			"Name the act or statute if one is identifiable.\n\nDOCUMENT (" + filename + "):\n" + head + "\n\nSUMMARY:"
		summaryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if summary, err := uc.generator.Generate(summaryCtx, prompt, nil); err == nil {
			if trimmed := strings.TrimSpace(summary); trimmed != "" {
				return truncate(trimmed, summaryMaxChars)
			}
		} else {
			uc.logger.Warn("summary_generation_failed", "filename", filename, "error", err)
		}
	}
	return truncate(head, summaryMaxChars)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
