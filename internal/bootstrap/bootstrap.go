package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yking-ly/nyaya/internal/config"
	"github.com/yking-ly/nyaya/internal/core/ports"
	"github.com/yking-ly/nyaya/internal/core/usecase"
	"github.com/yking-ly/nyaya/internal/infrastructure/cache"
	"github.com/yking-ly/nyaya/internal/infrastructure/chunking"
	"github.com/yking-ly/nyaya/internal/infrastructure/extractor"
	pdfextractor "github.com/yking-ly/nyaya/internal/infrastructure/extractor/pdf"
	"github.com/yking-ly/nyaya/internal/infrastructure/extractor/plaintext"
	"github.com/yking-ly/nyaya/internal/infrastructure/index"
	"github.com/yking-ly/nyaya/internal/infrastructure/llm/ollama"
	"github.com/yking-ly/nyaya/internal/infrastructure/queue/nats"
	"github.com/yking-ly/nyaya/internal/infrastructure/repository/postgres"
	"github.com/yking-ly/nyaya/internal/infrastructure/rerank"
	"github.com/yking-ly/nyaya/internal/infrastructure/resilience"
	"github.com/yking-ly/nyaya/internal/infrastructure/storage/localfs"
	"github.com/yking-ly/nyaya/internal/infrastructure/translate"
	"github.com/yking-ly/nyaya/internal/infrastructure/vector/qdrant"
	"github.com/yking-ly/nyaya/internal/infrastructure/vector/sharded"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	AskUC    *usecase.AskUseCase
	IngestUC *usecase.IngestUseCase

	Storage    ports.ObjectStorage
	DocQueue   ports.DocumentQueue
	IndexQueue ports.MessageQueue

	Cache    *cache.Store
	Sections *index.SectionIndex
	Uploads  *index.UploadsIndex

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tuning, err := cfg.LoadTuning()
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conversations := postgres.NewConversationRepository(db)
	if err := conversations.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.UploadsDir)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	docQueue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSIngestSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init document queue: %w", err)
	}
	indexQueue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSIndexUpdatedSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init index queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := cache.NewEmbedder(ollama.NewEmbedder(ollamaClient))
	generator := ollama.NewGenerator(ollamaClient)

	shards := make([]sharded.Shard, 0, len(cfg.QdrantShardURLs))
	for _, shardURL := range cfg.QdrantShardURLs {
		shards = append(shards, qdrant.New(shardURL, cfg.QdrantCollection))
	}
	vectorStore := sharded.NewStore(shards, embedder, logger)

	sections, err := index.NewSectionIndex(cfg.SectionsIndexPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load sections index: %w", err)
	}
	uploads, err := index.NewUploadsIndex(cfg.UploadsIndexPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load uploads index: %w", err)
	}

	var rerankBackend ports.RerankBackend
	if cfg.RerankURL != "" {
		rerankBackend = rerank.New(cfg.RerankURL, cfg.RerankModel, executor)
	}

	responseCache := cache.New(logger,
		cache.WithTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second),
		cache.WithMaxEntries(cfg.CacheMaxEntries),
		cache.WithPersistence(cfg.CachePersistPath),
	)

	classifier := usecase.NewClassifier(tuning)
	exactMatch := usecase.NewExactMatchRouter(sections, uploads, logger)
	expander := usecase.NewExpander(generator, logger)
	gatherer := usecase.NewGatherer(vectorStore, exactMatch, expander, tuning, logger)
	reranker := usecase.NewReranker(rerankBackend, logger)
	relevance := usecase.NewRelevanceVerifier(tuning)
	translator := translate.New(generator)

	askUC := usecase.NewAskUseCase(
		classifier,
		gatherer,
		reranker,
		relevance,
		generator,
		translator,
		responseCache,
		conversations,
		tuning,
		logger,
	)

	textExtractor := extractor.NewDispatcher(plaintext.NewExtractor(storage))
	textExtractor.Register(".pdf", pdfextractor.NewExtractor(storage))
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	ingestUC := usecase.NewIngestUseCase(
		textExtractor,
		chunker,
		embedder,
		vectorStore,
		uploads,
		indexQueue,
		generator,
		logger,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		AskUC:    askUC,
		IngestUC: ingestUC,

		Storage:    storage,
		DocQueue:   docQueue,
		IndexQueue: indexQueue,

		Cache:    responseCache,
		Sections: sections,
		Uploads:  uploads,

		closeFn: func() {
			if err := responseCache.Flush(); err != nil {
				logger.Warn("cache_flush_failed", "error", err)
			}
			docQueue.Close()
			indexQueue.Close()
			_ = db.Close()
		},
	}, nil
}

// WatchIndexUpdates invalidates the response cache and reloads the on-disk
// indexes whenever an indexer finishes a document. Blocks until ctx is done.
func (a *App) WatchIndexUpdates(ctx context.Context) error {
	return a.IndexQueue.SubscribeIndexUpdated(ctx, func(_ context.Context, filename string) error {
		a.Logger.Info("index_updated", "filename", filename)
		a.Cache.Clear()
		if err := a.Sections.Reload(); err != nil {
			a.Logger.Warn("sections_reload_failed", "error", err)
		}
		if err := a.Uploads.Reload(); err != nil {
			a.Logger.Warn("uploads_reload_failed", "error", err)
		}
		return nil
	})
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
