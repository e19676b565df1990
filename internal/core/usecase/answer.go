package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yking-ly/nyaya/internal/core/domain"
	"github.com/yking-ly/nyaya/internal/core/ports"
)

const historyMessageLimit = 6

// categoryNames expands category filter tags into the full act names used to
// focus the search query.
var categoryNames = map[string]string{
	"ipc":  "Indian Penal Code (IPC)",
	"bns":  "Bharatiya Nyaya Sanhita (BNS)",
	"crpc": "Criminal Procedure Code (CrPC)",
	"bnss": "Bharatiya Nagarik Suraksha Sanhita (BNSS)",
	"iea":  "Indian Evidence Act (IEA)",
	"bsa":  "Bharatiya Sakshya Adhiniyam (BSA)",
}

var notFoundMessages = map[string]string{
	domain.LanguageEnglish:        "I couldn't find any relevant information in the uploaded documents.",
	domain.LanguageHindi:          "मुझे अपलोड किए गए दस्तावेज़ों में कोई प्रासंगिक जानकारी नहीं मिली।",
	domain.LanguageHindiRomanized: "Mujhe upload kiye gaye documents mein koi relevant jaankari nahi mili.",
}

// AskUseCase orchestrates the full per-query lifecycle: classification,
// exact-match routing, candidate gathering, reranking, relevance
// verification with a single adaptive retry, grounded streaming generation
// and post-generation citation checking.
type AskUseCase struct {
	classifier *Classifier
	gatherer   *Gatherer
	reranker   *Reranker
	relevance  *RelevanceVerifier

	generator     ports.Generator
	translator    ports.Translator
	cache         ports.ResponseCache
	conversations ports.ConversationStore

	tuning domain.RetrievalTuning
	logger *slog.Logger
}

func NewAskUseCase(
	classifier *Classifier,
	gatherer *Gatherer,
	reranker *Reranker,
	relevance *RelevanceVerifier,
	generator ports.Generator,
	translator ports.Translator,
	cache ports.ResponseCache,
	conversations ports.ConversationStore,
	tuning domain.RetrievalTuning,
	logger *slog.Logger,
) *AskUseCase {
	return &AskUseCase{
		classifier:    classifier,
		gatherer:      gatherer,
		reranker:      reranker,
		relevance:     relevance,
		generator:     generator,
		translator:    translator,
		cache:         cache,
		conversations: conversations,
		tuning:        tuning.Normalize(),
		logger:        logger,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, req domain.AskRequest, sink domain.AskSink) (result *domain.AskResult, err error) {
	// Retrieval strategies degrade internally; anything that still panics is
	// converted here into a generic error instead of taking down the caller.
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("ask_panic", "panic", r, "stack", string(debug.Stack()))
			result = nil
			err = fmt.Errorf("answer pipeline: %v", r)
		}
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("query is required"))
	}
	language := req.Options.Language
	if language == "" {
		language = domain.LanguageEnglish
	}

	emitStatus(sink, "Analyzing query...")
	effectiveQuery := uc.prepareQuery(ctx, query, req.Options, sink)
	complexity := uc.classifier.Classify(effectiveQuery)
	uc.logger.Info("query_classified",
		"type", complexity.Type,
		"confidence", complexity.Confidence,
		"word_count", complexity.WordCount,
	)

	collections := collectionFilter(req.Options.Category)
	if language == domain.LanguageEnglish && uc.cache != nil {
		if cached, ok := uc.cache.GetResponse(effectiveQuery, collections); ok {
			emitStatus(sink, "Serving answer from cache...")
			emitSources(sink, cached.Sources)
			emitToken(sink, cached.Answer)
			return &domain.AskResult{
				Answer:    cached.Answer,
				Sources:   cached.Sources,
				Path:      domain.PathDeep,
				FromCache: true,
				Citations: domain.CitationReport{Valid: true, Stats: map[string]int{}},
			}, nil
		}
	}

	baseK := uc.classifier.DetermineChunkCount(complexity, req.Options.Category != "")
	emitStatus(sink, "Retrieving relevant context...")
	expandAlways := req.Options.Persona != "" && req.Options.Persona != "kira"
	pool := uc.gatherer.Gather(ctx, effectiveQuery, baseK, complexity, expandAlways)

	if len(pool) == 0 {
		message := notFoundMessage(language)
		emitSources(sink, []string{})
		emitToken(sink, message)
		return &domain.AskResult{
			Answer:    message,
			Sources:   []string{},
			Path:      domain.PathNone,
			Citations: domain.CitationReport{Valid: true, Stats: map[string]int{}},
		}, nil
	}

	emitStatus(sink, fmt.Sprintf("Reranking %d candidates...", len(pool)))
	ranked := uc.reranker.Rerank(ctx, effectiveQuery, pool, uc.tuning.RerankTopK)
	contextText := assembleContext(ranked)

	// One adaptive round at most: a failed relevance check triggers targeted
	// searches for the missing keywords followed by a single rerank.
	adaptiveRetried := false
	report := uc.relevance.Check(effectiveQuery, contextText, complexity)
	if !report.IsRelevant && len(report.MissingKeywords) > 0 {
		adaptiveRetried = true
		emitStatus(sink, "Context incomplete, deepening search...")
		uc.logger.Info("adaptive_deep_search",
			"coverage", report.Coverage,
			"missing", report.MissingKeywords,
		)
		probes := AdaptiveProbes(effectiveQuery, report.MissingKeywords)
		pool = append(pool, uc.gatherer.GatherTargeted(ctx, probes, uc.tuning.ExpansionSearchK)...)
		ranked = uc.reranker.Rerank(ctx, effectiveQuery, pool, uc.tuning.AdaptiveRerankTopK)
		contextText = assembleContext(ranked)
	}

	sources := sourceFilenames(ranked)
	emitSources(sink, sources)

	history := uc.loadHistory(ctx, req)
	prompt := buildGroundingPrompt(effectiveQuery, contextText, history, language, req.Options.Category)

	emitStatus(sink, "Generating answer...")
	interrupted := false
	answer, genErr := uc.generator.GenerateStream(ctx, prompt, nil, func(token string) bool {
		if sink.OnToken != nil && !sink.OnToken(token) {
			interrupted = true
			return false
		}
		return true
	})
	if genErr != nil && answer == "" {
		return nil, fmt.Errorf("generate answer: %w", genErr)
	}

	citations := VerifyCitations(answer, contextText)
	warning := CitationWarning(citations)
	if warning != "" {
		uc.logger.Warn("citation_violations", "violations", citations.Violations)
		if !interrupted {
			emitToken(sink, warning)
		}
	}

	// Interrupted or error-truncated streams never repopulate the cache: the
	// stored answer must always be the complete one.
	if language == domain.LanguageEnglish && uc.cache != nil && !interrupted && genErr == nil {
		uc.cache.SetResponse(effectiveQuery, collections, domain.CachedAnswer{
			Answer:  answer,
			Sources: sources,
		})
	}
	uc.persistTurn(ctx, req, query, answer)

	path := domain.PathDeep
	for _, cand := range ranked {
		if cand.Chunk.Kind == domain.ChunkKindExact {
			path = domain.PathFast
			break
		}
	}

	return &domain.AskResult{
		Answer:          answer,
		Sources:         sources,
		Path:            path,
		Interrupted:     interrupted,
		AdaptiveRetried: adaptiveRetried,
		Citations:       citations,
		Warning:         warning,
	}, nil
}

// prepareQuery applies the category prefix and the best-effort Hindi to
// English translation used for retrieval.
func (uc *AskUseCase) prepareQuery(ctx context.Context, query string, opts domain.AskOptions, sink domain.AskSink) string {
	effective := query
	if name, ok := categoryNames[strings.ToLower(opts.Category)]; ok {
		effective = name + ": " + effective
	}

	if (opts.Language == domain.LanguageHindi || opts.Language == domain.LanguageHindiRomanized) && uc.translator != nil {
		emitStatus(sink, "Translating query to English...")
		translated, err := uc.translator.Translate(ctx, effective, "auto", domain.LanguageEnglish)
		if err != nil {
			uc.logger.Warn("query_translation_failed", "error", err)
		} else if strings.TrimSpace(translated) != "" {
			effective = translated
		}
	}
	return effective
}

func (uc *AskUseCase) loadHistory(ctx context.Context, req domain.AskRequest) []domain.ChatMessage {
	if len(req.History) > 0 {
		if len(req.History) > historyMessageLimit {
			return req.History[len(req.History)-historyMessageLimit:]
		}
		return req.History
	}
	if uc.conversations == nil || req.UserID == "" || req.ConversationID == "" {
		return nil
	}

	messages, err := uc.conversations.ListRecentMessages(ctx, req.UserID, req.ConversationID, historyMessageLimit)
	if err != nil {
		uc.logger.Warn("load_history_failed", "error", err)
		return nil
	}
	out := make([]domain.ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (uc *AskUseCase) persistTurn(ctx context.Context, req domain.AskRequest, query, answer string) {
	if uc.conversations == nil || req.UserID == "" || req.ConversationID == "" {
		return
	}
	if _, err := uc.conversations.EnsureConversation(ctx, req.UserID, req.ConversationID); err != nil {
		uc.logger.Warn("ensure_conversation_failed", "error", err)
		return
	}
	now := time.Now().UTC()
	for _, msg := range []domain.ConversationMessage{
		{ID: uuid.NewString(), UserID: req.UserID, ConversationID: req.ConversationID, Role: "user", Content: query, CreatedAt: now},
		{ID: uuid.NewString(), UserID: req.UserID, ConversationID: req.ConversationID, Role: "assistant", Content: answer, CreatedAt: now},
	} {
		if err := uc.conversations.AppendMessage(ctx, msg); err != nil {
			uc.logger.Warn("append_message_failed", "error", err)
			return
		}
	}
}

func assembleContext(ranked []domain.RankedCandidate) string {
	parts := make([]string, 0, len(ranked))
	for _, cand := range ranked {
		parts = append(parts, cand.Chunk.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func sourceFilenames(ranked []domain.RankedCandidate) []string {
	seen := make(map[string]struct{}, len(ranked))
	out := make([]string, 0, len(ranked))
	for _, cand := range ranked {
		name := cand.Chunk.Filename
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func collectionFilter(category string) []string {
	if category == "" {
		return nil
	}
	return []string{strings.ToLower(category)}
}

func notFoundMessage(language string) string {
	if msg, ok := notFoundMessages[language]; ok {
		return msg
	}
	return notFoundMessages[domain.LanguageEnglish]
}

func emitStatus(sink domain.AskSink, message string) {
	if sink.OnStatus != nil {
		sink.OnStatus(message)
	}
}

func emitSources(sink domain.AskSink, sources []string) {
	if sink.OnSources != nil {
		sink.OnSources(sources)
	}
}

func emitToken(sink domain.AskSink, token string) {
	if sink.OnToken != nil {
		sink.OnToken(token)
	}
}
