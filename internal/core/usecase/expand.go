package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/yking-ly/nyaya/internal/core/domain"
	"github.com/yking-ly/nyaya/internal/core/ports"
)

const (
	maxExpansions    = 3
	expansionTimeout = 10 * time.Second
)

var versusSplitPattern = regexp.MustCompile(`\s+(?:vs\.?|versus)\s+`)

// Expander widens semantic recall by generating alternate phrasings of a
// query. The LLM strategy is primary; any failure falls back to the
// deterministic heuristics. Expand never returns an error: worst case the
// gatherer gets an empty list and skips the strategy.
type Expander struct {
	generator ports.Generator
	logger    *slog.Logger
}

func NewExpander(generator ports.Generator, logger *slog.Logger) *Expander {
	return &Expander{generator: generator, logger: logger}
}

func (e *Expander) Expand(ctx context.Context, query string, complexity domain.QueryComplexity) []string {
	expansions, err := e.expandWithLLM(ctx, query)
	if err != nil {
		e.logger.Warn("query_expansion_fallback", "error", err)
		return heuristicExpansions(query, complexity)
	}
	return expansions
}

// expandWithLLM asks for 3 diverse legal search phrasings, one per line.
// The expansion LLM call is a non-critical path, so it runs under its own
// timeout rather than blocking retrieval.
func (e *Expander) expandWithLLM(ctx context.Context, query string) ([]string, error) {
	if e.generator == nil {
		return nil, domain.WrapError(domain.ErrDegraded, "expand query", fmt.Errorf("no generator configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, expansionTimeout)
	defer cancel()

	prompt := "You are a legal research assistant. Generate 3 diverse search queries based on the user's query.\n" +
		"Include legal synonyms, specific act sections (e.g., if the user asks about murder, include 'BNS Section 103'), and technical terms.\n" +
		"Output ONLY the 3 queries, one per line.\n\n" +
		"Input Query: " + query
	response, err := e.generator.Generate(ctx, prompt, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDegraded, "expand query", err)
	}

	expansions := make([]string, 0, maxExpansions)
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		expansions = append(expansions, line)
		if len(expansions) == maxExpansions {
			break
		}
	}
	if len(expansions) == 0 {
		return nil, domain.WrapError(domain.ErrDegraded, "expand query", fmt.Errorf("empty expansion output"))
	}
	return expansions, nil
}

// heuristicExpansions splits comparative queries on their conjunction,
// halves long complex queries, and surfaces extracted legal terms as
// standalone queries.
func heuristicExpansions(query string, complexity domain.QueryComplexity) []string {
	expansions := make([]string, 0, maxExpansions)
	lower := strings.ToLower(query)

	if complexity.Type == domain.QueryComparative {
		switch {
		case strings.Contains(lower, " and "):
			parts := strings.SplitN(lower, " and ", 2)
			expansions = append(expansions, parts...)
		case versusSplitPattern.MatchString(lower):
			parts := versusSplitPattern.Split(lower, 3)
			if len(parts) > 2 {
				parts = parts[:2]
			}
			expansions = append(expansions, parts...)
		}
	}

	if complexity.Type == domain.QueryComplex {
		words := strings.Fields(query)
		if len(words) > 5 {
			mid := len(words) / 2
			expansions = append(expansions, strings.Join(words[:mid], " "))
			expansions = append(expansions, strings.Join(words[mid:], " "))
		}
	}

	for i, term := range complexity.Keywords {
		if i == 2 {
			break
		}
		expansions = append(expansions, term)
	}

	if len(expansions) > maxExpansions {
		expansions = expansions[:maxExpansions]
	}
	return expansions
}
