package usecase

import (
	"regexp"
	"strings"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

// Indicator lists driving the rule cascade. Matching is substring-based on
// the lowercased query, so multi-word indicators like "how does" work.
var (
	complexIndicators = []string{
		"explain", "analyze", "compare", "contrast", "difference", "between",
		"why", "how does", "what are the implications", "discuss", "elaborate",
		"relationship", "impact", "effect", "consequence", "versus", "vs",
	}
	proceduralIndicators = []string{
		"procedure", "process", "steps", "how to", "method", "way to",
		"file", "apply", "register", "obtain", "submit",
	}
	comparativeIndicators = []string{
		"compare", "contrast", "difference", "between", "versus", "vs",
		"similar", "different", "both", "either",
	}
	simpleIndicators = []string{
		"what is", "define", "who is", "when", "where", "which section",
		"section", "article", "clause", "punishment", "penalty",
	}

	legalTermPattern = regexp.MustCompile(`\b(?:section|article|clause|act|code|rule|regulation|amendment)\s+\d+[a-z]?\b`)
)

// Classifier assigns a complexity class to a query. It is a deterministic
// heuristic, not a model: the same query always yields the same class.
type Classifier struct {
	tuning domain.RetrievalTuning
}

func NewClassifier(tuning domain.RetrievalTuning) *Classifier {
	return &Classifier{tuning: tuning.Normalize()}
}

func (c *Classifier) Classify(query string) domain.QueryComplexity {
	lower := strings.ToLower(query)
	wordCount := len(strings.Fields(query))

	complexCount := countIndicators(lower, complexIndicators)
	proceduralCount := countIndicators(lower, proceduralIndicators)
	comparativeCount := countIndicators(lower, comparativeIndicators)
	simpleCount := countIndicators(lower, simpleIndicators)

	var (
		queryType  domain.QueryType
		confidence float64
	)
	switch {
	case comparativeCount >= 2 || strings.Contains(lower, "compare"):
		queryType = domain.QueryComparative
		confidence = capConfidence(0.6 + float64(comparativeCount)*0.1)
	case complexCount >= 2 || wordCount > 15:
		queryType = domain.QueryComplex
		confidence = capConfidence(0.5 + float64(complexCount)*0.1 + float64(wordCount-10)*0.02)
	case proceduralCount >= 1:
		queryType = domain.QueryProcedural
		confidence = capConfidence(0.6 + float64(proceduralCount)*0.15)
	case simpleCount >= 1 && wordCount < 10:
		queryType = domain.QuerySimple
		confidence = capConfidence(0.7 + float64(simpleCount)*0.1)
	case wordCount > 12:
		queryType = domain.QueryComplex
		confidence = 0.6
	default:
		queryType = domain.QuerySimple
		confidence = 0.5
	}

	return domain.QueryComplexity{
		Type:       queryType,
		Confidence: confidence,
		Keywords:   legalTermPattern.FindAllString(lower, -1),
		WordCount:  wordCount,
	}
}

// DetermineChunkCount maps complexity to the number of chunks worth
// retrieving: never below 3, never above 10, and a category filter narrows
// the request since the search space is already constrained.
func (c *Classifier) DetermineChunkCount(complexity domain.QueryComplexity, hasCategoryFilter bool) int {
	count, ok := c.tuning.ChunkCountBase[complexity.Type]
	if !ok {
		count = 4
	}
	if complexity.Confidence > 0.8 {
		count++
	}
	if hasCategoryFilter {
		count = max(3, count-1)
	}
	return min(count, 10)
}

// RelevanceThreshold returns the distance ceiling a candidate must beat to
// count as relevant for this complexity class. Lower is stricter; low
// classification confidence loosens it.
func (c *Classifier) RelevanceThreshold(complexity domain.QueryComplexity) float64 {
	threshold, ok := c.tuning.RelevanceThreshold[complexity.Type]
	if !ok {
		threshold = 1.5
	}
	if complexity.Confidence < 0.6 {
		threshold += 0.3
	}
	return threshold
}

func countIndicators(lowerQuery string, indicators []string) int {
	count := 0
	for _, indicator := range indicators {
		if strings.Contains(lowerQuery, indicator) {
			count++
		}
	}
	return count
}

func capConfidence(v float64) float64 {
	if v > 0.9 {
		return 0.9
	}
	return v
}
