package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

var (
	relevancePatterns = []*regexp.Regexp{
		regexp.MustCompile(`section\s+\d+[a-z]?`),
		regexp.MustCompile(`article\s+\d+`),
		regexp.MustCompile(`chapter\s+\d+`),
		regexp.MustCompile(`\b(?:ipc|bns|crpc|bnss|iea|bsa)\b`),
		regexp.MustCompile(`\b\d{4}\b`),
	}
	contentWordPattern = regexp.MustCompile(`\b[a-z]{4,}\b`)

	relevanceStopwords = map[string]struct{}{
		"what": {}, "when": {}, "where": {}, "which": {}, "about": {},
		"under": {}, "does": {}, "mean": {}, "explain": {}, "tell": {}, "define": {},
	}
)

// RelevanceVerifier checks whether retrieved context actually covers the
// query's keywords. Coverage below the type-specific minimum flags the
// context as insufficient and names the missing keywords so the caller can
// run one targeted deep-search round.
type RelevanceVerifier struct {
	tuning domain.RetrievalTuning
}

func NewRelevanceVerifier(tuning domain.RetrievalTuning) *RelevanceVerifier {
	return &RelevanceVerifier{tuning: tuning.Normalize()}
}

func (v *RelevanceVerifier) Check(query, context string, complexity domain.QueryComplexity) domain.RelevanceReport {
	keywords := extractQueryKeywords(query)
	if len(keywords) == 0 {
		return domain.RelevanceReport{IsRelevant: true, Coverage: 0.5}
	}

	contextLower := strings.ToLower(context)
	found := 0
	missing := make([]string, 0)
	for _, keyword := range keywords {
		if strings.Contains(contextLower, keyword) {
			found++
		} else {
			missing = append(missing, keyword)
		}
	}

	coverage := float64(found) / float64(len(keywords))
	required, ok := v.tuning.MinCoverage[complexity.Type]
	if !ok {
		required = 0.5
	}

	return domain.RelevanceReport{
		IsRelevant:      coverage >= required,
		Coverage:        coverage,
		MissingKeywords: missing,
	}
}

// AdaptiveProbes builds the follow-up queries for an insufficient context:
// two per missing keyword (keyword-prefixed query and bare keyword, top 3
// keywords only) plus head/tail trigram probes for long queries.
func AdaptiveProbes(query string, missingKeywords []string) []string {
	probes := make([]string, 0, 8)
	for i, keyword := range missingKeywords {
		if i == 3 {
			break
		}
		probes = append(probes, keyword+" "+query)
		probes = append(probes, keyword)
	}

	words := strings.Fields(query)
	if len(words) > 3 {
		probes = append(probes, strings.Join(words[:3], " "))
		probes = append(probes, strings.Join(words[len(words)-3:], " "))
	}
	return probes
}

// extractQueryKeywords returns the deduplicated, deterministic keyword set:
// legal citation patterns, act acronyms and years, plus content words of four
// letters or more that are not stopwords.
func extractQueryKeywords(query string) []string {
	lower := strings.ToLower(query)
	seen := make(map[string]struct{})

	for _, pattern := range relevancePatterns {
		for _, match := range pattern.FindAllString(lower, -1) {
			seen[match] = struct{}{}
		}
	}
	for _, word := range contentWordPattern.FindAllString(lower, -1) {
		if _, stop := relevanceStopwords[word]; stop {
			continue
		}
		seen[word] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for keyword := range seen {
		out = append(out, keyword)
	}
	sort.Strings(out)
	return out
}
