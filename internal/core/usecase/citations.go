package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

var citationPatterns = map[string]*regexp.Regexp{
	"articles": regexp.MustCompile(`(?i)Article\s+\d+[A-Za-z]?(?:\([^)]+\))?`),
	"sections": regexp.MustCompile(`(?i)Section\s+\d+[A-Za-z]?(?:\([^)]+\))?`),
	"chapters": regexp.MustCompile(`(?i)Chapter\s+\d+[A-Za-z]?`),
}

// citationWarning is appended to answers that cite provisions absent from
// the retrieved context.
const citationWarning = "\n\nWARNING: This response may contain inaccurate legal citations. Please verify independently."

// VerifyCitations scans a generated answer for Article/Section/Chapter
// citations and flags any that do not appear (case-insensitively) in the
// retrieved context. The check is advisory: it never blocks the response.
func VerifyCitations(answer, context string) domain.CitationReport {
	report := domain.CitationReport{
		Valid: true,
		Stats: make(map[string]int, len(citationPatterns)),
	}

	for kind, pattern := range citationPatterns {
		cited := uniqueMatches(pattern, answer)
		report.Stats[kind+"_cited"] = len(cited)
		if len(cited) == 0 {
			continue
		}

		grounded := make(map[string]struct{})
		for _, match := range pattern.FindAllString(context, -1) {
			grounded[strings.ToLower(match)] = struct{}{}
		}
		for _, citation := range cited {
			if _, ok := grounded[strings.ToLower(citation)]; !ok {
				report.Valid = false
				report.Violations = append(report.Violations,
					fmt.Sprintf("%s cited but not found in context", citation))
			}
		}
	}
	return report
}

// CitationWarning returns the user-visible warning suffix for an invalid
// report, or empty when all citations are grounded.
func CitationWarning(report domain.CitationReport) string {
	if report.Valid {
		return ""
	}
	return citationWarning
}

func uniqueMatches(pattern *regexp.Regexp, text string) []string {
	matches := pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		key := strings.ToLower(match)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, match)
	}
	return out
}
