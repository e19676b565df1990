package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yking-ly/nyaya/internal/core/domain"
	"github.com/yking-ly/nyaya/internal/core/ports"
)

// ExactMatchRouter is the fast path: keyword-triggered lookups against the
// curated section index plus a score-based scan of the uploads index. Both
// layers are best-effort optimizations; a broken index is skipped, never a
// hard dependency.
type ExactMatchRouter struct {
	sections ports.SectionIndex
	uploads  ports.UploadsIndex
	logger   *slog.Logger
}

func NewExactMatchRouter(sections ports.SectionIndex, uploads ports.UploadsIndex, logger *slog.Logger) *ExactMatchRouter {
	return &ExactMatchRouter{sections: sections, uploads: uploads, logger: logger}
}

// TryExactMatch synthesizes gold-standard candidates for every section index
// entry whose trigger keyword appears in the query. They carry distance 0 so
// they survive any downstream ranking.
func (r *ExactMatchRouter) TryExactMatch(query string) []domain.Candidate {
	if r.sections == nil {
		return nil
	}
	entries := r.sections.Match(query)
	if len(entries) == 0 {
		return nil
	}

	out := make([]domain.Candidate, 0, len(entries))
	for _, entry := range entries {
		r.logger.Info("exact_match_hit", "section", entry.SectionID, "act", entry.Act)
		out = append(out, domain.Candidate{
			Chunk: domain.Chunk{
				ID:        fmt.Sprintf("exact-%s-%s", strings.ToLower(entry.Act), entry.SectionID),
				Text:      formatSectionRecord(entry),
				Filename:  "sections_index",
				SectionID: entry.SectionID,
				Act:       entry.Act,
				Kind:      domain.ChunkKindExact,
			},
			Distance: 0,
		})
	}
	return out
}

// SearchUploads scores ingested-document summaries against the query. When a
// matched document is one of the core reference acts, the gatherer can skip
// the broad unfiltered search and search only within those documents.
func (r *ExactMatchRouter) SearchUploads(query string) (matches []domain.UploadMatch, hasCoreDocument bool) {
	if r.uploads == nil {
		return nil, false
	}
	matches = r.uploads.Search(query)
	for _, m := range matches {
		if m.CoreDocument {
			hasCoreDocument = true
			break
		}
	}
	return matches, hasCoreDocument
}

// SummaryCandidates turns uploads-index matches into injectable candidates
// carrying each document's summary at a near-unbeatable distance.
func (r *ExactMatchRouter) SummaryCandidates(matches []domain.UploadMatch) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(matches))
	for _, m := range matches {
		if m.Record.Summary == "" {
			continue
		}
		out = append(out, domain.Candidate{
			Chunk: domain.Chunk{
				ID:       "summary-" + m.Record.Filename,
				Text:     fmt.Sprintf("DOCUMENT SUMMARY for %s:\n%s", m.Record.Filename, m.Record.Summary),
				Filename: m.Record.Filename,
				Act:      m.Record.Act,
				Summary:  m.Record.Summary,
				Kind:     domain.ChunkKindSummary,
			},
			Distance: 0.0001,
		})
	}
	return out
}

func formatSectionRecord(entry domain.SectionEntry) string {
	var b strings.Builder
	b.WriteString("OFFICIAL LEGAL RECORD:\n")
	fmt.Fprintf(&b, "Act: %s\n", entry.Act)
	fmt.Fprintf(&b, "Section: %s\n", entry.SectionID)
	fmt.Fprintf(&b, "Title: %s\n", entry.Title)
	fmt.Fprintf(&b, "Text: %s", entry.Content)
	return b.String()
}
