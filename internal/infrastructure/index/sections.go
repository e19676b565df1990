package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

// SectionIndex is the curated fast path: a hand-maintained JSON file mapping
// trigger keywords to authoritative statute text. A query matches an entry
// when any trigger phrase appears in it as a contiguous case-insensitive
// substring; scattered words are not enough to trigger the gold answer.
type SectionIndex struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries []domain.SectionEntry
}

func NewSectionIndex(path string, logger *slog.Logger) (*SectionIndex, error) {
	idx := &SectionIndex{path: path, logger: logger}
	if err := idx.Reload(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *SectionIndex) Reload() error {
	data, err := os.ReadFile(idx.path)
	if err != nil {
		if os.IsNotExist(err) {
			idx.logger.Warn("sections_index_missing", "path", idx.path)
			idx.mu.Lock()
			idx.entries = nil
			idx.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read sections index: %w", err)
	}

	var entries []domain.SectionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse sections index: %w", err)
	}

	idx.mu.Lock()
	idx.entries = entries
	idx.mu.Unlock()
	idx.logger.Info("sections_index_loaded", "entries", len(entries))
	return nil
}

func (idx *SectionIndex) Match(query string) []domain.SectionEntry {
	lower := strings.ToLower(query)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []domain.SectionEntry
	for _, entry := range idx.entries {
		if matchesAnyTrigger(lower, entry.Keywords) {
			out = append(out, entry)
		}
	}
	return out
}

func matchesAnyTrigger(lowerQuery string, triggers []string) bool {
	for _, trigger := range triggers {
		trigger = strings.ToLower(strings.TrimSpace(trigger))
		if trigger == "" {
			continue
		}
		if strings.Contains(lowerQuery, trigger) {
			return true
		}
	}
	return false
}
