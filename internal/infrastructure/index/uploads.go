package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

const (
	coreActBonus      = 100
	filenameTokenHit  = 3
	summaryWordHit    = 1
	maxUploadsMatches = 5
)

// Acronyms of the statutes treated as core reference documents. A query that
// names one of these and matches the corresponding upload triggers the
// focused-search path.
var coreActAcronyms = []string{"ipc", "bns", "crpc", "bnss", "iea", "bsa"}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// UploadsIndex tracks every ingested document with a short summary and
// scores them against incoming queries: a core-act acronym hit dominates,
// filename tokens weigh more than summary words. The index is a JSON file so
// the API and the indexer can share it through the common volume.
type UploadsIndex struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	records []domain.UploadRecord
}

func NewUploadsIndex(path string, logger *slog.Logger) (*UploadsIndex, error) {
	idx := &UploadsIndex{path: path, logger: logger}
	if err := idx.Reload(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *UploadsIndex) Reload() error {
	data, err := os.ReadFile(idx.path)
	if err != nil {
		if os.IsNotExist(err) {
			idx.mu.Lock()
			idx.records = nil
			idx.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read uploads index: %w", err)
	}

	var records []domain.UploadRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse uploads index: %w", err)
	}

	idx.mu.Lock()
	idx.records = records
	idx.mu.Unlock()
	idx.logger.Info("uploads_index_loaded", "records", len(records))
	return nil
}

// Add registers or replaces a record by filename and persists the index.
func (idx *UploadsIndex) Add(record domain.UploadRecord) error {
	idx.mu.Lock()
	replaced := false
	for i, existing := range idx.records {
		if existing.Filename == record.Filename {
			idx.records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		idx.records = append(idx.records, record)
	}
	snapshot := make([]domain.UploadRecord, len(idx.records))
	copy(snapshot, idx.records)
	idx.mu.Unlock()

	return idx.persist(snapshot)
}

func (idx *UploadsIndex) Search(query string) []domain.UploadMatch {
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]domain.UploadMatch, 0, len(idx.records))
	for _, record := range idx.records {
		score, core := scoreRecord(record, queryTokens)
		if score <= 0 {
			continue
		}
		matches = append(matches, domain.UploadMatch{
			Record:       record,
			Score:        score,
			CoreDocument: core,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > maxUploadsMatches {
		matches = matches[:maxUploadsMatches]
	}
	return matches
}

func scoreRecord(record domain.UploadRecord, queryTokens map[string]struct{}) (score int, core bool) {
	recordTokens := tokenSet(strings.TrimSuffix(record.Filename, filepath.Ext(record.Filename)) + " " + record.Act)

	for _, acronym := range coreActAcronyms {
		if _, inQuery := queryTokens[acronym]; !inQuery {
			continue
		}
		if _, inRecord := recordTokens[acronym]; inRecord {
			score += coreActBonus
			core = true
			break
		}
	}

	for token := range recordTokens {
		if len(token) < 3 {
			continue
		}
		if _, ok := queryTokens[token]; ok {
			score += filenameTokenHit
		}
	}

	for _, word := range tokenPattern.FindAllString(strings.ToLower(record.Summary), -1) {
		if len(word) < 4 {
			continue
		}
		if _, ok := queryTokens[word]; ok {
			score += summaryWordHit
		}
	}
	return score, core
}

func (idx *UploadsIndex) persist(records []domain.UploadRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal uploads index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := os.WriteFile(idx.path, data, 0o644); err != nil {
		return fmt.Errorf("write uploads index: %w", err)
	}
	return nil
}

func tokenSet(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		out[token] = struct{}{}
	}
	return out
}
