package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

const (
	defaultResponseTTL = time.Hour
	defaultMaxEntries  = 200
)

type responseEntry struct {
	Answer    domain.CachedAnswer `json:"answer"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Store is the in-process response cache. Keys normalize the query (case and
// whitespace) and sort the collection filter so equivalent requests share an
// entry. Entries expire after the TTL; Clear drops everything and is wired to
// index-update events so a re-ingested document can't serve stale answers.
type Store struct {
	mu         sync.RWMutex
	responses  map[string]responseEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	persistPath string
	logger      *slog.Logger
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func WithMaxEntries(n int) Option {
	return func(s *Store) { s.maxEntries = n }
}

// WithPersistence loads the cache from path on startup and lets Flush write
// it back, so restarts keep warm answers.
func WithPersistence(path string) Option {
	return func(s *Store) { s.persistPath = path }
}

func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		responses:  make(map[string]responseEntry),
		ttl:        defaultResponseTTL,
		maxEntries: defaultMaxEntries,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.persistPath != "" {
		s.load()
	}
	return s
}

func (s *Store) GetResponse(query string, collections []string) (*domain.CachedAnswer, bool) {
	key := responseKey(query, collections)

	s.mu.RLock()
	entry, ok := s.responses[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.now().After(entry.ExpiresAt) {
		s.mu.Lock()
		delete(s.responses, key)
		s.mu.Unlock()
		return nil, false
	}
	answer := entry.Answer
	return &answer, true
}

func (s *Store) SetResponse(query string, collections []string, answer domain.CachedAnswer) {
	key := responseKey(query, collections)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) >= s.maxEntries {
		s.evictLocked()
	}
	s.responses[key] = responseEntry{
		Answer:    answer,
		ExpiresAt: s.now().Add(s.ttl),
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	count := len(s.responses)
	s.responses = make(map[string]responseEntry)
	s.mu.Unlock()
	if count > 0 {
		s.logger.Info("response_cache_cleared", "entries", count)
	}
}

// Flush writes live entries to the persistence file, if one is configured.
func (s *Store) Flush() error {
	if s.persistPath == "" {
		return nil
	}

	s.mu.RLock()
	snapshot := make(map[string]responseEntry, len(s.responses))
	now := s.now()
	for key, entry := range s.responses {
		if now.Before(entry.ExpiresAt) {
			snapshot[key] = entry
		}
	}
	s.mu.RUnlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal cache snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.persistPath), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(s.persistPath, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

func (s *Store) load() {
	data, err := os.ReadFile(s.persistPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("response_cache_load_failed", "path", s.persistPath, "error", err)
		}
		return
	}
	var snapshot map[string]responseEntry
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.Warn("response_cache_corrupt", "path", s.persistPath, "error", err)
		return
	}
	now := s.now()
	loaded := 0
	for key, entry := range snapshot {
		if now.Before(entry.ExpiresAt) {
			s.responses[key] = entry
			loaded++
		}
	}
	s.logger.Info("response_cache_loaded", "entries", loaded)
}

// evictLocked drops expired entries, then the soonest-to-expire entry if the
// cache is still full. Caller holds the write lock.
func (s *Store) evictLocked() {
	now := s.now()
	for key, entry := range s.responses {
		if now.After(entry.ExpiresAt) {
			delete(s.responses, key)
		}
	}
	if len(s.responses) < s.maxEntries {
		return
	}
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, entry := range s.responses {
		if oldestKey == "" || entry.ExpiresAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.ExpiresAt
		}
	}
	delete(s.responses, oldestKey)
}

func responseKey(query string, collections []string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	if len(collections) == 0 {
		return normalized
	}
	sorted := make([]string, len(collections))
	copy(sorted, collections)
	sort.Strings(sorted)
	return normalized + "|" + strings.Join(sorted, ",")
}
