package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// ChunkKind records which retrieval strategy produced a chunk.
type ChunkKind string

const (
	ChunkKindVector  ChunkKind = "vector"
	ChunkKindExact   ChunkKind = "exact_match"
	ChunkKindSummary ChunkKind = "summary"
)

// Chunk is one unit of indexed text. Filename and ChunkIndex are always set
// for vector chunks; SectionID, Act, Language and Summary are optional and
// empty when unknown.
type Chunk struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Filename   string    `json:"filename"`
	ChunkIndex int       `json:"chunk_index"`
	SectionID  string    `json:"section_id,omitempty"`
	Act        string    `json:"act,omitempty"`
	Language   string    `json:"language,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Kind       ChunkKind `json:"kind,omitempty"`
}

// DedupKey identifies a chunk by its full text: two candidates are the same
// chunk if and only if their text is byte-identical.
func (c Chunk) DedupKey() string {
	sum := sha256.Sum256([]byte(c.Text))
	return hex.EncodeToString(sum[:])
}

// Candidate is a chunk scored by vector distance. Lower distance means more
// similar. Distances are never comparable with rerank scores; see
// RankedCandidate.
type Candidate struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"`
}

// RankedCandidate is a chunk scored by the cross-encoder reranker.
// Score is in [0,1] and higher means more relevant.
type RankedCandidate struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// DeduplicateCandidates removes candidates whose text is byte-identical to an
// earlier one, keeping the first occurrence. Callers place higher-priority
// strategies earlier so ties resolve in their favour.
func DeduplicateCandidates(in []Candidate) []Candidate {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]Candidate, 0, len(in))
	for _, cand := range in {
		key := cand.Chunk.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cand)
	}
	return out
}
