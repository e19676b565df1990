package domain

// QueryType classifies how much retrieval effort a query needs.
type QueryType string

const (
	QuerySimple      QueryType = "simple"
	QueryComplex     QueryType = "complex"
	QueryComparative QueryType = "comparative"
	QueryProcedural  QueryType = "procedural"
)

// QueryComplexity is the ephemeral classification of one query. It is derived
// purely from the query text and never persisted.
type QueryComplexity struct {
	Type       QueryType `json:"type"`
	Confidence float64   `json:"confidence"`
	Keywords   []string  `json:"keywords"`
	WordCount  int       `json:"word_count"`
}
