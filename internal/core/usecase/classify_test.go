package usecase

import (
	"testing"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

func TestClassifyQueryTypes(t *testing.T) {
	c := NewClassifier(domain.DefaultRetrievalTuning())

	cases := []struct {
		name  string
		query string
		want  domain.QueryType
	}{
		{"comparative keyword", "compare IPC and BNS provisions for theft", domain.QueryComparative},
		{"comparative pair", "difference between bail and anticipatory bail", domain.QueryComparative},
		{"procedural", "how to file an FIR at a police station", domain.QueryProcedural},
		{"simple definition", "what is Section 302", domain.QuerySimple},
		{"complex indicators", "explain why the amendment has this effect", domain.QueryComplex},
		{"long fallback", "one two three four five six seven eight nine ten eleven twelve thirteen", domain.QueryComplex},
		{"short fallback", "random words here", domain.QuerySimple},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.query)
			if got.Type != tc.want {
				t.Fatalf("Classify(%q) type = %s, want %s", tc.query, got.Type, tc.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier(domain.DefaultRetrievalTuning())
	query := "explain the difference between Section 420 IPC and Section 318 BNS"
	first := c.Classify(query)
	for i := 0; i < 5; i++ {
		again := c.Classify(query)
		if again.Type != first.Type || again.Confidence != first.Confidence {
			t.Fatalf("classification changed across runs: %+v vs %+v", first, again)
		}
	}
}

func TestClassifyConfidenceCapped(t *testing.T) {
	c := NewClassifier(domain.DefaultRetrievalTuning())
	got := c.Classify("compare contrast difference between versus vs similar different both either")
	if got.Confidence > 0.9 {
		t.Fatalf("confidence = %f, want <= 0.9", got.Confidence)
	}
}

func TestClassifyExtractsLegalTerms(t *testing.T) {
	c := NewClassifier(domain.DefaultRetrievalTuning())
	got := c.Classify("punishment under Section 302 and Article 21")
	if len(got.Keywords) != 2 {
		t.Fatalf("keywords = %v, want 2 legal terms", got.Keywords)
	}
}

func TestDetermineChunkCount(t *testing.T) {
	c := NewClassifier(domain.DefaultRetrievalTuning())

	cases := []struct {
		name       string
		complexity domain.QueryComplexity
		filtered   bool
		want       int
	}{
		{"simple base", domain.QueryComplexity{Type: domain.QuerySimple, Confidence: 0.5}, false, 3},
		{"comparative base", domain.QueryComplexity{Type: domain.QueryComparative, Confidence: 0.5}, false, 8},
		{"high confidence bonus", domain.QueryComplexity{Type: domain.QueryComplex, Confidence: 0.9}, false, 7},
		{"filter narrows", domain.QueryComplexity{Type: domain.QueryProcedural, Confidence: 0.5}, true, 4},
		{"filter floor", domain.QueryComplexity{Type: domain.QuerySimple, Confidence: 0.5}, true, 3},
		{"comparative bonus", domain.QueryComplexity{Type: domain.QueryComparative, Confidence: 0.95}, false, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.DetermineChunkCount(tc.complexity, tc.filtered)
			if got != tc.want {
				t.Fatalf("DetermineChunkCount() = %d, want %d", got, tc.want)
			}
			if got < 3 || got > 10 {
				t.Fatalf("chunk count %d outside [3,10]", got)
			}
		})
	}
}

func TestRelevanceThresholdLoosensOnLowConfidence(t *testing.T) {
	c := NewClassifier(domain.DefaultRetrievalTuning())

	confident := c.RelevanceThreshold(domain.QueryComplexity{Type: domain.QuerySimple, Confidence: 0.8})
	if confident != 1.2 {
		t.Fatalf("confident threshold = %f, want 1.2", confident)
	}
	unsure := c.RelevanceThreshold(domain.QueryComplexity{Type: domain.QuerySimple, Confidence: 0.5})
	if unsure != 1.5 {
		t.Fatalf("low-confidence threshold = %f, want 1.5", unsure)
	}
}
