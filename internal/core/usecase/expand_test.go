package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

type expandGeneratorFake struct {
	response string
	err      error
	prompt   string
}

func (f *expandGeneratorFake) Generate(_ context.Context, prompt string, _ []string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func (f *expandGeneratorFake) GenerateStream(_ context.Context, _ string, _ []string, _ func(string) bool) (string, error) {
	return "", errors.New("not used")
}

func TestExpandUsesLLMOutput(t *testing.T) {
	gen := &expandGeneratorFake{response: "theft punishment BNS\nSection 303 BNS theft\nstealing property offence\nextra line ignored"}
	e := NewExpander(gen, discardLogger())

	got := e.Expand(context.Background(), "what is theft", domain.QueryComplexity{Type: domain.QuerySimple})
	if len(got) != 3 {
		t.Fatalf("expansions = %v, want 3", got)
	}
	if got[0] != "theft punishment BNS" {
		t.Fatalf("first expansion = %q", got[0])
	}
}

func TestExpandFallsBackOnLLMError(t *testing.T) {
	gen := &expandGeneratorFake{err: errors.New("model offline")}
	e := NewExpander(gen, discardLogger())

	complexity := domain.QueryComplexity{Type: domain.QueryComparative}
	got := e.Expand(context.Background(), "bail and anticipatory bail", complexity)
	if len(got) != 2 {
		t.Fatalf("heuristic expansions = %v, want conjunction split", got)
	}
	if got[0] != "bail" || got[1] != "anticipatory bail" {
		t.Fatalf("split = %v", got)
	}
}

func TestExpandHeuristicVersusSplit(t *testing.T) {
	e := NewExpander(nil, discardLogger())
	got := e.Expand(context.Background(), "IPC vs BNS", domain.QueryComplexity{Type: domain.QueryComparative})
	if len(got) != 2 || got[0] != "ipc" || got[1] != "bns" {
		t.Fatalf("versus split = %v", got)
	}
}

func TestExpandHeuristicComplexHalves(t *testing.T) {
	e := NewExpander(nil, discardLogger())
	got := e.Expand(context.Background(), "explain the constitutional basis of preventive detention laws", domain.QueryComplexity{Type: domain.QueryComplex})
	if len(got) != 2 {
		t.Fatalf("halved expansions = %v, want 2", got)
	}
}

func TestExpandNeverErrorsOrExceedsThree(t *testing.T) {
	e := NewExpander(nil, discardLogger())
	complexity := domain.QueryComplexity{
		Type:     domain.QueryComparative,
		Keywords: []string{"section 302", "section 103", "article 21"},
	}
	got := e.Expand(context.Background(), "a and b", complexity)
	if len(got) > 3 {
		t.Fatalf("expansions = %v, want at most 3", got)
	}
}

func TestExpandEmptyLLMOutputFallsBack(t *testing.T) {
	gen := &expandGeneratorFake{response: "\n\n"}
	e := NewExpander(gen, discardLogger())
	got := e.Expand(context.Background(), "short", domain.QueryComplexity{Type: domain.QuerySimple})
	if len(got) != 0 {
		t.Fatalf("expansions = %v, want none for a simple short query", got)
	}
}
