package extractor

import (
	"context"
	"errors"
	"testing"
)

type extractorFake struct {
	text string
	err  error

	calls []string
}

func (f *extractorFake) Extract(_ context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	return f.text, f.err
}

func TestDispatcherRoutesByExtension(t *testing.T) {
	pdfFake := &extractorFake{text: "from pdf"}
	fallback := &extractorFake{text: "from fallback"}

	d := NewDispatcher(fallback)
	d.Register(".pdf", pdfFake)

	got, err := d.Extract(context.Background(), "bns.PDF")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "from pdf" {
		t.Fatalf("text = %q, want pdf extractor output", got)
	}
	if len(fallback.calls) != 0 {
		t.Fatalf("fallback called for registered extension")
	}
}

func TestDispatcherFallsBackForUnknownExtension(t *testing.T) {
	fallback := &extractorFake{text: "plain"}
	d := NewDispatcher(fallback)

	got, err := d.Extract(context.Background(), "notes.txt")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "plain" {
		t.Fatalf("text = %q, want fallback output", got)
	}
	if len(fallback.calls) != 1 || fallback.calls[0] != "notes.txt" {
		t.Fatalf("fallback calls = %v", fallback.calls)
	}
}

func TestDispatcherPropagatesExtractorError(t *testing.T) {
	wantErr := errors.New("corrupt document")
	d := NewDispatcher(&extractorFake{err: wantErr})

	if _, err := d.Extract(context.Background(), "doc.bin"); !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}
