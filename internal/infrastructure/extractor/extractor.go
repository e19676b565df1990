package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/yking-ly/nyaya/internal/core/ports"
)

// Dispatcher routes a document to the extractor registered for its file
// extension. Unknown extensions fall back to the default extractor, which in
// practice is the plaintext one.
type Dispatcher struct {
	byExtension map[string]ports.TextExtractor
	fallback    ports.TextExtractor
}

func NewDispatcher(fallback ports.TextExtractor) *Dispatcher {
	return &Dispatcher{
		byExtension: make(map[string]ports.TextExtractor),
		fallback:    fallback,
	}
}

func (d *Dispatcher) Register(extension string, extractor ports.TextExtractor) {
	d.byExtension[strings.ToLower(extension)] = extractor
}

func (d *Dispatcher) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if extractor, ok := d.byExtension[ext]; ok {
		return extractor.Extract(ctx, path)
	}
	return d.fallback.Extract(ctx, path)
}
