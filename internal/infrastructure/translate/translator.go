package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yking-ly/nyaya/internal/core/domain"
	"github.com/yking-ly/nyaya/internal/core/ports"
)

const translateTimeout = 15 * time.Second

// Translator converts user queries between Hindi and English using the
// shared LLM. Translation is best effort: callers keep the original text on
// any failure, so errors are wrapped as degraded rather than surfaced.
type Translator struct {
	generator ports.Generator
}

func New(generator ports.Generator) *Translator {
	return &Translator{generator: generator}
}

func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if t.generator == nil {
		return "", domain.WrapError(domain.ErrDegraded, "translate", fmt.Errorf("no generator configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, translateTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Keep legal terms, act names and section numbers unchanged. Output ONLY the translation.\n\nTEXT: %s\n\nTRANSLATION:",
		languageName(sourceLang), languageName(targetLang), text,
	)
	translated, err := t.generator.Generate(ctx, prompt, nil)
	if err != nil {
		return "", domain.WrapError(domain.ErrDegraded, "translate", err)
	}
	return strings.TrimSpace(translated), nil
}

func languageName(code string) string {
	switch code {
	case domain.LanguageEnglish:
		return "English"
	case domain.LanguageHindi:
		return "Hindi"
	case domain.LanguageHindiRomanized:
		return "romanized Hindi"
	default:
		return "the detected language"
	}
}
