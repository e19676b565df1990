package domain

// Languages accepted by AskOptions.Language.
const (
	LanguageEnglish        = "en"
	LanguageHindi          = "hi"
	LanguageHindiRomanized = "hi-romanized"
)

type AskOptions struct {
	Language string `json:"language,omitempty"`
	Category string `json:"category,omitempty"`
	Persona  string `json:"persona,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AskRequest struct {
	Query          string        `json:"query"`
	History        []ChatMessage `json:"history,omitempty"`
	Options        AskOptions    `json:"options"`
	UserID         string        `json:"user_id,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
}

// AskSink receives progressive output during one Ask call. All callbacks are
// optional. OnSources fires exactly once, before the first token. OnToken
// returning false interrupts generation; already-streamed text is kept but
// the response cache is not updated for interrupted streams.
type AskSink struct {
	OnStatus  func(message string)
	OnSources func(filenames []string)
	OnToken   func(token string) bool
}

// AnswerPath records which retrieval route produced the answer.
type AnswerPath string

const (
	PathFast AnswerPath = "fast"
	PathDeep AnswerPath = "deep"
	PathNone AnswerPath = "none"
)

// CitationReport is the advisory result of checking a generated answer's
// legal citations against the retrieved context.
type CitationReport struct {
	Valid      bool           `json:"valid"`
	Violations []string       `json:"violations,omitempty"`
	Stats      map[string]int `json:"stats"`
}

// RelevanceReport says whether retrieved context covers the query keywords.
type RelevanceReport struct {
	IsRelevant      bool     `json:"is_relevant"`
	Coverage        float64  `json:"coverage"`
	MissingKeywords []string `json:"missing_keywords,omitempty"`
}

type AskResult struct {
	Answer      string         `json:"answer"`
	Sources     []string       `json:"sources"`
	Path        AnswerPath     `json:"path"`
	FromCache   bool           `json:"from_cache"`
	Interrupted bool           `json:"interrupted"`
	// AdaptiveRetried marks answers whose context needed the second
	// targeted retrieval round after a failed relevance check.
	AdaptiveRetried bool `json:"adaptive_retried"`
	Citations   CitationReport `json:"citations"`
	Warning     string         `json:"warning,omitempty"`
}

// CachedAnswer is a response-cache payload.
type CachedAnswer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}
