package usecase

import (
	"strings"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

var languageInstructions = map[string]string{
	domain.LanguageEnglish:        "Answer in clear, plain English.",
	domain.LanguageHindi:          "Answer in Hindi using Devanagari script.",
	domain.LanguageHindiRomanized: "Answer in Hindi written with Latin letters (Hinglish).",
}

// buildGroundingPrompt assembles the generation prompt: system rules, the
// retrieved context, recent conversation turns and the user question. The
// rules pin the model to the supplied context so the citation check has
// something meaningful to verify.
func buildGroundingPrompt(query, context string, history []domain.ChatMessage, language, category string) string {
	var b strings.Builder

	b.WriteString("You are a legal information assistant for Indian law. ")
	b.WriteString("Answer ONLY from the provided context. ")
	b.WriteString("Cite sections and articles exactly as they appear in the context; never invent citations. ")
	b.WriteString("If the context does not contain the answer, say so plainly. ")
	b.WriteString("You provide legal information, not legal advice.\n")

	if instruction, ok := languageInstructions[language]; ok {
		b.WriteString(instruction)
		b.WriteString("\n")
	}
	if category != "" {
		b.WriteString("The user is asking specifically about: ")
		b.WriteString(strings.ToUpper(category))
		b.WriteString(".\n")
	}

	b.WriteString("\nCONTEXT:\n")
	b.WriteString(context)
	b.WriteString("\n")

	if len(history) > 0 {
		b.WriteString("\nCONVERSATION SO FAR:\n")
		for _, msg := range history {
			b.WriteString(msg.Role)
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nQUESTION: ")
	b.WriteString(query)
	b.WriteString("\nANSWER:")
	return b.String()
}
