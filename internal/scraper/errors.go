package scraper

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxSnippetRunes = 120

// ExtractionError reports a field or section that could not be derived from a document.
type ExtractionError struct {
	Field   string
	Reason  string
	Snippet string
	Err     error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extract %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxSnippetRunes {
		return text
	}
	return string([]rune(text)[:maxSnippetRunes]) + "..."
}
