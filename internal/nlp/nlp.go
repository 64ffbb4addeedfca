// Package nlp extracts a best-guess date/time phrase from free text,
// used to pre-fill the due date while the user types a task title.
package nlp

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DefaultDebounce is the quiet period after the last keystroke before
// the title text is parsed.
const DefaultDebounce = 500 * time.Millisecond

// Result is a detected date/time phrase.
type Result struct {
	Time time.Time
	Text string // matched phrase, verbatim from the input
}

// Extractor parses free text for natural-language date/time phrases.
type Extractor struct {
	parser *when.Parser
}

// NewExtractor builds an extractor with English and common rules.
func NewExtractor() *Extractor {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Extractor{parser: w}
}

// Extract returns the best-guess date/time found in text, resolved
// relative to base. ok is false when no phrase is present. The input is
// never modified; matched phrases stay part of the title.
func (e *Extractor) Extract(text string, base time.Time) (Result, bool) {
	if strings.TrimSpace(text) == "" {
		return Result{}, false
	}
	r, err := e.parser.Parse(text, base)
	if err != nil || r == nil {
		return Result{}, false
	}
	return Result{Time: r.Time, Text: r.Text}, true
}
