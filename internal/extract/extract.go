// Package extract pulls raw link strings out of page text.
// Extractors are not resolvers: they return attribute values exactly as they
// appear, in order of appearance and with duplicates preserved.
package extract

import (
	"fmt"
	"iter"
	"regexp"
)

// Extractor yields raw link candidates found in page text.
type Extractor interface {
	Extract(text string) iter.Seq[string]
}

// Kind names an extractor implementation.
const (
	KindPattern = "pattern"
	KindHTML    = "html"
)

// New returns the extractor registered under kind.
func New(kind string) (Extractor, error) {
	switch kind {
	case "", KindPattern:
		return NewPatternExtractor(), nil
	case KindHTML:
		return NewHTMLExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", kind)
	}
}

// hrefPattern matches double-quoted href values made of slashes, letters of
// any script, digits, underscore, dot, dash and colon. Query strings and fragments are not matched.
var hrefPattern = regexp.MustCompile(`href="([/\p{L}\p{N}_.:\-]+)"`)

// PatternExtractor finds href="..." values with a regular expression.
// It is deliberately limited and does not understand markup.
type PatternExtractor struct {
	re *regexp.Regexp
}

// NewPatternExtractor returns an extractor using the default href pattern.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{re: hrefPattern}
}

// Extract lazily scans text for href values.
func (e *PatternExtractor) Extract(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := text
		for {
			loc := e.re.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			if !yield(rest[loc[2]:loc[3]]) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

var _ Extractor = (*PatternExtractor)(nil)
