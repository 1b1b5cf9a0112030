package extract

import (
	"iter"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor reads href attributes with the x/net/html tokenizer.
// Unlike PatternExtractor it accepts single-quoted and unquoted attributes,
// query strings and fragments. Values are trimmed but otherwise untouched.
type HTMLExtractor struct{}

// NewHTMLExtractor creates a tokenizer-based extractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract lazily tokenizes text and yields every non-empty href value
// that is not a pure fragment or a javascript: pseudo-URL.
func (e *HTMLExtractor) Extract(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		z := html.NewTokenizer(strings.NewReader(text))
		for {
			switch z.Next() {
			case html.ErrorToken:
				return
			case html.StartTagToken, html.SelfClosingTagToken:
				_, hasAttr := z.TagName()
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) != "href" {
						continue
					}
					href := strings.TrimSpace(string(val))
					if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
						continue
					}
					if !yield(href) {
						return
					}
				}
			}
		}
	}
}

var _ Extractor = (*HTMLExtractor)(nil)
