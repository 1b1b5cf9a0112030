package report

import (
	"encoding/json"
	"io"

	"github.com/masahif/linkscout/internal/crawler"
)

// JSONLines writes one JSON object per event, for example
// {"page":"https://example.com/","links":["https://other.org/"]}.
type JSONLines struct {
	out *errWriter
	enc *json.Encoder
	err error
}

// NewJSONLines creates a JSONLines writer.
func NewJSONLines(w io.Writer) *JSONLines {
	out := &errWriter{w: w}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return &JSONLines{out: out, enc: enc}
}

// OnCrawlEvent implements crawler.Observer.
func (j *JSONLines) OnCrawlEvent(ev crawler.CrawlEvent) {
	if j.err != nil {
		return
	}
	j.err = j.enc.Encode(ev)
}

// Flush returns the first encoding or write error, if any.
func (j *JSONLines) Flush() error {
	if j.err != nil {
		return j.err
	}
	return j.out.err
}
