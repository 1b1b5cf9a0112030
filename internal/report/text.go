package report

import (
	"fmt"
	"io"

	"github.com/masahif/linkscout/internal/crawler"
)

// Text prints each event as it arrives, preceded by a blank line:
//
//	Page:
//		https://example.com/
//	Links:
//		https://other.org/
type Text struct {
	out *errWriter
}

// NewText creates a Text writer.
func NewText(w io.Writer) *Text {
	return &Text{out: &errWriter{w: w}}
}

// OnCrawlEvent implements crawler.Observer.
func (t *Text) OnCrawlEvent(ev crawler.CrawlEvent) {
	fmt.Fprintf(t.out, "\nPage:\n\t%s\nLinks:\n", ev.Page)
	for _, link := range ev.Links {
		fmt.Fprintf(t.out, "\t%s\n", link)
	}
}

// Flush returns the first write error, if any.
func (t *Text) Flush() error {
	return t.out.err
}
