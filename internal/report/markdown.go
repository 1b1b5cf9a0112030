package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/masahif/linkscout/internal/crawler"
)

// Markdown collects events and renders a single document on Flush: a summary
// table followed by one section per page listing its external links.
type Markdown struct {
	w      io.Writer
	site   string
	events []crawler.CrawlEvent
}

// NewMarkdown creates a Markdown writer for the scan of site.
func NewMarkdown(w io.Writer, site string) *Markdown {
	return &Markdown{w: w, site: site}
}

// OnCrawlEvent implements crawler.Observer.
func (m *Markdown) OnCrawlEvent(ev crawler.CrawlEvent) {
	ev.Links = append([]string(nil), ev.Links...)
	m.events = append(m.events, ev)
}

// Flush renders the collected events.
func (m *Markdown) Flush() error {
	md := markdown.NewMarkdown(m.w)

	md.H1("External links")
	md.PlainText("")

	total := 0
	for _, ev := range m.events {
		total += len(ev.Links)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + m.site + "`"},
			{"Pages with external links", strconv.Itoa(len(m.events))},
			{"External links", strconv.Itoa(total)},
		},
	})
	md.PlainText("")

	if len(m.events) == 0 {
		md.PlainText("No external links found.")
		return md.Build()
	}

	for _, ev := range m.events {
		md.H2(ev.Page)
		md.PlainText("")
		md.BulletList(ev.Links...)
		md.PlainText("")
	}
	return md.Build()
}
