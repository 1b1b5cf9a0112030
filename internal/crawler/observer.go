package crawler

// CrawlEvent carries the external links found on one page, in the order they
// appeared. It is produced only for pages with at least one external link.
type CrawlEvent struct {
	Page  string   `json:"page"`
	Links []string `json:"links"`
}

// Observer receives crawl events synchronously, before the page's local
// links are visited.
type Observer interface {
	OnCrawlEvent(ev CrawlEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev CrawlEvent)

// OnCrawlEvent calls f(ev).
func (f ObserverFunc) OnCrawlEvent(ev CrawlEvent) {
	f(ev)
}
