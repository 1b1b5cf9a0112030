// Package crawler implements a single-site, budget-limited link crawler.
// It fetches pages depth-first, follows links local to the start site and
// reports the external links found on each page to registered observers.
package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/masahif/linkscout/internal/extract"
	"github.com/masahif/linkscout/internal/fetch"
)

// DefaultIgnoredExtensions lists path extensions that are never followed.
var DefaultIgnoredExtensions = []string{".ico", ".xml"}

// ScanStats summarizes the most recent scan.
type ScanStats struct {
	PagesFetched int
	FetchErrors  int
	LinksDropped int // malformed links
	LinksSkipped int // local links with an ignored extension
	Events       int
	StartTime    time.Time
	Duration     time.Duration
}

// Crawler walks one site at a time. It can be reused for several scans but
// must not run two scans concurrently.
type Crawler struct {
	fetcher   fetch.Fetcher
	extractor extract.Extractor
	ignored   map[string]struct{}
	policy    BudgetPolicy
	observers []Observer

	// Per-scan state, reset by Scan
	site    Site
	visited visitedSet
	stats   ScanStats
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithIgnoredExtensions replaces the set of path extensions that are never
// followed. Entries are matched case-insensitively; a missing leading dot is added.
func WithIgnoredExtensions(exts []string) Option {
	return func(c *Crawler) {
		c.ignored = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			c.ignored[ext] = struct{}{}
		}
	}
}

// WithBudgetPolicy selects how budget is charged when following links.
func WithBudgetPolicy(p BudgetPolicy) Option {
	return func(c *Crawler) {
		c.policy = p
	}
}

// WithExtractor sets the link extractor. The default is extract.PatternExtractor.
func WithExtractor(e extract.Extractor) Option {
	return func(c *Crawler) {
		c.extractor = e
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(c *Crawler) {
		c.Subscribe(o)
	}
}

// New creates a Crawler that downloads pages with fetcher.
func New(fetcher fetch.Fetcher, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:   fetcher,
		extractor: extract.NewPatternExtractor(),
		policy:    PerSibling,
	}
	WithIgnoredExtensions(DefaultIgnoredExtensions)(c)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers o. Observers are notified in registration order.
func (c *Crawler) Subscribe(o Observer) {
	if o != nil {
		c.observers = append(c.observers, o)
	}
}

// Stats returns statistics for the current or most recent scan.
func (c *Crawler) Stats() ScanStats {
	return c.stats
}

// frame is one page on the traversal stack whose local links are being followed.
type frame struct {
	locals   []string
	next     int // index of the next local link to consider
	budget   int // budget the page itself was visited with
	consumed int // local links followed so far
}

// Scan crawls the site of startURL with maxBudget.
//
// Pages are visited depth-first in link order. Each page's external links are
// reported before any of its local links are followed. Fetch failures and
// malformed links are logged and skipped. Scan fails only when startURL has no
// scheme and host, or when ctx is cancelled.
func (c *Crawler) Scan(ctx context.Context, startURL string, maxBudget int) error {
	c.site = Site{}
	c.visited = make(visitedSet)
	c.stats = ScanStats{StartTime: time.Now()}
	defer func() { c.stats.Duration = time.Since(c.stats.StartTime) }()

	site, err := NewSite(startURL)
	if err != nil {
		return err
	}
	c.site = site

	slog.Info("Starting scan", "url", startURL, "budget", maxBudget, "policy", c.policy.String())

	var stack []*frame
	if f := c.visit(ctx, startURL, maxBudget); f != nil {
		stack = append(stack, f)
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			slog.Info("Scan cancelled", "pages", c.stats.PagesFetched)
			return err
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.locals) {
			stack = stack[:len(stack)-1]
			continue
		}

		link := top.locals[top.next]
		top.next++

		if c.isIgnored(link) {
			c.stats.LinksSkipped++
			slog.Debug("Skipping ignored link", "url", link)
			continue
		}

		top.consumed++
		if child := c.visit(ctx, link, nextBudget(c.policy, top.budget, top.consumed)); child != nil {
			stack = append(stack, child)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Info("Scan completed",
		"url", startURL,
		"pages", c.stats.PagesFetched,
		"fetch_errors", c.stats.FetchErrors,
		"events", c.stats.Events,
		"duration", time.Since(c.stats.StartTime))
	return nil
}

// visit fetches pageURL and reports its external links. It returns a frame
// for the page's local links, or nil when there is nothing to follow.
func (c *Crawler) visit(ctx context.Context, pageURL string, budget int) *frame {
	if budget <= 0 {
		return nil
	}
	if !c.visited.add(pageURL) {
		return nil
	}

	text, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		c.stats.FetchErrors++
		slog.Warn("Skipping page", "url", pageURL, "error", err)
		return nil
	}
	c.stats.PagesFetched++

	var locals, externals []string
	for raw := range c.extractor.Extract(text) {
		link, err := Classify(raw, c.site)
		if err != nil {
			c.stats.LinksDropped++
			slog.Debug("Dropping link", "page", pageURL, "link", raw, "error", err)
			continue
		}
		if link.Local {
			locals = append(locals, link.URL)
		} else {
			externals = append(externals, link.URL)
		}
	}

	slog.Info("Visited page", "url", pageURL, "budget", budget, "local_links", len(locals), "external_links", len(externals))

	if len(externals) > 0 {
		c.notify(CrawlEvent{Page: pageURL, Links: externals})
	}

	if len(locals) == 0 {
		return nil
	}
	return &frame{locals: locals, budget: budget}
}

func (c *Crawler) notify(ev CrawlEvent) {
	c.stats.Events++
	for _, o := range c.observers {
		o.OnCrawlEvent(ev)
	}
}

// isIgnored reports whether the link's path extension is in the ignored set.
func (c *Crawler) isIgnored(link string) bool {
	if len(c.ignored) == 0 {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	_, ok := c.ignored[strings.ToLower(path.Ext(u.Path))]
	return ok
}
