package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/masahif/linkscout/internal/extract"
	"github.com/masahif/linkscout/internal/fetch"
)

func init() {
	// Disable slog output during testing
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeFetcher serves pages from a map and records every fetch.
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	if err := ctx.Err(); err != nil {
		return "", &fetch.Error{URL: url, Err: err}
	}
	text, ok := f.pages[url]
	if !ok {
		return "", &fetch.Error{URL: url, StatusCode: 404}
	}
	return text, nil
}

// recorder collects events.
type recorder struct {
	events []CrawlEvent
}

func (r *recorder) OnCrawlEvent(ev CrawlEvent) {
	r.events = append(r.events, ev)
}

func hrefs(links ...string) string {
	var b strings.Builder
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">x</a>`, l)
	}
	return b.String()
}

func TestScanWorkedExample(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/":  hrefs("/a", "https://other.com/b", "/c.ico"),
		"https://example.com/a": "<p>no links</p>",
	}}
	rec := &recorder{}
	c := New(f, WithObserver(rec))

	if err := c.Scan(context.Background(), "https://example.com/", 5); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	wantFetched := []string{"https://example.com/", "https://example.com/a"}
	if !slices.Equal(f.fetched, wantFetched) {
		t.Errorf("fetched = %v, want %v", f.fetched, wantFetched)
	}

	if len(rec.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(rec.events))
	}
	if rec.events[0].Page != "https://example.com/" {
		t.Errorf("Unexpected event page %s", rec.events[0].Page)
	}
	if !slices.Equal(rec.events[0].Links, []string{"https://other.com/b"}) {
		t.Errorf("Unexpected event links %v", rec.events[0].Links)
	}

	stats := c.Stats()
	if stats.PagesFetched != 2 || stats.LinksSkipped != 1 || stats.Events != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestScanCycleFetchesEachPageOnce(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/a": hrefs("/b", "/a"),
		"https://example.com/b": hrefs("/a", "/b"),
	}}
	c := New(f)

	if err := c.Scan(context.Background(), "https://example.com/a", 100); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []string{"https://example.com/a", "https://example.com/b"}
	if !slices.Equal(f.fetched, want) {
		t.Errorf("fetched = %v, want %v", f.fetched, want)
	}
}

func TestScanVisitedUsesNormalizedURL(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com": hrefs("https://EXAMPLE.com/", "/#top"),
	}}
	c := New(f)

	if err := c.Scan(context.Background(), "https://example.com", 10); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(f.fetched) != 1 {
		t.Errorf("Expected only the start page to be fetched, got %v", f.fetched)
	}
}

func TestScanIgnoredExtensions(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/": hrefs("/favicon.ico", "/sitemap.xml", "/FEED.XML"),
	}}
	c := New(f)

	if err := c.Scan(context.Background(), "https://example.com/", 5); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(f.fetched) != 1 {
		t.Errorf("Expected no recursive fetches, got %v", f.fetched)
	}
	if c.Stats().LinksSkipped != 3 {
		t.Errorf("Expected 3 skipped links, got %d", c.Stats().LinksSkipped)
	}
}

func TestScanIgnoredLinksDoNotConsumeBudget(t *testing.T) {
	// With budget 2 the first followed child gets 1. If the .ico link were
	// charged, /a would start with 0 and never be fetched.
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/":  hrefs("/x.ico", "/a"),
		"https://example.com/a": "",
	}}
	c := New(f)

	if err := c.Scan(context.Background(), "https://example.com/", 2); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	want := []string{"https://example.com/", "https://example.com/a"}
	if !slices.Equal(f.fetched, want) {
		t.Errorf("fetched = %v, want %v", f.fetched, want)
	}
}

func TestScanCustomIgnoredExtensions(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/": hrefs("/doc.pdf", "/feed.xml"),
	}}
	c := New(f, WithIgnoredExtensions([]string{"PDF"}))

	if err := c.Scan(context.Background(), "https://example.com/", 5); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	want := []string{"https://example.com/", "https://example.com/feed.xml"}
	if !slices.Equal(f.fetched, want) {
		t.Errorf("fetched = %v, want %v", f.fetched, want)
	}
}

func TestScanNonPositiveBudget(t *testing.T) {
	for _, budget := range []int{0, -3} {
		t.Run(fmt.Sprint(budget), func(t *testing.T) {
			f := &fakeFetcher{pages: map[string]string{
				"https://example.com/": hrefs("https://other.com/"),
			}}
			rec := &recorder{}
			c := New(f, WithObserver(rec))

			if err := c.Scan(context.Background(), "https://example.com/", budget); err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			if len(f.fetched) != 0 {
				t.Errorf("Expected no fetches, got %v", f.fetched)
			}
			if len(rec.events) != 0 {
				t.Errorf("Expected no events, got %v", rec.events)
			}
		})
	}
}

func TestScanPerSiblingBudget(t *testing.T) {
	// Root has four local children. With budget 3 they receive 2, 1, 0, -1,
	// so only the first two are fetched. /p1 (budget 2) has one child that
	// receives 1 and is fetched; its own child receives 0.
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/":     hrefs("/p1", "/p2", "/p3", "/p4"),
		"https://example.com/p1":   hrefs("/p1/a"),
		"https://example.com/p1/a": hrefs("/p1/a/b"),
		"https://example.com/p2":   hrefs("/p2/a"),
	}}
	c := New(f)

	if err := c.Scan(context.Background(), "https://example.com/", 3); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []string{
		"https://example.com/",
		"https://example.com/p1",
		"https://example.com/p1/a",
		"https://example.com/p2",
	}
	if !slices.Equal(f.fetched, want) {
		t.Errorf("fetched = %v, want %v", f.fetched, want)
	}
}

func TestScanPerDepthBudget(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/":     hrefs("/p1", "/p2", "/p3", "/p4"),
		"https://example.com/p1":   hrefs("/p1/a"),
		"https://example.com/p1/a": hrefs("/p1/a/b"),
		"https://example.com/p2":   "",
		"https://example.com/p3":   "",
		"https://example.com/p4":   "",
	}}
	c := New(f, WithBudgetPolicy(PerDepth))

	if err := c.Scan(context.Background(), "https://example.com/", 3); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []string{
		"https://example.com/",
		"https://example.com/p1",
		"https://example.com/p1/a",
		"https://example.com/p2",
		"https://example.com/p3",
		"https://example.com/p4",
	}
	if !slices.Equal(f.fetched, want) {
		t.Errorf("fetched = %v, want %v", f.fetched, want)
	}
}

func TestScanEventOrder(t *testing.T) {
	// Depth-first, page before children, left to right.
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/":  hrefs("/a", "https://x.com/1", "/b", "https://x.com/2", "https://x.com/1"),
		"https://example.com/a": hrefs("https://y.com/a"),
		"https://example.com/b": hrefs("https://z.com/b"),
	}}
	rec := &recorder{}
	c := New(f, WithObserver(rec))

	if err := c.Scan(context.Background(), "https://example.com/", 10); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []CrawlEvent{
		{Page: "https://example.com/", Links: []string{"https://x.com/1", "https://x.com/2", "https://x.com/1"}},
		{Page: "https://example.com/a", Links: []string{"https://y.com/a"}},
		{Page: "https://example.com/b", Links: []string{"https://z.com/b"}},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("Expected %d events, got %d: %v", len(want), len(rec.events), rec.events)
	}
	for i := range want {
		if rec.events[i].Page != want[i].Page || !slices.Equal(rec.events[i].Links, want[i].Links) {
			t.Errorf("event %d = %+v, want %+v", i, rec.events[i], want[i])
		}
	}
}

func TestScanEventBeforeChildren(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/":  hrefs("https://x.com/", "/a"),
		"https://example.com/a": "",
	}}

	var fetchedAtEvent int
	c := New(f, WithObserver(ObserverFunc(func(ev CrawlEvent) {
		fetchedAtEvent = len(f.fetched)
	})))

	if err := c.Scan(context.Background(), "https://example.com/", 5); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if fetchedAtEvent != 1 {
		t.Errorf("Expected event before children were fetched, saw %d fetches", fetchedAtEvent)
	}
}

func TestScanObserverRegistrationOrder(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/": hrefs("https://x.com/"),
	}}

	var calls []string
	c := New(f, WithObserver(ObserverFunc(func(CrawlEvent) { calls = append(calls, "first") })))
	c.Subscribe(ObserverFunc(func(CrawlEvent) { calls = append(calls, "second") }))
	c.Subscribe(nil)

	if err := c.Scan(context.Background(), "https://example.com/", 1); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if !slices.Equal(calls, []string{"first", "second"}) {
		t.Errorf("Unexpected observer order %v", calls)
	}
}

func TestScanNoExternalLinksNoEvent(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/": hrefs("/a"),
	}}
	rec := &recorder{}
	c := New(f, WithObserver(rec))

	if err := c.Scan(context.Background(), "https://example.com/", 5); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("Expected no events, got %v", rec.events)
	}
}

func TestScanStartPageFetchFailure(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}
	rec := &recorder{}
	c := New(f, WithObserver(rec))

	if err := c.Scan(context.Background(), "https://example.com/", 5); err != nil {
		t.Fatalf("Scan should complete despite fetch failure: %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("Expected no events, got %v", rec.events)
	}
	if c.Stats().FetchErrors != 1 {
		t.Errorf("Expected 1 fetch error, got %d", c.Stats().FetchErrors)
	}
}

func TestScanFetchFailureSkipsOnlyThatPage(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/":   hrefs("/broken", "/ok"),
		"https://example.com/ok": hrefs("https://x.com/"),
	}}
	rec := &recorder{}
	c := New(f, WithObserver(rec))

	if err := c.Scan(context.Background(), "https://example.com/", 10); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Page != "https://example.com/ok" {
		t.Errorf("Expected one event from /ok, got %v", rec.events)
	}
}

func TestScanDropsMalformedLinks(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/": hrefs("tel:12345", "relative.html", "https://x.com/"),
	}}
	rec := &recorder{}
	c := New(f, WithObserver(rec))

	if err := c.Scan(context.Background(), "https://example.com/", 5); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if c.Stats().LinksDropped != 2 {
		t.Errorf("Expected 2 dropped links, got %d", c.Stats().LinksDropped)
	}
	if len(rec.events) != 1 || !slices.Equal(rec.events[0].Links, []string{"https://x.com/"}) {
		t.Errorf("Unexpected events %v", rec.events)
	}
}

func TestScanResetsVisitedBetweenScans(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/": hrefs("https://x.com/"),
	}}
	rec := &recorder{}
	c := New(f, WithObserver(rec))

	for i := 0; i < 2; i++ {
		if err := c.Scan(context.Background(), "https://example.com/", 1); err != nil {
			t.Fatalf("Scan %d failed: %v", i, err)
		}
	}
	if len(f.fetched) != 2 {
		t.Errorf("Expected the start page to be fetched once per scan, got %v", f.fetched)
	}
	if len(rec.events) != 2 {
		t.Errorf("Expected one event per scan, got %d", len(rec.events))
	}
}

func TestScanInvalidStartURL(t *testing.T) {
	c := New(&fakeFetcher{})

	for _, start := range []string{"", "example.com/path", "://bad"} {
		err := c.Scan(context.Background(), start, 5)
		if !errors.Is(err, ErrInvalidStartURL) {
			t.Errorf("Scan(%q) error = %v, want ErrInvalidStartURL", start, err)
		}
	}
}

func TestScanInvalidStartURLResetsStats(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/":  hrefs("/a", "https://x.com/"),
		"https://example.com/a": "",
	}}
	c := New(f)

	if err := c.Scan(context.Background(), "https://example.com/", 5); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if c.Stats().PagesFetched != 2 {
		t.Fatalf("PagesFetched = %d, want 2", c.Stats().PagesFetched)
	}

	if err := c.Scan(context.Background(), "/relative", 5); !errors.Is(err, ErrInvalidStartURL) {
		t.Fatalf("Scan() error = %v, want ErrInvalidStartURL", err)
	}
	stats := c.Stats()
	if stats.PagesFetched != 0 || stats.Events != 0 || stats.FetchErrors != 0 {
		t.Errorf("Stats() after failed scan = %+v, want zero counters", stats)
	}
	if len(c.visited) != 0 {
		t.Errorf("visited set not reset, has %d entries", len(c.visited))
	}
}

func TestScanCancelled(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/":  hrefs("/a", "/b"),
		"https://example.com/a": "",
		"https://example.com/b": "",
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the start page has been fetched.
	c := New(&cancelAfterFirst{inner: f, cancel: cancel})

	err := c.Scan(ctx, "https://example.com/", 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(f.fetched) != 1 {
		t.Errorf("Expected traversal to stop after the start page, got %v", f.fetched)
	}
}

type cancelAfterFirst struct {
	inner  *fakeFetcher
	cancel context.CancelFunc
}

func (c *cancelAfterFirst) Fetch(ctx context.Context, url string) (string, error) {
	text, err := c.inner.Fetch(ctx, url)
	c.cancel()
	return text, err
}

func TestScanWithHTMLExtractor(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://example.com/":      `<a href='/a?x=1'>a</a><a href="https://x.com/q?y=2#f">x</a>`,
		"https://example.com/a?x=1": "",
	}}
	rec := &recorder{}
	c := New(f, WithExtractor(extract.NewHTMLExtractor()), WithObserver(rec))

	if err := c.Scan(context.Background(), "https://example.com/", 5); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	want := []string{"https://example.com/", "https://example.com/a?x=1"}
	if !slices.Equal(f.fetched, want) {
		t.Errorf("fetched = %v, want %v", f.fetched, want)
	}
	if len(rec.events) != 1 || rec.events[0].Links[0] != "https://x.com/q?y=2#f" {
		t.Errorf("Unexpected events %v", rec.events)
	}
}

func TestScanOverHTTP(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, hrefs("/about", server.URL+"/contact", "https://external.com/page", "/favicon.ico"))
		case "/about":
			fmt.Fprint(w, hrefs("/", "https://github.com/someone"))
		case "/contact":
			fmt.Fprint(w, hrefs("/missing"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := fetch.NewHTTPFetcher("Test-Scout/1.0", 5*time.Second)
	defer fetcher.Close()

	rec := &recorder{}
	c := New(fetcher, WithObserver(rec))

	if err := c.Scan(context.Background(), server.URL+"/", 10); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	stats := c.Stats()
	if stats.PagesFetched != 3 {
		t.Errorf("Expected 3 pages fetched, got %d", stats.PagesFetched)
	}
	if stats.FetchErrors != 1 {
		t.Errorf("Expected 1 fetch error (/missing), got %d", stats.FetchErrors)
	}
	if len(rec.events) != 2 {
		t.Fatalf("Expected 2 events, got %d: %v", len(rec.events), rec.events)
	}
	if rec.events[0].Page != server.URL+"/" || rec.events[1].Page != server.URL+"/about" {
		t.Errorf("Unexpected event pages %v", rec.events)
	}
}
