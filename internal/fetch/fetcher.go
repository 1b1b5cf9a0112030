// Package fetch retrieves page text over HTTP for the crawler.
// Any transport failure or non-success response is reported as *Error so
// callers can treat the page as a dead end without aborting the scan.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"time"
)

// DefaultMaxBodySize caps how much of a response body is read.
const DefaultMaxBodySize int64 = 10 * 1024 * 1024

// maxRedirects is the redirect chain length after which a fetch fails.
const maxRedirects = 10

// ErrTooManyRedirects is returned when a redirect chain exceeds maxRedirects.
var ErrTooManyRedirects = errors.New("too many redirects")

// Fetcher returns the text content of an absolute URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Error describes a failed fetch of a single page.
// StatusCode is zero when the request never produced a response.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Metrics holds timing information for one request.
type Metrics struct {
	TTFB         time.Duration // Time to First Byte
	DownloadTime time.Duration // Total download time
}

// HTTPFetcher implements Fetcher on top of net/http.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	throttle    *Throttle
}

// NewHTTPFetcher creates a fetcher with the given User-Agent and per-request timeout.
func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}

	return &HTTPFetcher{
		client:      client,
		userAgent:   userAgent,
		maxBodySize: DefaultMaxBodySize,
	}
}

// SetThrottle installs a per-host politeness limiter. A nil throttle disables pacing.
func (f *HTTPFetcher) SetThrottle(t *Throttle) {
	f.throttle = t
}

// SetMaxBodySize limits how many bytes of a body are read. Non-positive values restore the default.
func (f *HTTPFetcher) SetMaxBodySize(n int64) {
	if n <= 0 {
		n = DefaultMaxBodySize
	}
	f.maxBodySize = n
}

// Fetch performs a GET request and returns the body as text.
// Redirects are followed and the final page's text is returned.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.throttle != nil {
		if err := f.throttle.Wait(ctx, url); err != nil {
			return "", &Error{URL: url, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	var metrics Metrics
	var firstByte time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByte = time.Now()
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if !firstByte.IsZero() {
		metrics.TTFB = firstByte.Sub(start)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", &Error{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	metrics.DownloadTime = time.Since(start)

	slog.Debug("Fetched page",
		"url", url,
		"final_url", resp.Request.URL.String(),
		"status", resp.StatusCode,
		"bytes", len(body),
		"ttfb", metrics.TTFB,
		"download_time", metrics.DownloadTime)

	return string(body), nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() {
	f.client.CloseIdleConnections()
}

var _ Fetcher = (*HTTPFetcher)(nil)
