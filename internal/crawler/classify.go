package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Site identifies the scheme and host a scan is confined to.
type Site struct {
	Scheme string
	Host   string // includes the port when the start URL names one
}

// NewSite derives a Site from an absolute http(s) URL.
func NewSite(startURL string) (Site, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return Site{}, fmt.Errorf("%w: %v", ErrInvalidStartURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Site{}, fmt.Errorf("%w: %q is not absolute", ErrInvalidStartURL, startURL)
	}
	return Site{Scheme: strings.ToLower(u.Scheme), Host: strings.ToLower(u.Host)}, nil
}

// Origin returns "scheme://host".
func (s Site) Origin() string {
	return s.Scheme + "://" + s.Host
}

// Link is a resolved link and whether it belongs to the scanned site.
type Link struct {
	URL   string
	Local bool
}

// Classify resolves raw against site and tags it local or external.
//
//   - "/path" is joined to the site origin and is local.
//   - "//host/path" takes the site's scheme and is local only for the site's host.
//   - a string starting with the site origin is local as is. The origin must
//     end at a path, query or fragment boundary so the resolved host matches.
//   - anything else is external as is.
//
// The result must parse as an absolute URL, otherwise ErrMalformedURL is returned.
func Classify(raw string, site Site) (Link, error) {
	origin := site.Origin()

	var link Link
	switch {
	case strings.HasPrefix(raw, "//"):
		link.URL = site.Scheme + ":" + raw
	case strings.HasPrefix(raw, "/"):
		link = Link{URL: origin + raw, Local: true}
	case hasOriginPrefix(raw, origin):
		link = Link{URL: raw, Local: true}
	default:
		link = Link{URL: raw}
	}

	u, err := url.Parse(link.URL)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %q: %v", ErrMalformedURL, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Link{}, fmt.Errorf("%w: %q", ErrMalformedURL, raw)
	}

	if strings.HasPrefix(raw, "//") {
		link.Local = strings.EqualFold(u.Host, site.Host)
	}
	return link, nil
}

// hasOriginPrefix reports whether s starts with origin followed by a path,
// query, fragment or nothing, so "https://example.com.evil.org" does not match
// "https://example.com".
func hasOriginPrefix(s, origin string) bool {
	if len(s) < len(origin) || !strings.EqualFold(s[:len(origin)], origin) {
		return false
	}
	if len(s) == len(origin) {
		return true
	}
	switch s[len(origin)] {
	case '/', '?', '#':
		return true
	}
	return false
}
