package crawler

import (
	"net/url"
	"strings"
)

// visitedSet records normalized URLs fetched during one scan.
type visitedSet map[string]struct{}

// add marks rawURL visited and reports whether it was new.
func (v visitedSet) add(rawURL string) bool {
	key := normalizeURL(rawURL)
	if _, ok := v[key]; ok {
		return false
	}
	v[key] = struct{}{}
	return true
}

// normalizeURL lowercases scheme and host, drops the fragment and maps an
// empty path to "/". Unparseable input is returned unchanged.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
