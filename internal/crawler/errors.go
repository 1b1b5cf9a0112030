package crawler

import "errors"

var (
	// ErrMalformedURL is returned when a raw link does not resolve to an absolute URL
	ErrMalformedURL = errors.New("malformed URL")
	// ErrInvalidStartURL is returned when no site can be derived from the start URL
	ErrInvalidStartURL = errors.New("invalid start URL")
)
