// Package report renders crawl events for the command line.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/masahif/linkscout/internal/crawler"
)

// Output formats accepted by New.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned by New for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Writer is an observer that renders events to an output stream.
// Flush must be called once the scan has finished; it returns the first
// write error encountered.
type Writer interface {
	crawler.Observer
	Flush() error
}

// New returns a Writer for format. site is the start URL shown in report headers.
func New(format string, w io.Writer, site string) (Writer, error) {
	switch format {
	case "", FormatText:
		return NewText(w), nil
	case FormatJSON:
		return NewJSONLines(w), nil
	case FormatMarkdown:
		return NewMarkdown(w, site), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// errWriter remembers the first error returned by the underlying writer and
// drops all writes after it.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
