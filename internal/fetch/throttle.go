package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces out requests to the same host.
type Throttle struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	delay    time.Duration
}

// NewThrottle returns a Throttle allowing one request per delay per host,
// with hostDelays overriding the delay for individual hosts. It returns nil
// when neither paces anything.
func NewThrottle(delay time.Duration, hostDelays map[string]time.Duration) *Throttle {
	if delay <= 0 && len(hostDelays) == 0 {
		return nil
	}
	t := &Throttle{
		limiters: make(map[string]*rate.Limiter),
		delay:    max(delay, 0),
	}
	for host, d := range hostDelays {
		t.SetHostDelay(host, d)
	}
	return t
}

// Wait blocks until a request to rawURL's host may proceed or ctx is done.
func (t *Throttle) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("throttle: %w", err)
	}
	return t.limiter(strings.ToLower(u.Host)).Wait(ctx)
}

// SetHostDelay overrides the delay for a single host, given as host or
// host:port. A non-positive delay restores the default.
func (t *Throttle) SetHostDelay(host string, delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if delay <= 0 {
		delay = t.delay
	}
	t.limiters[strings.ToLower(host)] = newLimiter(delay)
}

func (t *Throttle) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[host]
	if !ok {
		l = newLimiter(t.delay)
		t.limiters[host] = l
	}
	return l
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
