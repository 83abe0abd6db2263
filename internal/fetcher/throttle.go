package fetcher

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// Throttle enforces a politeness delay between requests to the same
// registrable domain, so www.zara.com and static.zara.com share one budget.
type Throttle struct {
	delay time.Duration
	mu    sync.Mutex
	hosts map[string]*domainThrottle
	now   func() time.Time
}

// domainThrottle implements per-domain rate limiting.
type domainThrottle struct {
	lastFetch time.Time
	mu        sync.Mutex
}

// NewThrottle creates a throttle. A zero delay disables waiting.
func NewThrottle(delay time.Duration) *Throttle {
	return &Throttle{
		delay: delay,
		hosts: make(map[string]*domainThrottle),
		now:   time.Now,
	}
}

// Wait blocks until rawURL's domain may be hit again, or ctx is done.
func (t *Throttle) Wait(ctx context.Context, rawURL string) error {
	if t == nil || t.delay <= 0 {
		return ctx.Err()
	}

	key := DomainKey(rawURL)
	t.mu.Lock()
	d, ok := t.hosts[key]
	if !ok {
		d = &domainThrottle{}
		t.hosts[key] = d
	}
	t.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lastFetch.IsZero() {
		if wait := t.delay - t.now().Sub(d.lastFetch); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	d.lastFetch = t.now()
	return nil
}

// DomainKey returns the registrable domain of rawURL ("zara.com" for
// "https://www.zara.com/fr/"), falling back to the lowercase hostname.
func DomainKey(rawURL string) string {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	host = strings.ToLower(host)
	if net.ParseIP(host) != nil {
		return host
	}
	if d, err := publicsuffix.Domain(host); err == nil && d != "" {
		return d
	}
	return host
}
