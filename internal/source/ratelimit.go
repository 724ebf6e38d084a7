package source

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter enforces a minimum delay between requests to the same host so
// repeated fetches do not trip anti-scraping defenses.
type HostLimiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// NewHostLimiter builds a limiter with a default requests-per-second budget
// applied per host. rps <= 0 disables limiting.
func NewHostLimiter(rps float64) *HostLimiter {
	r := rate.Limit(rps)
	if rps <= 0 {
		r = rate.Inf
	}
	return &HostLimiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: 1,
	}
}

// Wait blocks until a token is available for the given URL's host.
func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	return l.WaitRate(ctx, rawURL, 0)
}

// WaitRate is Wait with a per-source rate override; rps <= 0 uses the default.
func (l *HostLimiter) WaitRate(ctx context.Context, rawURL string, rps float64) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	l.mu.Lock()
	limiter, exists := l.limiters[host]
	if !exists {
		r := l.defaultRate
		if rps > 0 {
			r = rate.Limit(rps)
		}
		limiter = rate.NewLimiter(r, l.defaultBurst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
