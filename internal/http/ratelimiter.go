package httpapi

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// SlidingWindowLimiter enforces a maximum number of simulations per client within a time window.
type SlidingWindowLimiter struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu     sync.Mutex
	events map[string][]time.Time
}

// NewSlidingWindowLimiter constructs a limiter allowing up to limit events per client per window.
func NewSlidingWindowLimiter(window time.Duration, limit int, timeSource func() time.Time) *SlidingWindowLimiter {
	if timeSource == nil {
		timeSource = time.Now
	}
	return &SlidingWindowLimiter{
		window: window,
		limit:  limit,
		now:    timeSource,
		events: make(map[string][]time.Time),
	}
}

// Allow reports whether the client may start another simulation.
func (l *SlidingWindowLimiter) Allow(client string) bool {
	if l == nil || l.limit <= 0 || l.window <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	//1.- Drop events that left the window, forgetting idle clients entirely.
	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.events[client][:0]
	for _, ts := range l.events[client] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.limit {
		l.events[client] = kept
		return false
	}
	l.events[client] = append(kept, now)
	return true
}

// Clients reports how many clients currently hold events in the window.
func (l *SlidingWindowLimiter) Clients() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// clientKey identifies the caller for rate limiting by remote host.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
