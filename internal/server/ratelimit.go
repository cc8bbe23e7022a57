package server

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTimeout = 10 * time.Minute

// ipLimiter keeps one token bucket per source network address. Entries for
// idle sources are dropped so the map stays bounded.
type ipLimiter struct {
	mu    sync.Mutex
	perIP map[string]*limiterEntry
	rps   rate.Limit
	burst int
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	l := &ipLimiter{
		perIP: make(map[string]*limiterEntry),
		rps:   rate.Limit(rps),
		burst: burst,
	}
	go l.janitor()
	return l
}

// Allow reports whether a request from remoteAddr fits in its bucket.
func (l *ipLimiter) Allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	l.mu.Lock()
	entry, ok := l.perIP[host]
	if !ok {
		entry = &limiterEntry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.perIP[host] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.lim.Allow()
}

func (l *ipLimiter) janitor() {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		for host, entry := range l.perIP {
			if time.Since(entry.lastSeen) > limiterIdleTimeout {
				delete(l.perIP, host)
			}
		}
		l.mu.Unlock()
	}
}
