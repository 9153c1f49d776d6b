// Per-IP connection admission limiting. Adapted from the teacher's
// ConnectionRateLimiter (internal/shared/limits/connection_rate_limiter.go):
// same two-level design (per-IP token bucket plus the Guard's global
// bucket), trimmed to drop the standalone cleanup ticker in favor of
// opportunistic eviction on each Allow call, since this server's connection
// volume does not need a dedicated goroutine for it.
package resourceguard

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const ipEntryTTL = 5 * time.Minute

type ipEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// IPLimiter enforces a per-source-IP token bucket, independent of the
// Guard's global accept-rate bucket.
type IPLimiter struct {
	mu       sync.Mutex
	entries  map[string]*ipEntry
	burst    int
	rate     float64
	lastScan time.Time
}

// NewIPLimiter builds a per-IP limiter allowing burst connections in a
// burst and ratePerSec sustained afterward.
func NewIPLimiter(burst int, ratePerSec float64) *IPLimiter {
	return &IPLimiter{
		entries: make(map[string]*ipEntry),
		burst:   burst,
		rate:    ratePerSec,
	}
}

// Allow reports whether ip may open another connection right now.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.evictStale(now)

	e, ok := l.entries[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(rate.Limit(l.rate), l.burst)}
		l.entries[ip] = e
	}
	e.lastAccess = now
	return e.limiter.Allow()
}

// evictStale drops entries idle past ipEntryTTL. Called with mu held.
func (l *IPLimiter) evictStale(now time.Time) {
	if now.Sub(l.lastScan) < ipEntryTTL {
		return
	}
	l.lastScan = now
	for ip, e := range l.entries {
		if now.Sub(e.lastAccess) > ipEntryTTL {
			delete(l.entries, ip)
		}
	}
}
