// Package ratelimit implements a per-caller sliding-window limiter. Windows
// live in memory only and reset on restart. Eviction is lazy on each
// admission check; a background sweep additionally drops identifiers that
// stopped sending so the map does not grow without bound.
package ratelimit

import (
	"sync"
	"time"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

// Result carries the outcome of one admission check plus the header values
// every response must expose.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// sweepInterval is how often idle identifiers are purged.
const sweepInterval = 5 * time.Minute

type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	config   models.RateLimitConfig
	window   time.Duration
	stop     chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

func New(config models.RateLimitConfig) *Limiter {
	l := &Limiter{
		requests: make(map[string][]time.Time),
		config:   config,
		window:   config.Window(),
		stop:     make(chan struct{}),
		now:      time.Now,
	}
	go l.cleanupLoop()
	return l
}

// Close stops the background sweep. Windows already admitted are unaffected.
func (l *Limiter) Close() {
	close(l.stop)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep evicts expired entries for every identifier and deletes identifiers
// whose window is empty. Allow only evicts the identifier it is checking, so
// callers that go quiet are reclaimed here.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for identifier, entries := range l.requests {
		kept := entries[:0]
		for _, ts := range entries {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(l.requests, identifier)
		} else {
			l.requests[identifier] = kept
		}
	}
}

// Allow performs the check-and-append for one identifier atomically: no two
// concurrent checks can both observe spare capacity and jointly overshoot
// the limit. override is the per-identity limit (0 means the default).
func (l *Limiter) Allow(identifier string, override int) Result {
	limit := l.config.DefaultLimit
	if override > 0 {
		limit = override
	}
	if !l.config.Enabled || limit <= 0 {
		return Result{Allowed: true, Limit: limit, Remaining: limit}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	entries := l.requests[identifier]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		l.requests[identifier] = kept
		return Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    kept[0].Add(l.window),
			RetryAfter: l.window,
		}
	}

	kept = append(kept, now)
	l.requests[identifier] = kept

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(kept),
		ResetAt:   kept[0].Add(l.window),
	}
}

// Exempt reports whether a path bypasses limiting entirely. Health and
// metrics endpoints stay reachable for monitoring even under throttling.
func (l *Limiter) Exempt(path string) bool {
	for _, exempt := range l.config.ExemptPaths {
		if path == exempt {
			return true
		}
	}
	return false
}

// Window returns the configured sliding window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}
