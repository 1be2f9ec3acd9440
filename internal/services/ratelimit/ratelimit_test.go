package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

func newTestLimiter(limit, windowSeconds int) (*Limiter, *time.Time) {
	l := New(models.RateLimitConfig{
		Enabled:       true,
		DefaultLimit:  limit,
		WindowSeconds: windowSeconds,
		ExemptPaths:   []string{"/health", "/metrics", "/"},
	})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestSweepDropsIdleIdentifiers(t *testing.T) {
	l, now := newTestLimiter(5, 60)
	defer l.Close()

	require.True(t, l.Allow("busy", 0).Allowed)
	require.True(t, l.Allow("idle", 0).Allowed)

	// Only "busy" sends again after the window; "idle" went quiet.
	*now = now.Add(61 * time.Second)
	require.True(t, l.Allow("busy", 0).Allowed)

	l.sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Contains(t, l.requests, "busy")
	assert.NotContains(t, l.requests, "idle")
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := newTestLimiter(5, 60)

	for i := 0; i < 5; i++ {
		result := l.Allow("caller", 0)
		require.True(t, result.Allowed, "request %d should be admitted", i+1)
		assert.Equal(t, 5, result.Limit)
		assert.Equal(t, 4-i, result.Remaining)
	}
}

func TestRejectAtLimit(t *testing.T) {
	l, now := newTestLimiter(5, 60)
	start := *now

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("caller", 0).Allowed)
	}

	result := l.Allow("caller", 0)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, start.Add(60*time.Second), result.ResetAt)
	assert.Equal(t, 60*time.Second, result.RetryAfter)
}

func TestWindowSlides(t *testing.T) {
	l, now := newTestLimiter(5, 60)
	start := *now

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("caller", 0).Allowed)
	}
	require.False(t, l.Allow("caller", 0).Allowed)

	// One second past the window: every earlier timestamp has aged out.
	*now = start.Add(61 * time.Second)
	result := l.Allow("caller", 0)
	assert.True(t, result.Allowed)
	assert.Equal(t, 4, result.Remaining)
}

func TestRejectionDoesNotConsumeCapacity(t *testing.T) {
	l, now := newTestLimiter(2, 60)
	start := *now

	require.True(t, l.Allow("caller", 0).Allowed)
	require.True(t, l.Allow("caller", 0).Allowed)

	// Hammering while limited must not extend the penalty.
	for i := 0; i < 10; i++ {
		require.False(t, l.Allow("caller", 0).Allowed)
	}

	*now = start.Add(61 * time.Second)
	assert.True(t, l.Allow("caller", 0).Allowed)
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(2, 60)

	require.True(t, l.Allow("alice", 0).Allowed)
	require.True(t, l.Allow("alice", 0).Allowed)
	require.False(t, l.Allow("alice", 0).Allowed)

	result := l.Allow("bob", 0)
	assert.True(t, result.Allowed, "one caller exhausting its window must not affect another")
	assert.Equal(t, 1, result.Remaining)
}

func TestPerIdentityOverride(t *testing.T) {
	l, _ := newTestLimiter(2, 60)

	for i := 0; i < 10; i++ {
		result := l.Allow("vip", 10)
		require.True(t, result.Allowed)
		assert.Equal(t, 10, result.Limit)
	}
	assert.False(t, l.Allow("vip", 10).Allowed)
}

func TestDisabledLimiterAdmitsEverything(t *testing.T) {
	l := New(models.RateLimitConfig{Enabled: false, DefaultLimit: 1, WindowSeconds: 60})

	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("caller", 0).Allowed)
	}
}

func TestExemptPaths(t *testing.T) {
	l, _ := newTestLimiter(5, 60)

	assert.True(t, l.Exempt("/health"))
	assert.True(t, l.Exempt("/metrics"))
	assert.True(t, l.Exempt("/"))
	assert.False(t, l.Exempt("/v1/agents/code-review"))
	assert.False(t, l.Exempt("/healthz"))
}

func TestConcurrentAllowNeverOvershoots(t *testing.T) {
	l, _ := newTestLimiter(50, 60)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("caller", 0).Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, admitted)
}
