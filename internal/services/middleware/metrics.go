package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Metrics collects per-route request counts, latency aggregates, and error
// counts for the metrics endpoint. Keys are "METHOD:path".
type Metrics struct {
	mu     sync.Mutex
	routes map[string]*routeStats
}

type routeStats struct {
	count    int64
	errors   int64
	totalDur time.Duration
	minDur   time.Duration
	maxDur   time.Duration
}

// RouteMetrics is one route's aggregate in a Snapshot.
type RouteMetrics struct {
	Count  int64   `json:"count"`
	Errors int64   `json:"errors"`
	MeanMs float64 `json:"mean_ms"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
}

func NewMetrics() *Metrics {
	return &Metrics{routes: make(map[string]*routeStats)}
}

func (m *Metrics) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		m.record(c.Method()+":"+c.Path(), time.Since(start), err != nil || status >= 400)
		return err
	}
}

func (m *Metrics) record(key string, duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.routes[key]
	if !ok {
		stats = &routeStats{minDur: duration, maxDur: duration}
		m.routes[key] = stats
	}

	stats.count++
	stats.totalDur += duration
	if duration < stats.minDur {
		stats.minDur = duration
	}
	if duration > stats.maxDur {
		stats.maxDur = duration
	}
	if failed {
		stats.errors++
	}
}

// Snapshot returns a copy of the aggregates collected so far.
func (m *Metrics) Snapshot() map[string]RouteMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]RouteMetrics, len(m.routes))
	for key, stats := range m.routes {
		snapshot[key] = RouteMetrics{
			Count:  stats.count,
			Errors: stats.errors,
			MeanMs: float64(stats.totalDur.Milliseconds()) / float64(stats.count),
			MinMs:  float64(stats.minDur.Milliseconds()),
			MaxMs:  float64(stats.maxDur.Milliseconds()),
		}
	}
	return snapshot
}
