// Package metrics aggregates per-route request statistics for the devserver.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var latencyBucketUpperBoundsMs = []int64{
	10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000,
}

// RouteStats tracks request outcomes for one route pattern.
type RouteStats struct {
	Total             int64 `json:"total"`
	ClientErrors      int64 `json:"client_errors"`
	ServerErrors      int64 `json:"server_errors"`
	Conflicts         int64 `json:"conflicts"`
	Expired           int64 `json:"expired"`
	TotalLatencyMs    int64 `json:"total_latency_ms"`
	MaxLatencyMs      int64 `json:"max_latency_ms"`
	LastLatencyMs     int64 `json:"last_latency_ms"`
	P95ProxyLatencyMs int64 `json:"p95_proxy_latency_ms"`
}

// ErrorRatio returns (client+server errors)/total in [0,1].
func (s RouteStats) ErrorRatio() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.ClientErrors+s.ServerErrors) / float64(s.Total)
}

// AvgLatencyMs returns average latency in milliseconds.
func (s RouteStats) AvgLatencyMs() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.TotalLatencyMs) / float64(s.Total)
}

// Snapshot is a point-in-time copy of the aggregated stats.
type Snapshot struct {
	UpdatedAt time.Time             `json:"updated_at"`
	All       RouteStats            `json:"all"`
	Routes    map[string]RouteStats `json:"routes"`
}

// HasData reports whether any request was observed.
func (s Snapshot) HasData() bool {
	return s.All.Total > 0
}

type series struct {
	stats   RouteStats
	buckets []int64
}

func newSeries() *series {
	return &series{buckets: make([]int64, len(latencyBucketUpperBoundsMs)+1)}
}

func (s *series) observe(status int, latencyMs int64) {
	s.stats.Total++
	s.stats.TotalLatencyMs += latencyMs
	s.stats.LastLatencyMs = latencyMs
	if latencyMs > s.stats.MaxLatencyMs {
		s.stats.MaxLatencyMs = latencyMs
	}
	switch {
	case status >= 500:
		s.stats.ServerErrors++
	case status >= 400:
		s.stats.ClientErrors++
	}
	switch status {
	case http.StatusConflict:
		s.stats.Conflicts++
	case http.StatusGone:
		s.stats.Expired++
	}
	s.buckets[latencyBucketIndex(latencyMs)]++
	s.stats.P95ProxyLatencyMs = p95ProxyFromBuckets(s.buckets, s.stats.Total)
}

// RequestMetrics records request outcomes keyed by route pattern.
type RequestMetrics struct {
	clock clockwork.Clock

	mu        sync.Mutex
	updatedAt time.Time
	all       *series
	routes    map[string]*series
}

// NewRequestMetrics creates an empty recorder. A nil clock uses real time.
func NewRequestMetrics(clock clockwork.Clock) *RequestMetrics {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RequestMetrics{
		clock:  clock,
		all:    newSeries(),
		routes: make(map[string]*series),
	}
}

// Observe records one finished request.
func (m *RequestMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	latencyMs := duration.Milliseconds()
	if latencyMs < 0 {
		latencyMs = 0
	}
	if route == "" {
		route = "unmatched"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedAt = m.clock.Now().UTC()
	m.all.observe(status, latencyMs)
	s, ok := m.routes[route]
	if !ok {
		s = newSeries()
		m.routes[route] = s
	}
	s.observe(status, latencyMs)
}

// Snapshot returns a copy of the current stats.
func (m *RequestMetrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Routes: map[string]RouteStats{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		UpdatedAt: m.updatedAt,
		All:       m.all.stats,
		Routes:    make(map[string]RouteStats, len(m.routes)),
	}
	for route, s := range m.routes {
		snap.Routes[route] = s.stats
	}
	return snap
}

// Reset drops everything recorded so far.
func (m *RequestMetrics) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedAt = time.Time{}
	m.all = newSeries()
	m.routes = make(map[string]*series)
}

func latencyBucketIndex(latencyMs int64) int {
	for i, upper := range latencyBucketUpperBoundsMs {
		if latencyMs <= upper {
			return i
		}
	}
	return len(latencyBucketUpperBoundsMs)
}

func p95ProxyFromBuckets(buckets []int64, total int64) int64 {
	if total <= 0 {
		return 0
	}
	target := int64(float64(total) * 0.95)
	if target <= 0 {
		target = 1
	}

	var cumulative int64
	for i, count := range buckets {
		cumulative += count
		if cumulative < target {
			continue
		}
		if i >= len(latencyBucketUpperBoundsMs) {
			return latencyBucketUpperBoundsMs[len(latencyBucketUpperBoundsMs)-1]
		}
		return latencyBucketUpperBoundsMs[i]
	}
	return latencyBucketUpperBoundsMs[len(latencyBucketUpperBoundsMs)-1]
}
