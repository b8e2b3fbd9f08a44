package router

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/lifecompass/backend/internal/providers"
)

// maxLatencySamples bounds the per-provider sample window used for percentiles
const maxLatencySamples = 1000

// ProviderStats tracks calls made to one provider
type ProviderStats struct {
	Attempts    int64         `json:"attempts"`
	Successes   int64         `json:"successes"`
	Failures    int64         `json:"failures"`
	Fallbacks   int64         `json:"fallbacks"`
	LastLatency time.Duration `json:"last_latency"`
	Average     time.Duration `json:"average_latency"`
	P95         time.Duration `json:"p95_latency"`
	LastError   string        `json:"last_error,omitempty"`
	LastUsed    time.Time     `json:"last_used"`

	total   time.Duration
	samples []time.Duration
}

// Snapshot is a point-in-time copy of the router statistics
type Snapshot struct {
	Providers      map[string]ProviderStats `json:"providers"`
	TotalRequests  int64                    `json:"total_requests"`
	TotalSuccesses int64                    `json:"total_successes"`
	TotalFailures  int64                    `json:"total_failures"`
	TotalFallbacks int64                    `json:"total_fallbacks"`
}

type stats struct {
	mu        sync.RWMutex
	providers map[string]*ProviderStats
	requests  int64
	successes int64
	failures  int64
	fallbacks int64
}

func newStats() *stats {
	return &stats{providers: make(map[string]*ProviderStats)}
}

func (s *stats) entry(id string) *ProviderStats {
	ps, ok := s.providers[id]
	if !ok {
		ps = &ProviderStats{samples: make([]time.Duration, 0, 16)}
		s.providers[id] = ps
	}
	return ps
}

func (s *stats) record(id string, result providers.GenerationResult, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	ps := s.entry(id)
	ps.Attempts++
	ps.LastLatency = latency
	ps.LastUsed = time.Now()
	ps.total += latency
	ps.Average = ps.total / time.Duration(ps.Attempts)

	ps.samples = append(ps.samples, latency)
	if len(ps.samples) > maxLatencySamples {
		ps.samples = ps.samples[1:]
	}
	ps.P95 = percentile(ps.samples, 0.95)

	if result.Success {
		ps.Successes++
		s.successes++
		return
	}
	ps.Failures++
	ps.LastError = result.ErrorMessage
	s.failures++
}

func (s *stats) recordFallback(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entry(id).Fallbacks++
	s.fallbacks++
}

func (s *stats) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Snapshot{
		Providers:      make(map[string]ProviderStats, len(s.providers)),
		TotalRequests:  s.requests,
		TotalSuccesses: s.successes,
		TotalFailures:  s.failures,
		TotalFallbacks: s.fallbacks,
	}
	for id, ps := range s.providers {
		c := *ps
		c.samples = nil
		out.Providers[id] = c
	}
	return out
}

// percentile returns the nearest-rank percentile of samples
func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
