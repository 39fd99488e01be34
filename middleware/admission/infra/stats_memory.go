package infra

import (
	"context"
	"sync"

	"admission-gateway/middleware/admission/domain"
)

// Counters tallies admission outcomes for one bucket (route or key).
type Counters struct {
	Direct   int64
	Queued   int64
	Rejected int64
	TimedOut int64
	Failed   int64
}

// MemoryAdmissionStats is a simple in-memory StatsStore. Useful for
// tests and development; it does not expire entries and is not
// intended for long-running production use.
type MemoryAdmissionStats struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
}

func NewMemoryAdmissionStats() *MemoryAdmissionStats {
	return &MemoryAdmissionStats{byRoute: make(map[string]Counters)}
}

func (s *MemoryAdmissionStats) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	bump(&s.total, ev)
	c := s.byRoute[route]
	bump(&c, ev)
	s.byRoute[route] = c
	return nil
}

func bump(c *Counters, ev domain.StatsEvent) {
	switch {
	case ev.Rejected:
		c.Rejected++
	case ev.Outcome == domain.TimedOut:
		c.TimedOut++
	case ev.Outcome == domain.Failed:
		c.Failed++
	case ev.Wait > 0:
		c.Queued++
	default:
		c.Direct++
	}
}

func (s *MemoryAdmissionStats) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryAdmissionStats) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}
