package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepEvery = 1024

// MemoryStore keeps hit logs in process. Budgets are per instance.
type MemoryStore struct {
	mu    sync.Mutex
	hits  map[string][]time.Time
	calls int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: make(map[string][]time.Time)}
}

func (s *MemoryStore) Take(_ context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, kept := Slide(s.hits[key], now, window, limit)
	s.hits[key] = kept

	s.calls++
	if s.calls%sweepEvery == 0 {
		s.sweep(now, window)
	}
	return d, nil
}

// sweep forgets identities with no hits inside the window.
func (s *MemoryStore) sweep(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	for key, hits := range s.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(s.hits, key)
		}
	}
}

// Len reports how many identities are tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}
