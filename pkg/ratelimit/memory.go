package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// MemoryStore keeps fixed-window counters in process memory. State is
// lost on restart and scoped to one instance; use RedisStore when more
// than one replica serves traffic.
type MemoryStore struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*window

	now func() time.Time // overridable in tests
}

func NewMemoryStore(limit int, windowDur time.Duration) *MemoryStore {
	return &MemoryStore{
		limit:   limit,
		window:  windowDur,
		entries: make(map[string]*window),
		now:     time.Now,
	}
}

// Take is the single authoritative check-and-increment for key. Absence
// of prior state is not an error, and an exhausted window still counts
// the request so bursts cannot probe for free slots.
func (s *MemoryStore) Take(ctx context.Context, key string) (*Result, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.Sub(e.start) >= s.window {
		e = &window{start: now}
		s.entries[key] = e
	}
	e.count++

	remaining := s.limit - e.count
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   e.count <= s.limit,
		Limit:     s.limit,
		Remaining: remaining,
		ResetAt:   e.start.Add(s.window),
	}, nil
}

// Sweep periodically drops expired windows so the map does not grow
// without bound with distinct clients. It returns when ctx is done.
func (s *MemoryStore) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryStore) removeExpired() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if now.Sub(e.start) >= s.window {
			delete(s.entries, key)
		}
	}
}
