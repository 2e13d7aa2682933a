package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/ledger-shortener/internal/ratelimit"
)

// RateLimitMemoryStore keeps sliding window timestamps in process memory.
// Suitable for a single server instance.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	requests map[string][]time.Time
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

// WithClock replaces the time source used for windows.
func (s *RateLimitMemoryStore) WithClock(now func() time.Time) *RateLimitMemoryStore {
	s.now = now

	return s
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	timestamps := s.requests[key]
	valid := timestamps[:0]

	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	valid = append(valid, now)
	s.requests[key] = valid

	return int64(len(valid)), nil
}

// Keys returns the number of tracked keys.
func (s *RateLimitMemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
