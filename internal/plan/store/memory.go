package store

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	value     int64
	expiresAt time.Time
}

// InMemory keeps usage counters in process. It backs single-instance
// deployments and serves as the fallback while Redis is unreachable.
type InMemory struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{counters: make(map[string]*counter), now: time.Now}
}

func (s *InMemory) live(key string) *counter {
	c, ok := s.counters[key]
	if !ok || (!c.expiresAt.IsZero() && !s.now().Before(c.expiresAt)) {
		return nil
	}
	return c
}

// Increment adds one to key and returns the new value. A new counter expires at expiresAt.
func (s *InMemory) Increment(_ context.Context, key string, expiresAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.live(key)
	if c == nil {
		c = &counter{expiresAt: expiresAt}
		s.counters[key] = c
	}
	c.value++
	return c.value, nil
}

// Decrement subtracts one from key, never going below zero.
func (s *InMemory) Decrement(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.live(key)
	if c == nil {
		return 0, nil
	}
	if c.value > 0 {
		c.value--
	}
	return c.value, nil
}

func (s *InMemory) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.live(key); c != nil {
		return c.value, nil
	}
	return 0, nil
}
