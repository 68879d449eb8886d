// Package ratelimit implements a per-client fixed-window request limiter.
//
// The window bookkeeping lives behind CounterStore so the limiter logic
// stays pure: a single instance uses MemoryStore, a multi-instance
// deployment plugs in a shared store without touching the limiter.
package ratelimit

import (
	"sync"
	"time"
)

// CounterStore tracks request counts per client key within fixed windows.
type CounterStore interface {
	// Incr increments the counter for key, starting a fresh window of the
	// given duration when none is active, and returns the post-increment
	// count together with the active window's expiry.
	Incr(key string, window time.Duration) (count int, resetAt time.Time, err error)
	// Reset clears the counter for one client.
	Reset(key string) error
	// ResetAll clears every counter.
	ResetAll() error
}

// MemoryStore is an in-process CounterStore. It only bounds traffic to a
// single instance; deployments with multiple replicas need a shared store.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*windowEntry
	now     func() time.Time
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

// Incr implements CounterStore.
func (s *MemoryStore) Incr(key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &windowEntry{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

// Reset implements CounterStore.
func (s *MemoryStore) Reset(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// ResetAll implements CounterStore.
func (s *MemoryStore) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[string]*windowEntry)
	return nil
}

// Decision is the outcome of a single Allow call. Limit, Remaining and
// ResetAt are exposed as response metadata on every request; RetryAfter is
// only meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter enforces a fixed window of Max requests per Window per client.
type Limiter struct {
	store  CounterStore
	max    int
	window time.Duration
	now    func() time.Time
}

// New creates a Limiter over the given store.
func New(store CounterStore, max int, window time.Duration) *Limiter {
	return &Limiter{store: store, max: max, window: window, now: time.Now}
}

// Allow records one request for key and decides whether it may proceed.
// A store failure fails open.
func (l *Limiter) Allow(key string) Decision {
	count, resetAt, err := l.store.Incr(key, l.window)
	if err != nil {
		return Decision{Allowed: true, Limit: l.max, Remaining: 0, ResetAt: l.now().Add(l.window)}
	}

	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Allowed:   count <= l.max,
		Limit:     l.max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(l.now())
		if d.RetryAfter < 0 {
			d.RetryAfter = 0
		}
	}
	return d
}

// Reset clears the window for one client.
func (l *Limiter) Reset(key string) error { return l.store.Reset(key) }

// ResetAll clears every client window.
func (l *Limiter) ResetAll() error { return l.store.ResetAll() }
