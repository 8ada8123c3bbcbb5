// Package ratelimit tracks failed login attempts per client IP and
// blocks further attempts once a threshold is hit inside a sliding
// window. Best-effort: increments may race under concurrent requests
// from the same IP, which is acceptable for a lockout heuristic.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxAttempts failed logins per window trigger a block.
	DefaultMaxAttempts = 5
	// DefaultWindow bounds the attempt count; once it elapses since the
	// first failure the counter starts over.
	DefaultWindow = 15 * time.Minute
)

type Attempt struct {
	Count          int       `json:"count"`
	FirstAttemptAt time.Time `json:"firstAttemptAt"`
}

// AttemptStore holds per-IP attempt state. Implementations evict
// entries after the ttl passed to Set so the key space stays bounded.
type AttemptStore interface {
	// Get returns nil when no live entry exists for ip.
	Get(ctx context.Context, ip string) (*Attempt, error)
	Set(ctx context.Context, ip string, a Attempt, ttl time.Duration) error
	Clear(ctx context.Context, ip string) error
}

type Limiter struct {
	store  AttemptStore
	max    int
	window time.Duration
	now    func() time.Time
}

type Option func(*Limiter)

func WithMaxAttempts(n int) Option        { return func(l *Limiter) { l.max = n } }
func WithWindow(d time.Duration) Option   { return func(l *Limiter) { l.window = d } }
func WithNow(now func() time.Time) Option { return func(l *Limiter) { l.now = now } }

func NewLimiter(store AttemptStore, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		max:    DefaultMaxAttempts,
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Blocked reports whether ip has exhausted its attempts for the current
// window. A window that has elapsed clears the counter on the spot.
func (l *Limiter) Blocked(ctx context.Context, ip string) (bool, error) {
	a, err := l.store.Get(ctx, ip)
	if err != nil || a == nil {
		return false, err
	}
	if l.now().Sub(a.FirstAttemptAt) > l.window {
		return false, l.store.Clear(ctx, ip)
	}
	return a.Count >= l.max, nil
}

// Fail records one failed attempt for ip.
func (l *Limiter) Fail(ctx context.Context, ip string) error {
	now := l.now()
	a, err := l.store.Get(ctx, ip)
	if err != nil {
		return err
	}
	if a == nil || now.Sub(a.FirstAttemptAt) > l.window {
		return l.store.Set(ctx, ip, Attempt{Count: 1, FirstAttemptAt: now}, l.window)
	}
	a.Count++
	return l.store.Set(ctx, ip, *a, l.window-now.Sub(a.FirstAttemptAt))
}

// Reset clears the counter for ip, called after a successful login.
func (l *Limiter) Reset(ctx context.Context, ip string) error {
	return l.store.Clear(ctx, ip)
}

type memoryEntry struct {
	attempt   Attempt
	expiresAt time.Time
}

// MemoryAttemptStore is the process-local implementation. A background
// sweep drops expired entries so long-running processes do not
// accumulate one entry per IP ever seen.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	s := &MemoryAttemptStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	go func() {
		for {
			time.Sleep(time.Minute)
			s.sweep()
		}
	}()
	return s
}

func (s *MemoryAttemptStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for ip, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, ip)
		}
	}
}

func (s *MemoryAttemptStore) Get(_ context.Context, ip string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[ip]
	if !ok || s.now().After(e.expiresAt) {
		return nil, nil
	}
	a := e.attempt
	return &a, nil
}

func (s *MemoryAttemptStore) Set(_ context.Context, ip string, a Attempt, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[ip] = memoryEntry{attempt: a, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryAttemptStore) Clear(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ip)
	return nil
}
