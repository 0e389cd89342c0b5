// Package ratelimit bounds login attempt velocity. Two independent
// limiter instances are used by the auth service: one keyed by submitted
// username, one keyed by network origin.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter consumes one attempt for a key. ok=false means the key has
// exhausted its budget and is blocked. The policy layer decides what a
// limiter error means; this package only reports it.
type Limiter interface {
	Consume(ctx context.Context, key string) (ok bool, err error)
}

// Config describes one limiter instance: Points attempts per Window,
// and a Block period that suspends the key once the budget is exhausted,
// regardless of window boundaries.
type Config struct {
	Points int
	Window time.Duration
	Block  time.Duration
}

type memoryEntry struct {
	used         int
	windowStart  time.Time
	blockedUntil time.Time
}

// MemoryLimiter is a process-local fixed-window limiter. Counters reset
// on process restart, and a multi-process deployment multiplies the
// effective budget by the process count; deployments that care point the
// service at the Redis backend instead.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	cfg     Config
	now     func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Consume spends one attempt for key.
func (l *MemoryLimiter) Consume(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, exists := l.entries[key]
	if !exists {
		e = &memoryEntry{windowStart: now}
		l.entries[key] = e
	}

	if e.blockedUntil.After(now) {
		return false, nil
	}

	if now.Sub(e.windowStart) >= l.cfg.Window {
		e.used = 0
		e.windowStart = now
		e.blockedUntil = time.Time{}
	}

	if e.used >= l.cfg.Points {
		e.blockedUntil = now.Add(l.cfg.Block)
		return false, nil
	}

	e.used++
	return true, nil
}

// Sweep drops entries whose window and block have both elapsed. Called
// periodically from main so the map does not grow with every username
// ever submitted.
func (l *MemoryLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if now.Sub(e.windowStart) >= l.cfg.Window && !e.blockedUntil.After(now) {
			delete(l.entries, key)
		}
	}
}
