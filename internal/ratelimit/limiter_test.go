package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cfg Config) (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(cfg)
	l.now = clock.now
	return l, clock
}

func TestMemoryLimiter_AllowsUpToCapacity(t *testing.T) {
	l, _ := newTestLimiter(Config{Points: 5, Window: 15 * time.Minute, Block: 15 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := l.Consume(ctx, "admin")
		assert.NoError(t, err)
		assert.True(t, ok, "attempt %d should be allowed", i+1)
	}

	ok, err := l.Consume(ctx, "admin")
	assert.NoError(t, err)
	assert.False(t, ok, "6th attempt should be blocked")
}

func TestMemoryLimiter_BlockOutlivesWindowReset(t *testing.T) {
	l, clock := newTestLimiter(Config{Points: 2, Window: time.Minute, Block: 10 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Consume(ctx, "admin")
	}

	// Window has elapsed but the block has not.
	clock.advance(2 * time.Minute)
	ok, _ := l.Consume(ctx, "admin")
	assert.False(t, ok, "block must suspend consumption regardless of window boundary")

	// After the block elapses the key gets a fresh budget.
	clock.advance(10 * time.Minute)
	ok, _ = l.Consume(ctx, "admin")
	assert.True(t, ok)
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	l, clock := newTestLimiter(Config{Points: 2, Window: time.Minute, Block: 10 * time.Minute})
	ctx := context.Background()

	l.Consume(ctx, "admin")
	l.Consume(ctx, "admin")

	// Budget spent but not exceeded; a fresh window restores it.
	clock.advance(61 * time.Second)
	ok, _ := l.Consume(ctx, "admin")
	assert.True(t, ok)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(Config{Points: 1, Window: time.Minute, Block: time.Minute})
	ctx := context.Background()

	l.Consume(ctx, "alice")
	ok, _ := l.Consume(ctx, "alice")
	assert.False(t, ok)

	ok, _ = l.Consume(ctx, "bob")
	assert.True(t, ok, "blocking one key must not affect another")
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	l, clock := newTestLimiter(Config{Points: 2, Window: time.Minute, Block: time.Minute})
	ctx := context.Background()

	l.Consume(ctx, "stale")
	clock.advance(5 * time.Minute)
	l.Consume(ctx, "fresh")

	l.Sweep()

	l.mu.Lock()
	_, staleKept := l.entries["stale"]
	_, freshKept := l.entries["fresh"]
	l.mu.Unlock()

	assert.False(t, staleKept, "expired entry should be swept")
	assert.True(t, freshKept, "active entry should survive the sweep")
}
