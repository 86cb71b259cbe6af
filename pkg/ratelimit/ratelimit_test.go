package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestBurstConsumesCapacity(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(100, 10*time.Millisecond, clock.now)

	allowed, rejected := 0, 0
	for i := 0; i < 110; i++ {
		if l.Allow("client-1") {
			allowed++
		} else {
			rejected++
		}
	}

	assert.Equal(t, 100, allowed)
	assert.Equal(t, 10, rejected)
}

func TestLazyRefill(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(5, 10*time.Millisecond, clock.now)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("c"))
	}
	assert.False(t, l.Allow("c"))

	clock.advance(10 * time.Millisecond)
	assert.True(t, l.Allow("c"))
	assert.False(t, l.Allow("c"))

	clock.advance(25 * time.Millisecond)
	assert.True(t, l.Allow("c"))
	assert.True(t, l.Allow("c"))
	assert.False(t, l.Allow("c"))
}

func TestFractionalIntervalCarries(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(1, 10*time.Millisecond, clock.now)

	assert.True(t, l.Allow("c"))
	assert.False(t, l.Allow("c"))

	clock.advance(5 * time.Millisecond)
	assert.False(t, l.Allow("c"))

	// 5ms + 5ms = one full interval even though no single gap reached it.
	clock.advance(5 * time.Millisecond)
	assert.True(t, l.Allow("c"))
}

func TestRefillCapsAtCapacity(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(3, 10*time.Millisecond, clock.now)

	assert.True(t, l.Allow("c"))
	clock.advance(time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("c"))
	}
	assert.False(t, l.Allow("c"))
}

func TestFullBucketDoesNotBankIdleTime(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(2, 10*time.Millisecond, clock.now)

	assert.Equal(t, 2, l.Tokens("c"))
	clock.advance(time.Hour)
	assert.Equal(t, 2, l.Tokens("c"))

	assert.True(t, l.Allow("c"))
	assert.True(t, l.Allow("c"))
	assert.False(t, l.Allow("c"))
}

func TestKeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(2, 10*time.Millisecond, clock.now)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.Len())
}

func TestForgetResetsKey(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(1, time.Minute, clock.now)

	assert.True(t, l.Allow("c"))
	assert.False(t, l.Allow("c"))

	l.Forget("c")
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.Allow("c"))
}

func TestRecoveryAfterFullDrain(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(100, 10*time.Millisecond, clock.now)

	for i := 0; i < 100; i++ {
		l.Allow("c")
	}
	assert.False(t, l.Allow("c"))

	clock.advance(100 * 10 * time.Millisecond)
	assert.Equal(t, 100, l.Tokens("c"))
}
