// Package ratelimit implements the keyed token bucket applied to inbound
// client frames.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a keyed token bucket. Each key holds up to capacity tokens; one
// token is spent per Allow and one is restored per refill interval. Refill is
// computed lazily from elapsed time on the next Allow, so an idle limiter
// costs nothing. Unknown keys start with a full bucket.
type Limiter struct {
	capacity int
	refill   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens int
	// last is the refill accounting instant. It advances by whole refill
	// intervals so fractional progress toward the next token is preserved.
	last time.Time
}

// New creates a limiter with the standard wall clock.
func New(capacity int, refill time.Duration) *Limiter {
	return NewWithClock(capacity, refill, time.Now)
}

// NewWithClock creates a limiter with an injectable clock.
func NewWithClock(capacity int, refill time.Duration, now func() time.Time) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	if refill <= 0 {
		refill = time.Millisecond
	}
	return &Limiter{
		capacity: capacity,
		refill:   refill,
		now:      now,
		buckets:  make(map[string]*bucket),
	}
}

// Allow spends one token for key, reporting false when the bucket is empty.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.buckets[key] = b
	} else {
		l.refillLocked(b, now)
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Tokens returns the current token count for key after lazy refill. Unknown
// keys report a full bucket.
func (l *Limiter) Tokens(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return l.capacity
	}
	l.refillLocked(b, l.now())
	return b.tokens
}

// Forget drops the bucket for key. Called when a client disconnects so the
// map does not grow with dead connection ids.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) refillLocked(b *bucket, now time.Time) {
	elapsed := now.Sub(b.last)
	if elapsed < l.refill {
		return
	}
	earned := int(elapsed / l.refill)
	b.tokens += earned
	if b.tokens >= l.capacity {
		// A full bucket does not bank idle time.
		b.tokens = l.capacity
		b.last = now
		return
	}
	b.last = b.last.Add(time.Duration(earned) * l.refill)
}
