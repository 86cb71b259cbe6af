// Package notify implements the in-process pub/sub bus for per-session
// event pings raised by the hook ingress.
package notify

import (
	"sync"
	"time"

	"github.com/ptyhub/ptyhub/internal/logger"
)

// Notification is one ping for a session. Kind is one of the values accepted
// by the hook endpoint.
type Notification struct {
	SessionID string    `json:"sessionId"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber receives every published notification. Preference gating and
// connection filtering are the subscriber's job; the bus only fans out.
type Subscriber func(Notification)

// Subscription is the cancel token returned by Subscribe.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Cancel detaches the subscriber. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Bus fans notifications out to subscribers and keeps a latest-per-session
// map so badges survive until the session is next attached. Subscribers are
// invoked synchronously outside the bus lock and must be cheap.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]Subscriber
	nextID uint64
	latest map[string]Notification
	now    func() time.Time
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[uint64]Subscriber),
		latest: make(map[string]Notification),
		now:    time.Now,
	}
}

// Subscribe registers fn for all future publishes.
func (b *Bus) Subscribe(fn Subscriber) *Subscription {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return &Subscription{cancel: func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}}
}

// Publish records the notification as the session's latest and delivers it
// to every subscriber. Returns the stamped notification.
func (b *Bus) Publish(sessionID, kind string) Notification {
	n := Notification{SessionID: sessionID, Kind: kind, Timestamp: b.now()}

	b.mu.Lock()
	b.latest[sessionID] = n
	subs := make([]Subscriber, 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		b.dispatch(fn, n)
	}
	return n
}

// dispatch shields the publisher from subscriber panics.
func (b *Bus) dispatch(fn Subscriber, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("notification subscriber panicked",
				logger.KeySessionID, n.SessionID,
				logger.KeyKind, n.Kind,
				"panic", r)
		}
	}()
	fn(n)
}

// Clear drops the pending notification for a session. Called when any
// connection attaches to it.
func (b *Bus) Clear(sessionID string) {
	b.mu.Lock()
	delete(b.latest, sessionID)
	b.mu.Unlock()
}

// Latest returns the pending notification for a session, if any.
func (b *Bus) Latest(sessionID string) (Notification, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.latest[sessionID]
	return n, ok
}

// Pending returns all pending notifications, one per session, unordered.
func (b *Bus) Pending() []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Notification, 0, len(b.latest))
	for _, n := range b.latest {
		out = append(out, n)
	}
	return out
}
