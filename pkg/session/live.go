package session

import (
	"sync"
	"time"

	"github.com/ptyhub/ptyhub/pkg/terminal"
)

// PTY is the slice of the terminal adapter the manager drives. Narrowed to
// an interface so tests can substitute a scripted fake for a real fork.
type PTY interface {
	OnData(fn func(data []byte))
	OnExit(fn func(code int))
	Start()
	Write(data []byte)
	Resize(cols, rows uint16)
	Kill()
}

// SpawnFunc forks a child on a new PTY. Production uses terminal.Spawn.
type SpawnFunc func(opts terminal.SpawnOptions) (PTY, error)

// DefaultSpawn adapts terminal.Spawn to the SpawnFunc signature.
func DefaultSpawn(opts terminal.SpawnOptions) (PTY, error) {
	return terminal.Spawn(opts)
}

// Subscription is the cancel token returned by SubscribeData and
// SubscribeExit. Cancel is idempotent and safe after the session died.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Cancel detaches the subscriber.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// live is the in-memory half of a running session: the PTY, the scrollback
// ring, the subscriber tables and the attached-client set. The mutex covers
// subscribers and the attached set; it is never held across a PTY write, a
// transport send or a store write. The ring carries its own lock.
type live struct {
	id        string
	muxHandle string

	pty  PTY
	ring *terminal.Ring

	mu         sync.Mutex
	cols       int
	rows       int
	dataSubs   map[uint64]func(data []byte)
	exitSubs   map[uint64]func(code int)
	nextSub    uint64
	attached   map[string]bool
	emptySince time.Time

	// touch is the debounced last-accessed persister.
	touchMu      sync.Mutex
	touchTimer   *time.Timer
	touchPending time.Time
}

func newLive(id, muxHandle string, pty PTY, ring *terminal.Ring, cols, rows int) *live {
	return &live{
		id:        id,
		muxHandle: muxHandle,
		pty:       pty,
		ring:      ring,
		cols:      cols,
		rows:      rows,
		dataSubs:  make(map[uint64]func(data []byte)),
		exitSubs:  make(map[uint64]func(code int)),
		attached:  make(map[string]bool),
		// A freshly created session with no clients yet counts as empty
		// from now, so the idle reaper can collect never-attached sessions.
		emptySince: time.Now(),
	}
}

// subscribeData registers a raw-output subscriber and returns its token.
func (l *live) subscribeData(fn func(data []byte)) *Subscription {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.dataSubs[id] = fn
	l.mu.Unlock()

	return &Subscription{cancel: func() {
		l.mu.Lock()
		delete(l.dataSubs, id)
		l.mu.Unlock()
	}}
}

// subscribeExit registers an exit subscriber and returns its token.
func (l *live) subscribeExit(fn func(code int)) *Subscription {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.exitSubs[id] = fn
	l.mu.Unlock()

	return &Subscription{cancel: func() {
		l.mu.Lock()
		delete(l.exitSubs, id)
		l.mu.Unlock()
	}}
}

// fanoutData appends the chunk to the ring and hands it to every data
// subscriber. Runs on the PTY reader goroutine: subscribers must be an
// enqueue or a non-blocking write, never a blocking send. The subscriber
// snapshot is taken under the lock, the calls happen outside it.
func (l *live) fanoutData(data []byte) {
	l.ring.Append(data)

	l.mu.Lock()
	subs := make([]func(data []byte), 0, len(l.dataSubs))
	for _, fn := range l.dataSubs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(data)
	}
}

// fanoutExit hands the exit code to every exit subscriber.
func (l *live) fanoutExit(code int) {
	l.mu.Lock()
	subs := make([]func(code int), 0, len(l.exitSubs))
	for _, fn := range l.exitSubs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(code)
	}
}

// attach records a client. Reports whether it was the first.
func (l *live) attach(clientID string) (first bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.attached[clientID] {
		return false
	}
	first = len(l.attached) == 0
	l.attached[clientID] = true
	l.emptySince = time.Time{}
	return first
}

// detach removes a client. Reports whether the set is now empty; the empty
// timestamp feeds the idle reaper.
func (l *live) detach(clientID string) (last bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.attached[clientID] {
		return false
	}
	delete(l.attached, clientID)
	if len(l.attached) == 0 {
		l.emptySince = time.Now()
		return true
	}
	return false
}

// attachedCount returns the number of attached clients.
func (l *live) attachedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attached)
}

// idleFor returns how long the attached set has been empty, or zero while
// clients are attached.
func (l *live) idleFor(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.attached) > 0 || l.emptySince.IsZero() {
		return 0
	}
	return now.Sub(l.emptySince)
}

// dims returns the current in-memory terminal size.
func (l *live) dims() (cols, rows int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cols, l.rows
}

// setDims records a resize.
func (l *live) setDims(cols, rows int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cols, l.rows = cols, rows
}

// scheduleTouch arms the debounced last-accessed persister. While armed,
// further calls only refresh the pending timestamp; the store sees at most
// one write per interval.
func (l *live) scheduleTouch(interval time.Duration, persist func(at time.Time)) {
	l.touchMu.Lock()
	defer l.touchMu.Unlock()
	l.touchPending = time.Now()
	if l.touchTimer != nil {
		return
	}
	l.touchTimer = time.AfterFunc(interval, func() {
		l.touchMu.Lock()
		at := l.touchPending
		l.touchTimer = nil
		l.touchMu.Unlock()
		persist(at)
	})
}

// flushTouch fires a pending debounced touch immediately, if armed.
// Returns the pending timestamp and whether one was armed.
func (l *live) flushTouch() (time.Time, bool) {
	l.touchMu.Lock()
	defer l.touchMu.Unlock()
	if l.touchTimer == nil {
		return time.Time{}, false
	}
	l.touchTimer.Stop()
	l.touchTimer = nil
	return l.touchPending, true
}

// stopTouch disarms the debounced touch without persisting.
func (l *live) stopTouch() {
	l.touchMu.Lock()
	defer l.touchMu.Unlock()
	if l.touchTimer != nil {
		l.touchTimer.Stop()
		l.touchTimer = nil
	}
}
