// Package session implements the session manager: PTY lifecycle, fan-out of
// terminal output to subscribers, attachment bookkeeping, quotas and idle
// reaping. The manager exclusively owns every live PTY and scrollback ring;
// connection handlers interact with sessions only through it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ptyhub/ptyhub/internal/logger"
	"github.com/ptyhub/ptyhub/pkg/hub/models"
	"github.com/ptyhub/ptyhub/pkg/hub/store"
	"github.com/ptyhub/ptyhub/pkg/terminal"
)

// Config tunes the manager. Zero values select the listed defaults.
type Config struct {
	// MaxSessions caps the durable non-terminated session count. Default 10.
	MaxSessions int
	// IdleTimeout terminates sessions whose attached set has been empty
	// this long. Zero disables idle reaping.
	IdleTimeout time.Duration
	// ScrollbackLines sizes each session's ring. Default 10000.
	ScrollbackLines int
	// DefaultShell is used when create requests name none.
	// Default $SHELL or /bin/bash.
	DefaultShell string
	// DefaultCols and DefaultRows size sessions created without dimensions.
	// Defaults 80x24.
	DefaultCols int
	DefaultRows int
	// TouchInterval is the debounce window for durable last-accessed
	// updates. Default 5s.
	TouchInterval time.Duration
	// ReapInterval is the idle reaper period. Default 60s.
	ReapInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxSessions == 0 {
		c.MaxSessions = 10
	}
	if c.ScrollbackLines == 0 {
		c.ScrollbackLines = 10000
	}
	if c.DefaultShell == "" {
		c.DefaultShell = terminal.DefaultShell()
	}
	if c.DefaultCols == 0 {
		c.DefaultCols = 80
	}
	if c.DefaultRows == 0 {
		c.DefaultRows = 24
	}
	if c.TouchInterval == 0 {
		c.TouchInterval = 5 * time.Second
	}
	if c.ReapInterval == 0 {
		c.ReapInterval = 60 * time.Second
	}
}

// CreateOptions are the caller-supplied attributes of a new session. All
// fields are optional.
type CreateOptions struct {
	Name    string
	Shell   string
	Cwd     string
	Cols    int
	Rows    int
	OwnerID string
	Env     map[string]string
}

// Info is a durable session record plus the attachable flag: true iff a
// live in-memory session backed the record at the moment of the call.
type Info struct {
	models.Session
	Attachable bool
}

// Manager owns the live sessions. Safe for concurrent use.
type Manager struct {
	store store.Store
	cfg   Config
	// mux is non-nil when an external multiplexer was detected at
	// construction. The persistence mode is fixed for the manager's
	// lifetime: mux mode records handles, fallback mode stores scrollback.
	mux   *terminal.Mux
	spawn SpawnFunc

	// createMu serializes the quota check against the durable insert so
	// two concurrent Creates cannot both observe a count under the limit.
	createMu sync.Mutex

	mu     sync.RWMutex
	live   map[string]*live
	closed bool

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// NewManager creates a manager. mux selects the persistence mode (nil for
// the stored-scrollback fallback); spawn is the PTY factory, nil for
// DefaultSpawn. The idle reaper starts only when cfg.IdleTimeout is set.
func NewManager(st store.Store, cfg Config, mux *terminal.Mux, spawn SpawnFunc) *Manager {
	cfg.applyDefaults()
	if spawn == nil {
		spawn = DefaultSpawn
	}

	m := &Manager{
		store: st,
		cfg:   cfg,
		mux:   mux,
		spawn: spawn,
		live:  make(map[string]*live),
	}

	if cfg.IdleTimeout > 0 {
		m.reaperStop = make(chan struct{})
		m.reaperDone = make(chan struct{})
		go m.reapLoop()
	}

	return m
}

// MuxMode reports whether sessions run under the external multiplexer.
func (m *Manager) MuxMode() bool {
	return m.mux != nil
}

// LiveCount returns the number of live in-memory sessions.
func (m *Manager) LiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

// Create validates the options, enforces the quota and brings up a session:
// spawn the PTY, register the multiplexer handle, wire the ring and
// callbacks, insert the durable record, and only then publish the session
// to the live table. A failed insert tears everything down again before the
// error surfaces.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*models.Session, error) {
	name, err := validateName(opts.Name)
	if err != nil {
		return nil, err
	}
	if err := validateShell(opts.Shell); err != nil {
		return nil, err
	}
	if err := validateCwd(opts.Cwd); err != nil {
		return nil, err
	}
	if err := validateDims(opts.Cols, opts.Rows); err != nil {
		return nil, err
	}

	// The quota check and the durable insert must be atomic with respect
	// to other Creates, otherwise two callers racing at limit-1 both pass
	// the check and both insert.
	m.createMu.Lock()
	defer m.createMu.Unlock()

	count, err := m.store.CountActiveSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check session quota: %w", err)
	}
	if count >= int64(m.cfg.MaxSessions) {
		return nil, &models.QuotaExceededError{Limit: m.cfg.MaxSessions}
	}

	id := uuid.New().String()
	if name == "" {
		name = "session-" + id[:8]
	}
	shell := opts.Shell
	if shell == "" {
		shell = m.cfg.DefaultShell
	}
	cols := opts.Cols
	if cols == 0 {
		cols = m.cfg.DefaultCols
	}
	rows := opts.Rows
	if rows == 0 {
		rows = m.cfg.DefaultRows
	}

	spawnOpts := terminal.SpawnOptions{
		Shell:     shell,
		Dir:       opts.Cwd,
		Cols:      uint16(cols),
		Rows:      uint16(rows),
		Env:       opts.Env,
		SessionID: id,
	}

	// In mux mode the child is the multiplexer client; the shell runs
	// inside the multiplexer server and survives ptyhub restarts.
	muxHandle := ""
	if m.mux != nil {
		muxHandle = m.mux.Handle(id)
		cmd, args := m.mux.SpawnSpec(muxHandle, shell, opts.Cwd)
		spawnOpts.Shell = cmd
		spawnOpts.Args = args
	}

	pty, err := m.spawn(spawnOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn session: %w", err)
	}

	ring := terminal.NewRing(m.cfg.ScrollbackLines)
	l := newLive(id, muxHandle, pty, ring, cols, rows)
	pty.OnData(func(data []byte) {
		l.fanoutData(data)
		l.scheduleTouch(m.cfg.TouchInterval, func(at time.Time) { m.persistTouch(id, at) })
	})
	pty.OnExit(func(code int) { m.handleExit(id, code) })

	sortOrder, err := m.store.NextSessionSortOrder(ctx, nil)
	if err != nil {
		m.teardownPTY(pty, muxHandle)
		return nil, fmt.Errorf("failed to compute sort order: %w", err)
	}

	record := &models.Session{
		ID:                id,
		Name:              name,
		Shell:             shell,
		Cwd:               opts.Cwd,
		OwnerID:           opts.OwnerID,
		Status:            models.SessionStatusActive,
		Cols:              cols,
		Rows:              rows,
		ExternalMuxHandle: muxHandle,
		SortOrder:         sortOrder,
	}
	if _, err := m.store.CreateSession(ctx, record); err != nil {
		m.teardownPTY(pty, muxHandle)
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	m.mu.Lock()
	m.live[id] = l
	m.mu.Unlock()
	pty.Start()

	logger.Info("session created",
		logger.KeySessionID, id,
		logger.KeyShell, shell,
		logger.KeyMuxHandle, muxHandle,
		logger.Dims(cols, rows))
	return record, nil
}

// teardownPTY reverses a spawn whose durable insert failed: reap the child
// and drop the multiplexer handle it may have created.
func (m *Manager) teardownPTY(pty PTY, muxHandle string) {
	pty.Start()
	pty.Kill()
	if m.mux != nil && muxHandle != "" {
		if err := m.mux.Kill(muxHandle); err != nil {
			logger.Warn("failed to roll back multiplexer handle",
				logger.KeyMuxHandle, muxHandle,
				logger.KeyError, err)
		}
	}
}

// Get returns the durable record plus the attachable flag.
func (m *Manager) Get(ctx context.Context, id string) (*Info, error) {
	record, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	_, attachable := m.live[id]
	m.mu.RUnlock()
	return &Info{Session: *record, Attachable: attachable}, nil
}

// List returns every durable record, each flagged attachable iff a live
// session backs it at the moment of the call.
func (m *Manager) List(ctx context.Context) ([]*Info, error) {
	records, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]*Info, 0, len(records))
	for _, record := range records {
		_, attachable := m.live[record.ID]
		infos = append(infos, &Info{Session: *record, Attachable: attachable})
	}
	return infos, nil
}

// Write forwards input bytes to the session's PTY and schedules the
// debounced last-accessed touch, which also flips an idle session back to
// active once it persists. PTY-level failures are logged, not returned;
// only an unknown or dead session is an error.
func (m *Manager) Write(id string, data []byte) error {
	l, ok := m.lookup(id)
	if !ok {
		return models.ErrSessionNotFound
	}
	l.pty.Write(data)
	l.scheduleTouch(m.cfg.TouchInterval, func(at time.Time) { m.persistTouch(id, at) })
	return nil
}

// Resize bounds-checks and applies new dimensions to the PTY, the in-memory
// session and the durable record.
func (m *Manager) Resize(ctx context.Context, id string, cols, rows int) error {
	if cols < models.MinDimension || cols > models.MaxDimension ||
		rows < models.MinDimension || rows > models.MaxDimension {
		return fmt.Errorf("%w: dimensions must be between %d and %d",
			models.ErrInvalidInput, models.MinDimension, models.MaxDimension)
	}
	l, ok := m.lookup(id)
	if !ok {
		return models.ErrSessionNotFound
	}
	l.pty.Resize(uint16(cols), uint16(rows))
	l.setDims(cols, rows)
	return m.store.UpdateSessionDimensions(ctx, id, cols, rows)
}

// Rename updates the durable display name.
func (m *Manager) Rename(ctx context.Context, id, name string) error {
	name, err := validateName(name)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: session name must not be empty", models.ErrInvalidInput)
	}
	return m.store.RenameSession(ctx, id, name)
}

// Move assigns the session to a category (nil uncategorizes) and places it
// at the end of the target group. Unknown categories are rejected.
func (m *Manager) Move(ctx context.Context, id string, categoryID *string) error {
	if categoryID != nil {
		if _, err := m.store.GetCategory(ctx, *categoryID); err != nil {
			return err
		}
	}
	sortOrder, err := m.store.NextSessionSortOrder(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("failed to compute sort order: %w", err)
	}
	return m.store.MoveSession(ctx, id, categoryID, sortOrder)
}

// Terminate ends a session: persist scrollback in fallback mode, destroy
// the multiplexer handle, kill the PTY, drop the live state and mark the
// durable record terminated. Reports whether the id was known; terminating
// an already-terminated session is a no-op returning true.
func (m *Manager) Terminate(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	l, isLive := m.live[id]
	if isLive {
		delete(m.live, id)
	}
	m.mu.Unlock()

	if isLive {
		l.stopTouch()
		m.persistScrollback(ctx, id, l)
		if m.mux != nil && l.muxHandle != "" {
			if err := m.mux.Kill(l.muxHandle); err != nil {
				logger.Warn("failed to kill multiplexer handle",
					logger.KeySessionID, id,
					logger.KeyMuxHandle, l.muxHandle,
					logger.KeyError, err)
			}
		}
		l.pty.Kill()
		if err := m.store.UpdateSessionStatus(ctx, id,
			models.SessionStatusTerminated, models.EventSessionKilled, ""); err != nil {
			return true, err
		}
		logger.Info("session terminated", logger.KeySessionID, id)
		return true, nil
	}

	// Not live: a record left over from a previous run, or already
	// terminated. Unknown ids report false.
	record, err := m.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	if m.mux != nil && record.ExternalMuxHandle != "" && !record.Terminated() {
		if err := m.mux.Kill(record.ExternalMuxHandle); err != nil {
			logger.Warn("failed to kill multiplexer handle",
				logger.KeySessionID, id,
				logger.KeyMuxHandle, record.ExternalMuxHandle,
				logger.KeyError, err)
		}
	}
	if err := m.store.UpdateSessionStatus(ctx, id,
		models.SessionStatusTerminated, models.EventSessionKilled, ""); err != nil {
		return true, err
	}
	return true, nil
}

// Delete terminates the session if needed and removes it from the store,
// cascading to its scrollback and event log.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, err := m.Terminate(ctx, id); err != nil {
		return err
	}
	return m.store.DeleteSession(ctx, id)
}

// SubscribeData registers a raw-output subscriber on a live session. The
// callback runs on the PTY reader goroutine and must not block.
func (m *Manager) SubscribeData(id string, fn func(data []byte)) (*Subscription, error) {
	l, ok := m.lookup(id)
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return l.subscribeData(fn), nil
}

// SubscribeExit registers an exit subscriber on a live session.
func (m *Manager) SubscribeExit(id string, fn func(code int)) (*Subscription, error) {
	l, ok := m.lookup(id)
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return l.subscribeExit(fn), nil
}

// AttachClient records a client on the session's attached set. The first
// attach flips the durable status to active; every attach is logged.
func (m *Manager) AttachClient(ctx context.Context, id, clientID string) error {
	l, ok := m.lookup(id)
	if !ok {
		return models.ErrSessionNotFound
	}
	first := l.attach(clientID)
	if first {
		if err := m.store.UpdateSessionStatus(ctx, id,
			models.SessionStatusActive, models.EventClientAttached, clientDetail(clientID)); err != nil {
			return err
		}
		return nil
	}
	return m.store.AppendSessionLog(ctx, id, models.EventClientAttached, clientDetail(clientID))
}

// DetachClient removes a client from the attached set. The last detach
// flips the durable status to idle and starts the idle clock.
func (m *Manager) DetachClient(ctx context.Context, id, clientID string) error {
	l, ok := m.lookup(id)
	if !ok {
		// Session died first; nothing to book-keep.
		return nil
	}
	last := l.detach(clientID)
	if last {
		return m.store.UpdateSessionStatus(ctx, id,
			models.SessionStatusIdle, models.EventClientDetached, clientDetail(clientID))
	}
	return m.store.AppendSessionLog(ctx, id, models.EventClientDetached, clientDetail(clientID))
}

// AttachedClients returns the number of clients attached to a live session.
func (m *Manager) AttachedClients(id string) int {
	l, ok := m.lookup(id)
	if !ok {
		return 0
	}
	return l.attachedCount()
}

// Scrollback returns the session's visible history: the live ring for a
// running session, the stored blob for anything else. Both may be empty.
func (m *Manager) Scrollback(ctx context.Context, id string) (string, error) {
	if l, ok := m.lookup(id); ok {
		return l.ring.Joined(), nil
	}
	return m.store.GetScrollback(ctx, id)
}

// Shutdown stops the reaper, flushes pending touches, preserves history and
// winds the PTYs down. Live sessions are marked idle, not terminated, so a
// multiplexer-backed shell can be reattached after a restart.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := make(map[string]*live, len(m.live))
	for id, l := range m.live {
		sessions[id] = l
	}
	m.live = make(map[string]*live)
	m.mu.Unlock()

	if m.reaperStop != nil {
		close(m.reaperStop)
		<-m.reaperDone
	}

	for id, l := range sessions {
		if at, armed := l.flushTouch(); armed {
			if err := m.store.TouchSession(ctx, id, at); err != nil {
				logger.Warn("failed to flush last-accessed",
					logger.KeySessionID, id, logger.KeyError, err)
			}
		}
		m.persistScrollback(ctx, id, l)
		if err := m.store.UpdateSessionStatus(ctx, id,
			models.SessionStatusIdle, "", ""); err != nil {
			logger.Warn("failed to mark session idle on shutdown",
				logger.KeySessionID, id, logger.KeyError, err)
		}
		// Killing the PTY client is safe in mux mode: the multiplexer
		// server owns the shell and keeps it alive for reattachment.
		l.pty.Kill()
	}

	logger.Info("session manager stopped", logger.KeyCount, len(sessions))
}

// lookup fetches a live session under the read lock.
func (m *Manager) lookup(id string) (*live, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.live[id]
	return l, ok
}

// persistTouch is the debounced last-accessed write. Failures are swallowed;
// the next write schedules another attempt.
func (m *Manager) persistTouch(id string, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.TouchSession(ctx, id, at); err != nil {
		logger.Warn("debounced touch failed",
			logger.KeySessionID, id, logger.KeyError, err)
	}
}

// persistScrollback saves the ring contents, fallback mode only. In mux
// mode the multiplexer owns history and the server stores none.
func (m *Manager) persistScrollback(ctx context.Context, id string, l *live) {
	if m.mux != nil {
		return
	}
	if err := m.store.SaveScrollback(ctx, id, l.ring.Joined()); err != nil {
		logger.Warn("failed to persist scrollback",
			logger.KeySessionID, id, logger.KeyError, err)
	}
}

// handleExit runs when the child dies on its own. Kill-initiated teardown
// never reaches here; the PTY adapter suppresses its exit callback.
func (m *Manager) handleExit(id string, code int) {
	m.mu.Lock()
	l, ok := m.live[id]
	if ok {
		delete(m.live, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	l.stopTouch()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m.persistScrollback(ctx, id, l)
	if err := m.store.UpdateSessionStatus(ctx, id,
		models.SessionStatusTerminated, models.EventSessionExited,
		jsonDetail("exit_code", strconv.Itoa(code))); err != nil {
		logger.Warn("failed to mark exited session terminated",
			logger.KeySessionID, id, logger.KeyError, err)
	}

	l.fanoutExit(code)
	logger.Info("session exited",
		logger.KeySessionID, id,
		logger.KeyExitCode, code)
}

// reapLoop terminates sessions whose attached set has been empty longer
// than the idle timeout. Errors are logged and retried next tick.
func (m *Manager) reapLoop() {
	defer close(m.reaperDone)
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.reaperStop:
			return
		case now := <-ticker.C:
			m.reapIdle(now)
		}
	}
}

func (m *Manager) reapIdle(now time.Time) {
	m.mu.RLock()
	var expired []string
	for id, l := range m.live {
		if l.idleFor(now) > m.cfg.IdleTimeout {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := m.Terminate(ctx, id); err != nil {
			logger.Warn("idle reap failed",
				logger.KeySessionID, id, logger.KeyError, err)
		} else {
			logger.Info("idle session reaped", logger.KeySessionID, id)
		}
		cancel()
	}
}

func clientDetail(clientID string) string {
	return jsonDetail("client_id", clientID)
}

func jsonDetail(key, value string) string {
	return fmt.Sprintf("{%q:%q}", key, value)
}
