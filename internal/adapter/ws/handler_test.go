package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptyhub/ptyhub/pkg/hub/models"
	"github.com/ptyhub/ptyhub/pkg/hub/store"
	"github.com/ptyhub/ptyhub/pkg/identity"
	"github.com/ptyhub/ptyhub/pkg/notify"
	"github.com/ptyhub/ptyhub/pkg/protocol"
	"github.com/ptyhub/ptyhub/pkg/ratelimit"
	"github.com/ptyhub/ptyhub/pkg/session"
	"github.com/ptyhub/ptyhub/pkg/terminal"
)

// fakePTY stands in for a forked terminal so tests can script output.
type fakePTY struct {
	mu      sync.Mutex
	written []byte
	onData  func(data []byte)
	onExit  func(code int)
}

func (p *fakePTY) OnData(fn func(data []byte)) { p.mu.Lock(); p.onData = fn; p.mu.Unlock() }
func (p *fakePTY) OnExit(fn func(code int))    { p.mu.Lock(); p.onExit = fn; p.mu.Unlock() }
func (p *fakePTY) Start()                      {}
func (p *fakePTY) Resize(cols, rows uint16)    {}
func (p *fakePTY) Kill()                       {}

func (p *fakePTY) Write(data []byte) {
	p.mu.Lock()
	p.written = append(p.written, data...)
	p.mu.Unlock()
}

func (p *fakePTY) emit(data []byte) {
	p.mu.Lock()
	fn := p.onData
	p.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

func (p *fakePTY) exit(code int) {
	p.mu.Lock()
	fn := p.onExit
	p.mu.Unlock()
	if fn != nil {
		fn(code)
	}
}

func (p *fakePTY) input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.written)
}

type fakeSpawner struct {
	mu   sync.Mutex
	ptys []*fakePTY
}

func (f *fakeSpawner) spawn(terminal.SpawnOptions) (session.PTY, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePTY{}
	f.ptys = append(f.ptys, p)
	return p, nil
}

func (f *fakeSpawner) last() *fakePTY {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ptys) == 0 {
		return nil
	}
	return f.ptys[len(f.ptys)-1]
}

// testEnv is a full handler stack on an httptest server: in-memory store,
// fake-PTY manager, real bus and limiter.
type testEnv struct {
	t       *testing.T
	handler *Handler
	server  *httptest.Server
	st      *store.GORMStore
	manager *session.Manager
	bus     *notify.Bus
	spawner *fakeSpawner
}

type envOptions struct {
	resolver identity.Resolver
	limiter  *ratelimit.Limiter
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	spawner := &fakeSpawner{}
	manager := session.NewManager(st, session.Config{DefaultShell: "/bin/fakesh"}, nil, spawner.spawn)
	t.Cleanup(func() { manager.Shutdown(t.Context()) })

	if opts.resolver == nil {
		opts.resolver = identity.NewAnonymousResolver()
	}
	if opts.limiter == nil {
		opts.limiter = ratelimit.New(10000, time.Millisecond)
	}
	bus := notify.NewBus()

	h := NewHandler(manager, st, bus, opts.limiter, opts.resolver, nil)
	t.Cleanup(h.Close)

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	return &testEnv{
		t:       t,
		handler: h,
		server:  server,
		st:      st,
		manager: manager,
		bus:     bus,
		spawner: spawner,
	}
}

// client is one dialed websocket peer. The zero ID frame helper keeps the
// request/reply correlation explicit in tests.
type client struct {
	t  *testing.T
	ws *websocket.Conn
}

// dial connects and consumes the auth.success greeting.
func (e *testEnv) dial() *client {
	c, greeting := e.dialRaw("")
	require.Equal(e.t, protocol.TypeAuthSuccess, greeting.Type)
	return c
}

// dialRaw connects with an optional token query parameter and returns the
// first server frame.
func (e *testEnv) dialRaw(token string) (*client, *protocol.Frame) {
	e.t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = ws.Close() })

	c := &client{t: e.t, ws: ws}
	return c, c.read()
}

func (c *client) send(frameType, id string, payload any) {
	c.t.Helper()
	f, err := protocol.NewFrame(frameType, id, payload)
	require.NoError(c.t, err)
	data, err := protocol.Encode(f)
	require.NoError(c.t, err)
	require.NoError(c.t, c.ws.WriteMessage(websocket.TextMessage, data))
}

func (c *client) read() *protocol.Frame {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := c.ws.ReadMessage()
	require.NoError(c.t, err)
	f, err := protocol.Decode(data)
	require.NoError(c.t, err)
	return f
}

// expect reads the next frame and asserts its type and correlation id.
func (c *client) expect(frameType, id string) *protocol.Frame {
	c.t.Helper()
	f := c.read()
	require.Equal(c.t, frameType, f.Type, "unexpected frame type (payload: %s)", string(f.Payload))
	require.Equal(c.t, id, f.ID)
	return f
}

func errorMessage(t *testing.T, f *protocol.Frame) string {
	t.Helper()
	var p protocol.ErrorPayload
	require.NoError(t, f.DecodePayload(&p))
	return p.Message
}

func TestConnectAnonymous(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	c, greeting := env.dialRaw("")
	require.Equal(t, protocol.TypeAuthSuccess, greeting.Type)

	var p protocol.AuthSuccessPayload
	require.NoError(t, greeting.DecodePayload(&p))
	assert.NotEmpty(t, p.ClientID)
	assert.Equal(t, identity.AnonymousUserID, p.UserID)

	c.send(protocol.TypePing, "p1", nil)
	c.expect(protocol.TypePong, "p1")
}

func TestConnectWithToken(t *testing.T) {
	resolver, err := identity.NewTokenResolver(identity.TokenConfig{
		Secret: strings.Repeat("s", 32),
	})
	require.NoError(t, err)
	env := newTestEnv(t, envOptions{resolver: resolver})

	token, err := resolver.Issue(identity.Principal{
		UserID:    "u-1",
		LoginName: "alice",
	})
	require.NoError(t, err)

	_, greeting := env.dialRaw(token)
	require.Equal(t, protocol.TypeAuthSuccess, greeting.Type)

	var p protocol.AuthSuccessPayload
	require.NoError(t, greeting.DecodePayload(&p))
	assert.Equal(t, "u-1", p.UserID)
}

func TestConnectRejectedClosesWith4001(t *testing.T) {
	resolver, err := identity.NewTokenResolver(identity.TokenConfig{
		Secret: strings.Repeat("s", 32),
	})
	require.NoError(t, err)
	env := newTestEnv(t, envOptions{resolver: resolver})

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?token=bogus"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, protocol.CloseUnauthorized, closeErr.Code)
}

func TestReauthFrame(t *testing.T) {
	resolver, err := identity.NewTokenResolver(identity.TokenConfig{
		Secret: strings.Repeat("s", 32),
	})
	require.NoError(t, err)
	env := newTestEnv(t, envOptions{resolver: resolver})

	token, err := resolver.Issue(identity.Principal{UserID: "u-1", LoginName: "alice"})
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		c, _ := env.dialRaw(token)

		fresh, err := resolver.Issue(identity.Principal{UserID: "u-2", LoginName: "bob"})
		require.NoError(t, err)
		c.send(protocol.TypeAuth, "a1", protocol.AuthPayload{Token: fresh})

		f := c.expect(protocol.TypeAuthSuccess, "a1")
		var p protocol.AuthSuccessPayload
		require.NoError(t, f.DecodePayload(&p))
		assert.Equal(t, "u-2", p.UserID)
	})

	t.Run("FailureDisconnects", func(t *testing.T) {
		c, _ := env.dialRaw(token)

		c.send(protocol.TypeAuth, "a2", protocol.AuthPayload{Token: "bogus"})
		f := c.expect(protocol.TypeAuthFailure, "a2")
		assert.Equal(t, "Authentication failed", errorMessage(t, f))

		// The failure frame must arrive before the close handshake, and
		// the close carries the unauthorized code.
		require.NoError(t, c.ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, _, err := c.ws.ReadMessage()
		require.Error(t, err)
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, protocol.CloseUnauthorized, closeErr.Code)
	})
}

func TestMalformedFrames(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	c := env.dial()

	t.Run("InvalidJSON", func(t *testing.T) {
		require.NoError(t, c.ws.WriteMessage(websocket.TextMessage, []byte("{nope")))
		f := c.expect(protocol.TypeError, "")
		assert.Equal(t, "Invalid message format", errorMessage(t, f))
	})

	t.Run("UnknownType", func(t *testing.T) {
		c.send("session.explode", "x1", nil)
		f := c.expect(protocol.TypeError, "x1")
		assert.Contains(t, errorMessage(t, f), "Unknown message type")
	})

	t.Run("BinaryRejected", func(t *testing.T) {
		require.NoError(t, c.ws.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))
		f := c.expect(protocol.TypeError, "")
		assert.Equal(t, "Binary frames are not supported", errorMessage(t, f))
	})
}

func TestSessionCreateAutoAttach(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	c := env.dial()

	c.send(protocol.TypeSessionCreate, "c1", protocol.SessionCreatePayload{Name: "work"})

	created := c.expect(protocol.TypeSessionCreated, "c1")
	var info protocol.SessionInfo
	require.NoError(t, created.DecodePayload(&info))
	assert.Equal(t, "work", info.Name)
	assert.True(t, info.Attachable)
	require.NotEmpty(t, info.ID)

	attached := c.expect(protocol.TypeSessionAttached, "")
	var ap protocol.SessionAttachedPayload
	require.NoError(t, attached.DecodePayload(&ap))
	assert.Equal(t, info.ID, ap.Session.ID)
	assert.Empty(t, ap.Scrollback)

	t.Run("OutputStreams", func(t *testing.T) {
		env.spawner.last().emit([]byte("$ hello\r\n"))

		f := c.expect(protocol.TypeTerminalData, "")
		var p protocol.TerminalDataPayload
		require.NoError(t, f.DecodePayload(&p))
		assert.Equal(t, info.ID, p.SessionID)
		assert.Equal(t, "$ hello\r\n", p.Data)
	})

	t.Run("InputFlows", func(t *testing.T) {
		c.send(protocol.TypeTerminalData, "", protocol.TerminalDataPayload{
			SessionID: info.ID,
			Data:      "ls\n",
		})
		// Input produces no reply; wait for it to land on the fake PTY.
		require.Eventually(t, func() bool {
			return env.spawner.last().input() == "ls\n"
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("ExitNotifies", func(t *testing.T) {
		env.spawner.last().exit(0)

		f := c.expect(protocol.TypeTerminalExit, "")
		var p protocol.TerminalExitPayload
		require.NoError(t, f.DecodePayload(&p))
		assert.Equal(t, info.ID, p.SessionID)
		assert.Equal(t, 0, p.ExitCode)
	})
}

func TestTerminalDataRequiresAttachment(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	record, err := env.manager.Create(t.Context(), session.CreateOptions{Name: "other"})
	require.NoError(t, err)

	c := env.dial()
	c.send(protocol.TypeTerminalData, "d1", protocol.TerminalDataPayload{
		SessionID: record.ID,
		Data:      "stolen keystrokes",
	})
	f := c.expect(protocol.TypeSessionError, "d1")
	assert.Equal(t, "Not attached to this session", errorMessage(t, f))
	assert.Empty(t, env.spawner.last().input())
}

func TestSessionAttachReplaysScrollback(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	record, err := env.manager.Create(t.Context(), session.CreateOptions{Name: "existing"})
	require.NoError(t, err)
	env.spawner.last().emit([]byte("line one\nline two\n"))

	c := env.dial()
	c.send(protocol.TypeSessionAttach, "a1", protocol.SessionAttachPayload{SessionID: record.ID})

	f := c.expect(protocol.TypeSessionAttached, "a1")
	var p protocol.SessionAttachedPayload
	require.NoError(t, f.DecodePayload(&p))
	assert.Equal(t, record.ID, p.Session.ID)
	assert.Equal(t, "line one\nline two", p.Scrollback)

	t.Run("UnknownSession", func(t *testing.T) {
		c.send(protocol.TypeSessionAttach, "a2", protocol.SessionAttachPayload{SessionID: "nope"})
		f := c.expect(protocol.TypeSessionError, "a2")
		assert.Equal(t, "Session not found", errorMessage(t, f))
	})

	t.Run("Detach", func(t *testing.T) {
		c.send(protocol.TypeSessionDetach, "d1", nil)
		f := c.expect(protocol.TypeSessionDetached, "d1")
		var p protocol.SessionDetachedPayload
		require.NoError(t, f.DecodePayload(&p))
		assert.Equal(t, record.ID, p.SessionID)
	})
}

func TestSessionListIncludesTerminated(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := t.Context()

	liveSess, err := env.manager.Create(ctx, session.CreateOptions{Name: "alive"})
	require.NoError(t, err)
	deadSess, err := env.manager.Create(ctx, session.CreateOptions{Name: "dead"})
	require.NoError(t, err)
	_, err = env.manager.Terminate(ctx, deadSess.ID)
	require.NoError(t, err)

	c := env.dial()
	c.send(protocol.TypeSessionList, "l1", nil)

	f := c.expect(protocol.TypeSessionList, "l1")
	var p protocol.SessionListPayload
	require.NoError(t, f.DecodePayload(&p))
	require.Len(t, p.Sessions, 2)

	byID := make(map[string]protocol.SessionInfo)
	for _, s := range p.Sessions {
		byID[s.ID] = s
	}
	assert.True(t, byID[liveSess.ID].Attachable)
	assert.False(t, byID[deadSess.ID].Attachable)
	assert.Equal(t, models.SessionStatusTerminated, byID[deadSess.ID].Status)
}

func TestSessionRenameMoveTerminateDelete(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := t.Context()

	record, err := env.manager.Create(ctx, session.CreateOptions{Name: "victim"})
	require.NoError(t, err)
	catID, err := env.st.CreateCategory(ctx, &models.Category{Name: "work"})
	require.NoError(t, err)

	c := env.dial()

	t.Run("Rename", func(t *testing.T) {
		c.send(protocol.TypeSessionRename, "r1", protocol.SessionRenamePayload{
			SessionID: record.ID,
			Name:      "  renamed  ",
		})
		f := c.expect(protocol.TypeSessionRenamed, "r1")
		var p protocol.SessionRenamePayload
		require.NoError(t, f.DecodePayload(&p))
		assert.Equal(t, "renamed", p.Name)
	})

	t.Run("Move", func(t *testing.T) {
		c.send(protocol.TypeSessionMove, "m1", protocol.SessionMovePayload{
			SessionID:  record.ID,
			CategoryID: &catID,
		})
		c.expect(protocol.TypeSessionMoved, "m1")
		// Moves broadcast to everyone including the mover.
		c.expect(protocol.TypeSessionMoved, "")

		stored, err := env.st.GetSession(ctx, record.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.CategoryID)
		assert.Equal(t, catID, *stored.CategoryID)
	})

	t.Run("MoveUnknownCategory", func(t *testing.T) {
		bogus := "nope"
		c.send(protocol.TypeSessionMove, "m2", protocol.SessionMovePayload{
			SessionID:  record.ID,
			CategoryID: &bogus,
		})
		f := c.expect(protocol.TypeError, "m2")
		assert.Equal(t, "Category not found", errorMessage(t, f))
	})

	t.Run("Terminate", func(t *testing.T) {
		c.send(protocol.TypeSessionTerminate, "t1", protocol.SessionTerminatePayload{
			SessionID: record.ID,
		})
		c.expect(protocol.TypeSessionTerminated, "t1")

		stored, err := env.st.GetSession(ctx, record.ID)
		require.NoError(t, err)
		assert.True(t, stored.Terminated())
	})

	t.Run("TerminateUnknown", func(t *testing.T) {
		c.send(protocol.TypeSessionTerminate, "t2", protocol.SessionTerminatePayload{
			SessionID: "nope",
		})
		f := c.expect(protocol.TypeSessionError, "t2")
		assert.Equal(t, "Session not found", errorMessage(t, f))
	})

	t.Run("Delete", func(t *testing.T) {
		c.send(protocol.TypeSessionDelete, "x1", protocol.SessionDeletePayload{
			SessionID: record.ID,
		})
		c.expect(protocol.TypeSessionDeleted, "x1")

		_, err := env.st.GetSession(ctx, record.ID)
		assert.ErrorIs(t, err, models.ErrSessionNotFound)
	})
}

func TestTerminateDetachesAllClients(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	record, err := env.manager.Create(t.Context(), session.CreateOptions{Name: "shared"})
	require.NoError(t, err)

	owner := env.dial()
	watcher := env.dial()
	for i, c := range []*client{owner, watcher} {
		id := "a" + string(rune('1'+i))
		c.send(protocol.TypeSessionAttach, id, protocol.SessionAttachPayload{SessionID: record.ID})
		c.expect(protocol.TypeSessionAttached, id)
	}
	require.Eventually(t, func() bool {
		return env.manager.AttachedClients(record.ID) == 2
	}, 2*time.Second, 10*time.Millisecond)

	owner.send(protocol.TypeSessionTerminate, "t1", protocol.SessionTerminatePayload{
		SessionID: record.ID,
	})
	owner.expect(protocol.TypeSessionTerminated, "t1")
	watcher.expect(protocol.TypeSessionTerminated, "")

	// The watcher never asked to detach, but its attachment is gone too.
	env.handler.mu.RLock()
	for _, sc := range env.handler.conns {
		assert.Empty(t, sc.attached())
	}
	env.handler.mu.RUnlock()
	assert.Zero(t, env.manager.AttachedClients(record.ID))
}

func TestQuotaErrorSurfacesLimit(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	// Fill the default quota of 10 directly through the manager.
	for i := 0; i < 10; i++ {
		_, err := env.manager.Create(t.Context(), session.CreateOptions{})
		require.NoError(t, err)
	}

	c := env.dial()
	c.send(protocol.TypeSessionCreate, "c1", protocol.SessionCreatePayload{})
	f := c.expect(protocol.TypeSessionError, "c1")
	assert.Contains(t, errorMessage(t, f), "Maximum session limit (10)")
}

func TestBroadcastToOtherClients(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	creator := env.dial()
	watcher := env.dial()

	creator.send(protocol.TypeSessionCreate, "c1", protocol.SessionCreatePayload{Name: "shared"})
	creator.expect(protocol.TypeSessionCreated, "c1")

	f := watcher.expect(protocol.TypeSessionCreated, "")
	var info protocol.SessionInfo
	require.NoError(t, f.DecodePayload(&info))
	assert.Equal(t, "shared", info.Name)
}

func TestCategoryFlow(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	c := env.dial()

	c.send(protocol.TypeCategoryCreate, "c1", protocol.CategoryCreatePayload{Name: " infra "})
	created := c.expect(protocol.TypeCategoryCreated, "c1")
	var cat protocol.CategoryInfo
	require.NoError(t, created.DecodePayload(&cat))
	assert.Equal(t, "infra", cat.Name)
	require.NotEmpty(t, cat.ID)

	t.Run("EmptyNameRejected", func(t *testing.T) {
		c.send(protocol.TypeCategoryCreate, "c2", protocol.CategoryCreatePayload{Name: "   "})
		f := c.expect(protocol.TypeError, "c2")
		assert.Equal(t, "Category name cannot be empty", errorMessage(t, f))
	})

	t.Run("Rename", func(t *testing.T) {
		c.send(protocol.TypeCategoryRename, "r1", protocol.CategoryRenamePayload{
			CategoryID: cat.ID,
			Name:       "platform",
		})
		f := c.expect(protocol.TypeCategoryRenamed, "r1")
		var p protocol.CategoryRenamePayload
		require.NoError(t, f.DecodePayload(&p))
		assert.Equal(t, "platform", p.Name)
	})

	t.Run("Toggle", func(t *testing.T) {
		c.send(protocol.TypeCategoryToggle, "t1", protocol.CategoryTogglePayload{
			CategoryID: cat.ID,
			Collapsed:  true,
		})
		c.expect(protocol.TypeCategoryToggled, "t1")

		stored, err := env.st.GetCategory(t.Context(), cat.ID)
		require.NoError(t, err)
		assert.True(t, stored.Collapsed)
	})

	t.Run("List", func(t *testing.T) {
		c.send(protocol.TypeCategoryList, "l1", nil)
		f := c.expect(protocol.TypeCategoryList, "l1")
		var p protocol.CategoryListPayload
		require.NoError(t, f.DecodePayload(&p))
		require.Len(t, p.Categories, 1)
		assert.Equal(t, "platform", p.Categories[0].Name)
	})

	t.Run("Reorder", func(t *testing.T) {
		other, err := env.st.CreateCategory(t.Context(), &models.Category{Name: "second"})
		require.NoError(t, err)

		c.send(protocol.TypeCategoryReorder, "o1", protocol.CategoryReorderPayload{
			Order: []string{other, cat.ID},
		})
		c.expect(protocol.TypeCategoryReordered, "o1")

		cats, err := env.st.ListCategories(t.Context())
		require.NoError(t, err)
		require.Len(t, cats, 2)
		assert.Equal(t, other, cats[0].ID)
	})

	t.Run("Delete", func(t *testing.T) {
		c.send(protocol.TypeCategoryDelete, "d1", protocol.CategoryDeletePayload{CategoryID: cat.ID})
		c.expect(protocol.TypeCategoryDeleted, "d1")

		_, err := env.st.GetCategory(t.Context(), cat.ID)
		assert.ErrorIs(t, err, models.ErrCategoryNotFound)
	})

	t.Run("DeleteUnknown", func(t *testing.T) {
		c.send(protocol.TypeCategoryDelete, "d2", protocol.CategoryDeletePayload{CategoryID: "nope"})
		f := c.expect(protocol.TypeError, "d2")
		assert.Equal(t, "Category not found", errorMessage(t, f))
	})
}

func TestPreferencesOverWire(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	c := env.dial()

	c.send(protocol.TypePreferencesGet, "g1", nil)
	f := c.expect(protocol.TypePreferences, "g1")
	var p protocol.PreferencesInfo
	require.NoError(t, f.DecodePayload(&p))
	assert.True(t, p.BrowserEnabled)
	assert.True(t, p.NotifyOnInput)

	c.send(protocol.TypePreferencesSet, "s1", protocol.PreferencesSetPayload{
		BrowserEnabled:    true,
		VisualEnabled:     false,
		NotifyOnInput:     false,
		NotifyOnCompleted: true,
	})
	f = c.expect(protocol.TypePreferencesUpdated, "s1")
	require.NoError(t, f.DecodePayload(&p))
	assert.False(t, p.VisualEnabled)
	assert.False(t, p.NotifyOnInput)

	// The anonymous principal's row persisted.
	prefs, err := env.st.GetPreferences(t.Context(), identity.AnonymousUserID)
	require.NoError(t, err)
	assert.False(t, prefs.NotifyOnInput)
	assert.True(t, prefs.NotifyOnCompleted)
}

func TestNotificationFanout(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	c := env.dial()

	env.bus.Publish("sess-9", protocol.KindCompleted)

	f := c.expect(protocol.TypeNotification, "")
	var p protocol.NotificationPayload
	require.NoError(t, f.DecodePayload(&p))
	assert.Equal(t, "sess-9", p.SessionID)
	assert.Equal(t, protocol.KindCompleted, p.Kind)

	t.Run("SuppressedByPreferences", func(t *testing.T) {
		require.NoError(t, env.st.UpsertPreferences(t.Context(), &models.NotificationPreferences{
			UserID:            identity.AnonymousUserID,
			BrowserEnabled:    true,
			VisualEnabled:     true,
			NotifyOnInput:     true,
			NotifyOnCompleted: false,
		}))

		env.bus.Publish("sess-9", protocol.KindCompleted)
		// A follow-up ping proves the suppressed notification never arrived:
		// the pong is the next frame on the wire.
		c.send(protocol.TypePing, "p1", nil)
		c.expect(protocol.TypePong, "p1")
	})

	t.Run("Dismiss", func(t *testing.T) {
		env.bus.Publish("sess-9", protocol.KindNeedsInput)
		c.expect(protocol.TypeNotification, "")
		_, pending := env.bus.Latest("sess-9")
		require.True(t, pending)

		c.send(protocol.TypeNotificationDismiss, "n1", protocol.NotificationDismissPayload{
			SessionID: "sess-9",
		})
		c.expect(protocol.TypeNotificationDismiss, "n1")

		_, pending = env.bus.Latest("sess-9")
		assert.False(t, pending)
	})
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, envOptions{
		limiter: ratelimit.New(2, time.Hour),
	})
	c := env.dial()

	c.send(protocol.TypePing, "1", nil)
	c.expect(protocol.TypePong, "1")
	c.send(protocol.TypePing, "2", nil)
	c.expect(protocol.TypePong, "2")

	c.send(protocol.TypePing, "3", nil)
	f := c.expect(protocol.TypeError, "3")
	assert.Equal(t, "Rate limit exceeded", errorMessage(t, f))
}

func TestDisconnectDetaches(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	record, err := env.manager.Create(t.Context(), session.CreateOptions{Name: "held"})
	require.NoError(t, err)

	c := env.dial()
	c.send(protocol.TypeSessionAttach, "a1", protocol.SessionAttachPayload{SessionID: record.ID})
	c.expect(protocol.TypeSessionAttached, "a1")

	require.Eventually(t, func() bool {
		return env.manager.AttachedClients(record.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.ws.Close())

	require.Eventually(t, func() bool {
		return env.manager.AttachedClients(record.ID) == 0 && env.handler.ConnCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBearerToken(t *testing.T) {
	t.Run("HeaderPreferred", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token=query-token", nil)
		r.Header.Set("Authorization", "Bearer header-token")
		assert.Equal(t, "header-token", bearerToken(r))
	})

	t.Run("QueryFallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token=query-token", nil)
		assert.Equal(t, "query-token", bearerToken(r))
	})

	t.Run("NonBearerIgnored", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		assert.Empty(t, bearerToken(r))
	})
}

// Guard against payload field drift between the wire structs and the JSON
// the web client sends.
func TestPayloadFieldNames(t *testing.T) {
	raw := []byte(`{"type":"session.attach","id":"7","payload":{"sessionId":"abc"}}`)
	f, err := protocol.Decode(raw)
	require.NoError(t, err)

	var p protocol.SessionAttachPayload
	require.NoError(t, f.DecodePayload(&p))
	assert.Equal(t, "abc", p.SessionID)

	var echo struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &echo))
	assert.Equal(t, "abc", echo.SessionID)
}
