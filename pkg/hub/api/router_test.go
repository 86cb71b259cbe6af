package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptyhub/ptyhub/pkg/hub/api/handlers"
	"github.com/ptyhub/ptyhub/pkg/hub/models"
	"github.com/ptyhub/ptyhub/pkg/hub/store"
	"github.com/ptyhub/ptyhub/pkg/identity"
	"github.com/ptyhub/ptyhub/pkg/notify"
	"github.com/ptyhub/ptyhub/pkg/session"
)

type testAPI struct {
	router http.Handler
	st     *store.GORMStore
	bus    *notify.Bus
}

func newTestAPI(t *testing.T, resolver identity.Resolver) *testAPI {
	t.Helper()

	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	manager := session.NewManager(st, session.Config{}, nil, nil)
	t.Cleanup(func() { manager.Shutdown(t.Context()) })

	if resolver == nil {
		resolver = identity.NewAnonymousResolver()
	}
	bus := notify.NewBus()

	router := NewRouter(RouterDeps{
		Store:    st,
		Manager:  manager,
		Bus:      bus,
		Resolver: resolver,
		WS:       http.NotFoundHandler(),
	})

	return &testAPI{router: router, st: st, bus: bus}
}

// do runs a request through the router. remoteAddr defaults to loopback.
func (a *testAPI) do(method, target, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "anonymous", resp.Identity)
	assert.Zero(t, resp.Sessions)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestRootRedirectsToHealth(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/health", rec.Header().Get("Location"))
}

func TestSessionListEndpoint(t *testing.T) {
	a := newTestAPI(t, nil)
	ctx := t.Context()

	_, err := a.st.CreateSession(ctx, &models.Session{
		Name:  "restored",
		Shell: "/bin/bash",
		Cols:  80,
		Rows:  24,
	})
	require.NoError(t, err)

	rec := a.do(http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Sessions []handlers.SessionResponse `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "restored", resp.Sessions[0].Name)
	// Seeded directly in the store, so no live PTY backs it.
	assert.False(t, resp.Sessions[0].Attachable)

	t.Run("CamelCaseKeys", func(t *testing.T) {
		var raw struct {
			Sessions []map[string]any `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		require.Len(t, raw.Sessions, 1)
		assert.Contains(t, raw.Sessions[0], "categoryId")
		assert.Contains(t, raw.Sessions[0], "lastAccessedAt")
		assert.Contains(t, raw.Sessions[0], "attachable")
	})

	t.Run("EmptyListIsArray", func(t *testing.T) {
		empty := newTestAPI(t, nil)
		rec := empty.do(http.MethodGet, "/api/sessions", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sessions":[]}`, rec.Body.String())
	})
}

func TestSessionTerminateEndpoint(t *testing.T) {
	a := newTestAPI(t, nil)
	ctx := t.Context()

	id, err := a.st.CreateSession(ctx, &models.Session{Name: "doomed", Shell: "/bin/sh"})
	require.NoError(t, err)

	rec := a.do(http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	stored, err := a.st.GetSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Terminated())

	t.Run("UnknownIs404Problem", func(t *testing.T) {
		rec := a.do(http.MethodDelete, "/api/sessions/nope", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, handlers.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))

		var p handlers.Problem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, "Not Found", p.Title)
		assert.Equal(t, http.StatusNotFound, p.Status)
	})
}

func TestNotifyEndpoint(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(http.MethodPost, "/api/notify/sess-1/needs-input", "127.0.0.1:40000")
	require.Equal(t, http.StatusOK, rec.Code)

	n, ok := a.bus.Latest("sess-1")
	require.True(t, ok)
	assert.Equal(t, "needs-input", n.Kind)

	t.Run("InvalidKind", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/api/notify/sess-1/explosion", "127.0.0.1:40000")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var p handlers.Problem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Contains(t, p.Detail, "invalid notification kind")
	})
}

func TestNotifyRemoteAuth(t *testing.T) {
	resolver, err := identity.NewTokenResolver(identity.TokenConfig{
		Secret: "0123456789abcdef0123456789abcdef",
	})
	require.NoError(t, err)
	a := newTestAPI(t, resolver)

	t.Run("LoopbackTrusted", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/api/notify/sess-2/completed", "127.0.0.1:40000")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("RemoteWithoutToken", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/api/notify/sess-2/completed", "203.0.113.9:40000")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, handlers.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	})

	t.Run("RemoteWithToken", func(t *testing.T) {
		token, err := resolver.Issue(identity.Principal{LoginName: "hook"})
		require.NoError(t, err)

		rec := a.do(http.MethodPost, "/api/notify/sess-2/completed?token="+token, "203.0.113.9:40000")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
