// Package ws implements the WebSocket connection handler: the per-client
// state machine that authenticates peers, dispatches protocol frames to the
// session manager and the store, and fans session events back out.
package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ptyhub/ptyhub/internal/logger"
	"github.com/ptyhub/ptyhub/pkg/hub/store"
	"github.com/ptyhub/ptyhub/pkg/identity"
	"github.com/ptyhub/ptyhub/pkg/metrics"
	"github.com/ptyhub/ptyhub/pkg/notify"
	"github.com/ptyhub/ptyhub/pkg/protocol"
	"github.com/ptyhub/ptyhub/pkg/ratelimit"
	"github.com/ptyhub/ptyhub/pkg/session"
)

// Handler owns all client connections. It upgrades HTTP requests on /ws,
// gates them through the identity resolver, and routes protocol frames.
type Handler struct {
	manager  *session.Manager
	store    store.Store
	bus      *notify.Bus
	limiter  *ratelimit.Limiter
	resolver identity.Resolver
	metrics  *metrics.HubMetrics

	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*Conn

	busSub *notify.Subscription
}

// NewHandler wires the handler and registers its notification subscriber.
func NewHandler(
	manager *session.Manager,
	st store.Store,
	bus *notify.Bus,
	limiter *ratelimit.Limiter,
	resolver identity.Resolver,
	hubMetrics *metrics.HubMetrics,
) *Handler {
	h := &Handler{
		manager:  manager,
		store:    st,
		bus:      bus,
		limiter:  limiter,
		resolver: resolver,
		metrics:  hubMetrics,
		conns:    make(map[string]*Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// TLS and origin policy terminate outside the core.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	h.busSub = bus.Subscribe(h.handleNotification)
	return h
}

// ServeHTTP upgrades the request and runs the connection until it closes.
// The identity gate runs right after the upgrade; a rejected peer gets
// close code 4001 and nothing else.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed",
			logger.KeyRemoteAddr, r.RemoteAddr,
			logger.KeyError, err)
		return
	}

	principal, err := h.resolver.Resolve(r.Context(), identity.Request{
		RemoteAddr: r.RemoteAddr,
		Token:      token,
	})
	if err != nil {
		logger.Warn("connection rejected",
			logger.KeyRemoteAddr, r.RemoteAddr,
			logger.KeyError, err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(protocol.CloseUnauthorized, "Unauthorized"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	c := newConn(h, conn, uuid.New().String(), principal, r.RemoteAddr)
	h.register(c)

	logger.Info("client connected",
		logger.KeyClientID, c.id,
		logger.KeyUser, principal.LoginName,
		logger.KeyRemoteAddr, r.RemoteAddr)

	go c.writeLoop()
	c.sendEvent(protocol.TypeAuthSuccess, protocol.AuthSuccessPayload{
		ClientID:    c.id,
		UserID:      principal.UserID,
		DisplayName: principal.DisplayName,
	})
	c.readLoop()
}

// ConnCount returns the number of open connections.
func (h *Handler) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close cancels the bus subscription and drops every open connection. Used
// on server shutdown.
func (h *Handler) Close() {
	h.busSub.Cancel()

	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.shutdown()
	}
}

func (h *Handler) register(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	count := len(h.conns)
	h.mu.Unlock()
	h.metrics.SetClientsConnected(count)
}

func (h *Handler) unregister(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c.id)
	count := len(h.conns)
	h.mu.Unlock()
	h.metrics.SetClientsConnected(count)
}

// broadcast queues an uncorrelated event on every open connection except
// the excluded one ("" excludes none).
func (h *Handler) broadcast(frameType string, payload any, excludeID string) {
	f, err := protocol.NewFrame(frameType, "", payload)
	if err != nil {
		logger.Error("failed to build broadcast frame",
			logger.KeyFrameType, frameType,
			logger.KeyError, err)
		return
	}

	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for id, c := range h.conns {
		if id == excludeID {
			continue
		}
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.send(f)
	}
}

// releaseAttachments detaches every open connection attached to the given
// session. Runs before a terminate or delete so the per-client detach
// bookkeeping still finds the live session.
func (h *Handler) releaseAttachments(ctx context.Context, sessionID string) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.detachFrom(ctx, sessionID)
	}
}

// handleNotification delivers a published notification to every open
// connection whose principal's preferences enable the kind.
func (h *Handler) handleNotification(n notify.Notification) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Preferences are fetched once per distinct principal, not per
	// connection.
	allowed := make(map[string]bool)
	for _, c := range conns {
		userID := c.Principal().UserID
		permit, checked := allowed[userID]
		if !checked {
			prefs, err := h.store.GetPreferences(ctx, userID)
			if err != nil {
				logger.Warn("failed to load notification preferences",
					logger.KeyUser, userID,
					logger.KeyError, err)
				continue
			}
			permit = prefs.AllowsKind(n.Kind)
			allowed[userID] = permit
		}
		if !permit {
			continue
		}
		c.sendEvent(protocol.TypeNotification, protocol.NotificationPayload{
			SessionID: n.SessionID,
			Kind:      n.Kind,
			Timestamp: n.Timestamp,
		})
	}
}

// bearerToken extracts the client token from the Authorization header or
// the token query parameter. Browsers cannot set headers on WebSocket
// dials, hence the query fallback.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
	}
	return r.URL.Query().Get("token")
}
