package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ptyhub/ptyhub/internal/logger"
	"github.com/ptyhub/ptyhub/pkg/identity"
	"github.com/ptyhub/ptyhub/pkg/metrics"
	"github.com/ptyhub/ptyhub/pkg/notify"
	"github.com/ptyhub/ptyhub/pkg/protocol"
)

// NotifyHandler ingests hook notifications from shell scripts running
// inside sessions and publishes them to the bus.
type NotifyHandler struct {
	bus      *notify.Bus
	resolver identity.Resolver
	metrics  *metrics.HubMetrics
}

// NewNotifyHandler creates a notify handler.
func NewNotifyHandler(bus *notify.Bus, resolver identity.Resolver, m *metrics.HubMetrics) *NotifyHandler {
	return &NotifyHandler{bus: bus, resolver: resolver, metrics: m}
}

// Post publishes one notification. Loopback peers are trusted without a
// token: hooks run on the hub host and curl from inside the session's
// shell. Remote callers go through the same identity gate as the socket.
func (h *NotifyHandler) Post(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	kind := chi.URLParam(r, "kind")

	if sessionID == "" {
		BadRequest(w, "session id is required")
		return
	}
	if !protocol.ValidNotificationKind(kind) {
		BadRequest(w, "invalid notification kind: "+kind)
		return
	}

	if !isLoopback(r.RemoteAddr) {
		if _, err := h.resolver.Resolve(r.Context(), identity.Request{
			RemoteAddr: r.RemoteAddr,
			Token:      bearerToken(r),
		}); err != nil {
			Unauthorized(w, "authentication required")
			return
		}
	}

	h.bus.Publish(sessionID, kind)
	h.metrics.RecordNotification(kind)

	logger.Debug("notification published",
		logger.KeySessionID, sessionID,
		"kind", kind)

	WriteJSONOK(w, map[string]string{"status": "ok"})
}

// isLoopback reports whether the remote address is a loopback peer.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// bearerToken extracts the Authorization bearer token, falling back to
// the token query parameter.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
	}
	return r.URL.Query().Get("token")
}
