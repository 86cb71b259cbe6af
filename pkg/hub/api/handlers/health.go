package handlers

import (
	"net/http"
	"time"

	"github.com/ptyhub/ptyhub/pkg/hub/store"
	"github.com/ptyhub/ptyhub/pkg/identity"
	"github.com/ptyhub/ptyhub/pkg/session"
)

// HealthResponse is the health probe payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Sessions  int       `json:"sessions"`
	Identity  string    `json:"identity"`
	Error     string    `json:"error,omitempty"`
}

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	store    store.Store
	manager  *session.Manager
	resolver identity.Resolver
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(st store.Store, mgr *session.Manager, resolver identity.Resolver) *HealthHandler {
	return &HealthHandler{store: st, manager: mgr, resolver: resolver}
}

// Health reports process liveness plus a database ping. A failing ping is
// reported with 503 so orchestrators restart the process rather than route
// traffic to a hub that cannot persist anything.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Sessions:  h.manager.LiveCount(),
		Identity:  h.resolver.Status(),
	}

	if err := h.store.Healthcheck(r.Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	WriteJSONOK(w, resp)
}
