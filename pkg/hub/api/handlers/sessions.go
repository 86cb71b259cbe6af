package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ptyhub/ptyhub/internal/logger"
	"github.com/ptyhub/ptyhub/pkg/session"
)

// SessionResponse is the REST shape of a session record.
type SessionResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Shell          string    `json:"shell"`
	Cwd            string    `json:"cwd"`
	Status         string    `json:"status"`
	Cols           int       `json:"cols"`
	Rows           int       `json:"rows"`
	CategoryID     *string   `json:"categoryId"`
	SortOrder      int       `json:"sortOrder"`
	Attachable     bool      `json:"attachable"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

// SessionHandler serves the read-only session listing and the terminate
// endpoint used by the control CLI.
type SessionHandler struct {
	manager *session.Manager
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(mgr *session.Manager) *SessionHandler {
	return &SessionHandler{manager: mgr}
}

// List returns all durable session records with their attachable flags.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.manager.List(r.Context())
	if err != nil {
		logger.Error("session list failed", logger.KeyError, err)
		InternalServerError(w, "failed to list sessions")
		return
	}

	sessions := make([]SessionResponse, 0, len(infos))
	for _, info := range infos {
		sessions = append(sessions, SessionResponse{
			ID:             info.ID,
			Name:           info.Name,
			Shell:          info.Shell,
			Cwd:            info.Cwd,
			Status:         info.Status,
			Cols:           info.Cols,
			Rows:           info.Rows,
			CategoryID:     info.CategoryID,
			SortOrder:      info.SortOrder,
			Attachable:     info.Attachable,
			CreatedAt:      info.CreatedAt,
			LastAccessedAt: info.LastAccessedAt,
		})
	}

	WriteJSONOK(w, map[string]any{"sessions": sessions})
}

// Terminate kills the session process and marks the record terminated.
func (h *SessionHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "session id is required")
		return
	}

	known, err := h.manager.Terminate(r.Context(), id)
	if err != nil {
		logger.Error("session terminate failed",
			logger.KeySessionID, id,
			logger.KeyError, err)
		InternalServerError(w, "failed to terminate session")
		return
	}
	if !known {
		NotFound(w, "session not found")
		return
	}

	WriteNoContent(w)
}
