// Package api provides the hub's HTTP surface: the WebSocket endpoint,
// health probe, session listing and the hook notification ingress.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ptyhub/ptyhub/internal/logger"
	"github.com/ptyhub/ptyhub/pkg/hub/api/handlers"
	"github.com/ptyhub/ptyhub/pkg/hub/store"
	"github.com/ptyhub/ptyhub/pkg/identity"
	"github.com/ptyhub/ptyhub/pkg/metrics"
	"github.com/ptyhub/ptyhub/pkg/notify"
	"github.com/ptyhub/ptyhub/pkg/session"
)

// RouterDeps carries the wired components the router exposes.
type RouterDeps struct {
	Store    store.Store
	Manager  *session.Manager
	Bus      *notify.Bus
	Resolver identity.Resolver
	Metrics  *metrics.HubMetrics

	// WS is the WebSocket upgrade handler mounted at /ws.
	WS http.Handler
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Routes:
//   - GET /ws - WebSocket upgrade for terminal clients
//   - GET /health - Liveness probe with database ping
//   - GET /api/sessions - Durable session list
//   - DELETE /api/sessions/{id} - Terminate a session
//   - POST /api/notify/{sessionID}/{kind} - Hook notification ingress
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// The socket is long-lived, so the request timeout only wraps the
	// REST routes.
	r.Handle("/ws", deps.WS)

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Manager, deps.Resolver)
	sessionHandler := handlers.NewSessionHandler(deps.Manager)
	notifyHandler := handlers.NewNotifyHandler(deps.Bus, deps.Resolver, deps.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/health", healthHandler.Health)

		r.Route("/api", func(r chi.Router) {
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)
				r.Delete("/{id}", sessionHandler.Terminate)
			})
			r.Post("/notify/{sessionID}/{kind}", notifyHandler.Post)
		})
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs requests using the internal logger. Healthcheck and
// socket upgrades are logged at DEBUG to reduce noise.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		if quietPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}

// quietPath returns true for endpoints polled frequently enough that INFO
// logging would drown everything else.
func quietPath(path string) bool {
	return path == "/health" || path == "/ws"
}
