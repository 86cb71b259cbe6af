// Package hub wires the ptyhub components into a runnable service:
// store, session manager, notification bus, identity resolver, rate
// limiter, WebSocket adapter and the HTTP server.
package hub

import (
	"context"
	"fmt"

	"github.com/ptyhub/ptyhub/internal/adapter/ws"
	"github.com/ptyhub/ptyhub/internal/logger"
	"github.com/ptyhub/ptyhub/pkg/config"
	"github.com/ptyhub/ptyhub/pkg/hub/api"
	"github.com/ptyhub/ptyhub/pkg/hub/store"
	"github.com/ptyhub/ptyhub/pkg/identity"
	"github.com/ptyhub/ptyhub/pkg/metrics"
	"github.com/ptyhub/ptyhub/pkg/notify"
	"github.com/ptyhub/ptyhub/pkg/ratelimit"
	"github.com/ptyhub/ptyhub/pkg/session"
	"github.com/ptyhub/ptyhub/pkg/terminal"
)

// Hub owns every long-lived component of the service.
type Hub struct {
	cfg *config.Config

	store         store.Store
	manager       *session.Manager
	bus           *notify.Bus
	limiter       *ratelimit.Limiter
	resolver      identity.Resolver
	wsHandler     *ws.Handler
	server        *api.Server
	metricsServer *metrics.Server
	hubMetrics    *metrics.HubMetrics
}

// New builds the hub from configuration. Nothing starts listening until
// Run is called; a returned error means some component refused its
// configuration and nothing needs tearing down except the store.
func New(cfg *config.Config) (*Hub, error) {
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}
	hubMetrics := metrics.NewHubMetrics()

	st, err := store.New(&cfg.Persistence.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	mux := terminal.DetectMux()
	if mux != nil {
		logger.Info("terminal multiplexer detected, sessions will survive restarts")
	}

	manager := session.NewManager(st, session.Config{
		MaxSessions:     cfg.Sessions.MaxSessions,
		IdleTimeout:     cfg.Sessions.IdleTimeout,
		ScrollbackLines: cfg.Persistence.ScrollbackLines,
		DefaultShell:    cfg.Sessions.DefaultShell,
		DefaultCols:     cfg.Sessions.DefaultCols,
		DefaultRows:     cfg.Sessions.DefaultRows,
	}, mux, nil)

	bus := notify.NewBus()
	limiter := ratelimit.New(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillInterval)

	wsHandler := ws.NewHandler(manager, st, bus, limiter, resolver, hubMetrics)

	router := api.NewRouter(api.RouterDeps{
		Store:    st,
		Manager:  manager,
		Bus:      bus,
		Resolver: resolver,
		Metrics:  hubMetrics,
		WS:       wsHandler,
	})

	server := api.NewServer(api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router)

	return &Hub{
		cfg:           cfg,
		store:         st,
		manager:       manager,
		bus:           bus,
		limiter:       limiter,
		resolver:      resolver,
		wsHandler:     wsHandler,
		server:        server,
		metricsServer: metrics.NewServer(cfg.Metrics.Port),
		hubMetrics:    hubMetrics,
	}, nil
}

// buildResolver picks the identity gate from the auth configuration.
func buildResolver(cfg *config.Config) (identity.Resolver, error) {
	if !cfg.Auth.Enabled {
		return identity.NewAnonymousResolver(), nil
	}

	resolver, err := identity.NewTokenResolver(identity.TokenConfig{
		Secret:       cfg.Auth.TokenSecret,
		AllowedUsers: cfg.Auth.AllowedUsers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure token auth: %w", err)
	}
	return resolver, nil
}

// Run serves until the context is cancelled, then shuts everything down
// in dependency order: listener first so no new work arrives, then the
// socket clients, the session manager, and finally the store.
func (h *Hub) Run(ctx context.Context) error {
	if h.metricsServer != nil {
		go func() {
			if err := h.metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server failed", logger.KeyError, err)
			}
		}()
	}

	err := h.server.Start(ctx)

	h.shutdown()
	return err
}

// Manager exposes the session manager for command-layer health output.
func (h *Hub) Manager() *session.Manager {
	return h.manager
}

// Port returns the port the hub server listens on.
func (h *Hub) Port() int {
	return h.server.Port()
}

func (h *Hub) shutdown() {
	logger.Info("hub shutting down")

	h.wsHandler.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.cfg.Server.ShutdownTimeout)
	defer cancel()
	h.manager.Shutdown(shutdownCtx)

	if err := h.metricsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("metrics server stop failed", logger.KeyError, err)
	}

	if err := h.store.Close(); err != nil {
		logger.Warn("store close failed", logger.KeyError, err)
	}

	logger.Info("hub stopped")
}
