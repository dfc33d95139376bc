// Package server exposes model resolution over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/agentcfg/agentcfg/internal/errors"
	"github.com/agentcfg/agentcfg/internal/observability"
	"github.com/agentcfg/agentcfg/internal/server/handlers"
	servermw "github.com/agentcfg/agentcfg/internal/server/middleware"
)

// Options configure a Server. Zero timeouts take the defaults below.
type Options struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	State    *State
	Health   *handlers.HealthManager
	Build    handlers.BuildInfo
	Identity *appidentity.Identity

	// Workers bounds concurrent resolutions for /v1/agents.
	Workers int
	// UIModel is offered to primary agents when a request omits ui_model.
	UIModel string

	// AdminToken enables POST /admin/signal when set.
	AdminToken string
}

// Server is the resolution HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	opts   Options
	addr   string
}

// New creates a server with its routes registered.
func New(opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 120 * time.Second
	}
	if opts.State == nil {
		opts.State = NewState(nil)
	}
	if opts.Health == nil {
		opts.Health = handlers.NewHealthManager(opts.Build.Version)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	// RequestID first for correlation, Recovery innermost so metrics see the 500.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	handlers.SetHTTPErrorResponder(HandleError)

	s := &Server{
		router: r,
		opts:   opts,
		addr:   net.JoinHostPort(opts.Host, fmt.Sprintf("%d", opts.Port)),
	}
	s.registerRoutes()
	return s
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Starting HTTP server",
			zap.String("host", s.opts.Host),
			zap.Int("port", s.opts.Port),
			zap.String("addr", s.addr))
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Shutting down HTTP server")
	}
	if err := s.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// State returns the snapshot holder served by this server.
func (s *Server) State() *State {
	return s.opts.State
}
