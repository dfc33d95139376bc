package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/observability"
	"github.com/agentcfg/agentcfg/internal/server/handlers"
)

func (s *Server) registerRoutes() {
	hm := s.opts.Health
	s.router.Get("/health", hm.HealthHandler)
	s.router.Get("/health/live", hm.LivenessHandler)
	s.router.Get("/health/ready", hm.ReadinessHandler)
	s.router.Get("/health/startup", hm.StartupHandler)

	version := handlers.NewVersionHandler(s.opts.Build, s.opts.Identity, s.opts.State.SchemaTag)
	s.router.Method(http.MethodGet, "/version", version)
	s.router.Get("/metrics", MetricsHandler)

	a := &api{state: s.opts.State, workers: s.opts.Workers, uiModel: s.opts.UIModel}
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/agents", a.listAgents)
		r.Get("/resolve/{name}", a.resolveName)
		r.Get("/validate/{kind}/{name}", a.validateName)
		r.Get("/models", a.listModels)
		r.Get("/recommend/{agent}", a.recommend)
		r.Post("/reload", a.reload)
	})

	s.registerAdminEndpoint()
}

// registerAdminEndpoint mounts the gofulmen signal endpoint behind a bearer
// token. Without a token it stays unmounted.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger
	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no admin token set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10,
		RateBurst: 5,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
