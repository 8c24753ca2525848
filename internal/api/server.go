// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api assembles the HTTP surface: the middleware chain, the health
probes and the versioned dashboard, media and saved search routes.

Only this package and cmd/api deal with [http.Server] itself; domain packages
hand over chi routers through their Routes methods.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/mediameter/internal/dashboard"
	"github.com/taibuivan/mediameter/internal/platform/config"
	"github.com/taibuivan/mediameter/internal/platform/constants"
	"github.com/taibuivan/mediameter/internal/platform/middleware"
	"github.com/taibuivan/mediameter/internal/savedsearch"
)

// Handlers are the route sets the server mounts.
type Handlers struct {
	Liveness  http.HandlerFunc
	Readiness http.HandlerFunc

	// Dashboard runs, refines and derives subqueries of shared dashboards.
	Dashboard *dashboard.Handler
	// Media resolves sources and collections through the shared catalog.
	Media       *dashboard.MediaHandler
	SavedSearch *savedsearch.Handler
}

// Server is the API process's HTTP listener.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	log        *slog.Logger
}

// NewServer builds the router. The rate limiter's sweeper stops with
// context. A nil verifier serves every caller anonymously.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	router := chi.NewRouter()

	// Outermost first: tracing and logging see every response, including
	// the ones produced by CORS, the limiter and authentication.
	router.Use(
		middleware.RequestID(),
		middleware.StructuredLogger(log),
		middleware.PanicRecovery(log),
		middleware.CORS(cfg),
		middleware.RateLimit(context, middleware.RateLimitConfig{
			RPS:     cfg.RateLimitRPS,
			Burst:   cfg.RateLimitBurst,
			IdleTTL: constants.RateLimitClientTTL,
		}),
		chimw.Timeout(constants.GlobalRequestTimeout),
		middleware.Authenticate(verifier),
	)

	router.Get("/health", h.Liveness)
	router.Get("/ready", h.Readiness)

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Mount("/dashboard", h.Dashboard.Routes())
		v1.Mount("/media", h.Media.Routes())
		v1.Mount("/queries", h.SavedSearch.Routes())
	})

	return &Server{
		router: router,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		},
	}
}

// Handler exposes the router to tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until the listener fails or [Server.Shutdown] is
// called, in which case it returns [http.ErrServerClosed].
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits up to timeout for
// in-flight dashboards to finish.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
