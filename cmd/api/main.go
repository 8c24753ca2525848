// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the MediaMeter HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Build the upstream client and the shared media catalog.
//  7. Wire HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/mediameter/internal/api"
	"github.com/taibuivan/mediameter/internal/dashboard"
	"github.com/taibuivan/mediameter/internal/media"
	"github.com/taibuivan/mediameter/internal/platform/config"
	"github.com/taibuivan/mediameter/internal/platform/constants"
	"github.com/taibuivan/mediameter/internal/platform/middleware"
	"github.com/taibuivan/mediameter/internal/platform/migration"
	pgstore "github.com/taibuivan/mediameter/internal/platform/postgres"
	redisstore "github.com/taibuivan/mediameter/internal/platform/redis"
	"github.com/taibuivan/mediameter/internal/platform/sec"
	"github.com/taibuivan/mediameter/internal/savedsearch"
	"github.com/taibuivan/mediameter/internal/upstream"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("demo_mode", cfg.DemoMode),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, pgstore.Options{DSN: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns}, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("postgres_pool_closing")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, redisstore.Options{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize}, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("redis_client_closing")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	_, err = migration.Up(cfg.DatabaseURL, cfg.MigrationPath, log)
	must(log, err, "run migrations")

	// ── 6. Upstream & Media Catalog ───────────────────────────────────────
	client := upstream.NewClient(upstream.Config{
		BaseURL: cfg.UpstreamURL,
		Timeout: cfg.UpstreamTimeout,
		RPS:     cfg.UpstreamRPS,
		Burst:   cfg.UpstreamBurst,
	}, log)

	catalog := media.NewCatalog(
		media.NewRedisCache(rdb, media.SourceFetcher(client), "source", cfg.MediaCacheTTL, log),
		media.NewRedisCache(rdb, media.TagFetcher(client), "tag", cfg.MediaCacheTTL, log),
		log,
	)

	// ── 7. Session Verification ───────────────────────────────────────────
	// Without a public key every caller is anonymous.
	var verifier middleware.TokenVerifier
	if cfg.JWTPubKeyPath != "" {
		tokenVerifier, err := sec.NewTokenVerifier(cfg.JWTPubKeyPath, constants.AuthIssuer)
		must(log, err, "initialize token verifier")
		verifier = tokenVerifier
	} else {
		log.Warn("token_verification_disabled")
	}

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(context context.Context) error {
			return pgstore.Ping(context, pool)
		},
		CheckCache: func(context context.Context) error {
			return redisstore.Ping(context, rdb)
		},
	}, log)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	dashboardService := dashboard.NewService(catalog, client, log)
	savedSearchService := savedsearch.NewService(savedsearch.NewPostgresRepository(pool), log)

	handlers := api.Handlers{
		Liveness:    liveness,
		Readiness:   readiness,
		Dashboard:   dashboard.NewHandler(dashboardService, cfg.DemoMode),
		Media:       dashboard.NewMediaHandler(catalog),
		SavedSearch: savedsearch.NewHandler(savedSearchService, cfg.PublicBaseURL),
	}

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, verifier, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

// newLogger builds the JSON logger every entry of which carries the app name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String(constants.FieldApp, constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("step", step),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
