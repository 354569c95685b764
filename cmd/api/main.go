// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the merchant admin HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) and run migrations (idempotent).
//  4. Select the session store backend (Redis or in-memory).
//  5. Wire token service, identity builder and authorization middleware.
//  6. Start HTTP server with graceful shutdown.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/taibuivan/merchant-admin/internal/access"
	"github.com/taibuivan/merchant-admin/internal/api"
	"github.com/taibuivan/merchant-admin/internal/platform/config"
	"github.com/taibuivan/merchant-admin/internal/platform/constants"
	"github.com/taibuivan/merchant-admin/internal/platform/metrics"
	"github.com/taibuivan/merchant-admin/internal/platform/middleware"
	"github.com/taibuivan/merchant-admin/internal/platform/migration"
	pgstore "github.com/taibuivan/merchant-admin/internal/platform/postgres"
	redisstore "github.com/taibuivan/merchant-admin/internal/platform/redis"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
	"github.com/taibuivan/merchant-admin/internal/session"
	"github.com/taibuivan/merchant-admin/internal/users/auth"
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
		slog.String("store_backend", cfg.StoreBackend),
		slog.String("miss_policy", cfg.PermissionCacheMissPolicy),
		slog.Bool("diagnostics", cfg.Diagnostics()),
	)

	// Root context for background goroutines; cancelled on shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Startup deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	healthChecks := []api.HealthCheck{{
		Name:  "postgres",
		Check: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
	}}

	// ── 4. Session Stores ─────────────────────────────────────────────────
	var (
		revocations session.RevocationStore
		permissions session.PermissionCache
	)

	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()

		revocations = session.NewRedisRevocationStore(rdb)
		permissions = session.NewRedisPermissionCache(rdb)
		healthChecks = append(healthChecks, api.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
		})

	case config.BackendMemory:
		log.Warn("memory_store_backend_selected",
			slog.String("note", "revocations and permission snapshots are not shared between instances"),
		)
		revocations = session.NewMemoryRevocationStore(cfg.MemoryStoreSize, cfg.MaxMarkerTTL())
		permissions = session.NewMemoryPermissionCache(cfg.MemoryStoreSize, cfg.PermissionTTL())
	}

	// ── 5. Access Control ─────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	signer, err := sec.NewTokenSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL())
	must(log, err, "initialize token signer")

	tokens := session.NewTokenService(signer, revocations, cfg.RevocationTTL(), recorder)
	roleAuthority := auth.NewRoleAuthority(pool)

	builderOptions := []access.BuilderOption{access.WithMetrics(recorder)}
	if cfg.PermissionCacheMissPolicy == config.MissPolicyRecompute {
		builderOptions = append(builderOptions, access.WithRecompute(roleAuthority, cfg.PermissionTTL()))
	}
	builder := access.NewBuilder(tokens, permissions, builderOptions...)
	authz := middleware.NewAuthz(builder, recorder)

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	authService := auth.NewService(auth.NewCredentialStore(pool), roleAuthority, tokens, permissions, cfg.PermissionTTL())
	loginLimiter := middleware.NewRateLimiter(rootCtx, cfg.LoginRateLimitRPS, constants.LoginRateLimitBurst)

	liveness, readiness := api.NewHealthHandlers(healthChecks, log)

	server := api.NewServer(rootCtx, cfg, log, recorder, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Auth:      auth.NewHandler(authService, authz, loginLimiter),
	})

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
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
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON root logger with the global app attribute.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
