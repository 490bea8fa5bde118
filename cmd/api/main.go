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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	httpAdapter "github.com/lorrc/identity-sync-backend/internal/adapters/primary/http"
	mw "github.com/lorrc/identity-sync-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/identity-sync-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/identity-sync-backend/internal/adapters/secondary/postgres"
	"github.com/lorrc/identity-sync-backend/internal/adapters/secondary/redis"
	"github.com/lorrc/identity-sync-backend/internal/auth"
	"github.com/lorrc/identity-sync-backend/internal/config"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
	"github.com/lorrc/identity-sync-backend/internal/core/services"
	"github.com/lorrc/identity-sync-backend/internal/infrastructure/logging"
	"github.com/lorrc/identity-sync-backend/internal/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connection established")

	// 4. Initialize the optional processed-event marker cache
	var marker *redis.EventMarker
	if cfg.Redis.URL != "" {
		marker, err = redis.New(ctx, cfg.Redis.URL, cfg.Redis.EventTTL)
		if err != nil {
			// The synchronizer works without the marker; redelivered
			// events just hit the idempotent upsert instead.
			logger.Warn("event marker cache unavailable, continuing without it", "error", err)
			marker = nil
		} else {
			defer func() { _ = marker.Close() }()
			logger.Info("event marker cache connected")
		}
	}

	// 5. Initialize Claim Verification
	keys, err := auth.LoadKeySetFile(cfg.IdentityProvider.PublicKeysFile)
	if err != nil {
		logger.Error("failed to load identity provider public keys", "error", err)
		os.Exit(1)
	}
	verifier := auth.NewClaimVerifier(keys, cfg.IdentityProvider.Issuer, cfg.IdentityProvider.Audience)
	serviceKeys := auth.NewServiceKeyVerifier(cfg.IdentityProvider.ServiceKeyHash)
	if !serviceKeys.Enabled() {
		logger.Warn("service key hash not configured, privileged surfaces are unreachable")
	}

	// 6. Real-time Feed and Metrics
	hub := websocket.NewHub(logger)
	go hub.Run()
	recorder := metrics.NewInMemory()

	// 7. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	projectionRepo := postgres.NewProjectionRepository(pool)

	// Services (Core)
	syncCfg := services.SyncConfig{
		MaxAttempts:    cfg.Sync.MaxAttempts,
		RetryBaseDelay: cfg.Sync.RetryBaseDelay,
		SoftDeadline:   cfg.Sync.SoftDeadline,
	}
	var eventMarker ports.EventMarker
	if marker != nil {
		eventMarker = marker
	}
	syncService := services.NewSyncService(projectionRepo, eventMarker, hub, recorder, logger, syncCfg)
	deleteService := services.NewDeleteService(projectionRepo, hub, recorder, logger, syncCfg)
	policy := services.NewAccessPolicySet()
	projectionService := services.NewProjectionQueryService(projectionRepo, policy, recorder, logger)

	// Handlers (Primary Adapters)
	eventHandler := httpAdapter.NewEventHandler(syncService, deleteService, logger, errorHandler)
	profileHandler := httpAdapter.NewProfileHandler(projectionService, logger, errorHandler)
	adminHandler := httpAdapter.NewAdminHandler(projectionService, logger, errorHandler)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, cfg, logger)

	var markerChecker httpAdapter.HealthChecker
	if marker != nil {
		markerChecker = marker
	}
	healthHandler := httpAdapter.NewHealthHandler(pool, markerChecker, cfg.App.Version)

	// 8. Rate Limiters
	var generalRateLimiter, eventRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		// The webhook surface gets a higher budget: the provider can
		// burst redeliveries after an outage.
		eventRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.EventRPS,
			BurstSize:         cfg.RateLimit.EventBurst,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
	}

	// 9. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.ServiceKeyHeader, httpAdapter.EventIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Principal(verifier, serviceKeys))

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// Internal event surface: service key only, with its own rate budget
	r.Route("/internal/events", func(r chi.Router) {
		if eventRateLimiter != nil {
			r.Use(eventRateLimiter.Middleware)
		}
		r.Use(mw.RequireService)
		r.Post("/account-created", eventHandler.HandleAccountCreated)
		r.Post("/account-deleted", eventHandler.HandleAccountDeleted)
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if generalRateLimiter != nil {
			r.Use(generalRateLimiter.Middleware)
		}

		// WebSocket feed (principal check is inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", profileHandler.HandleGetMe)
			r.Patch("/me", profileHandler.HandleUpdateMe)
			r.Get("/{uid}", profileHandler.HandleGetUser)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireService)
			r.Get("/users", adminHandler.HandleListUsers)
		})
	})

	// 10. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}
