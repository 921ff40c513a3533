// SyncUp - member networking server with an AI scheduling assistant
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/syncup/internal/advisory"
	"github.com/ashureev/syncup/internal/api"
	"github.com/ashureev/syncup/internal/app"
	"github.com/ashureev/syncup/internal/assistant"
	"github.com/ashureev/syncup/internal/config"
	"github.com/ashureev/syncup/internal/identity"
	"github.com/ashureev/syncup/internal/middleware"
	"github.com/ashureev/syncup/internal/seed"
	"github.com/ashureev/syncup/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	reaperInterval     = time.Minute
	limiterIdle        = 10 * time.Minute
	healthPollInterval = 30 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting server", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	db, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	kv, closeKV, err := openKV(cfg, db, logger)
	if err != nil {
		return err
	}
	defer closeKV()

	var fixture *seed.Fixture
	if cfg.SeedEnabled {
		if fixture, err = seed.Default(); err != nil {
			return fmt.Errorf("load seed fixture: %w", err)
		}
		if err := seedProfiles(ctx, db, fixture); err != nil {
			return err
		}
		slog.Info("Seed fixture loaded", "users", len(fixture.Users), "invites", len(fixture.Invites))
	}

	var gen assistant.Generator = assistant.DisabledGenerator{}
	if cfg.AIEnabled() {
		gemini, err := assistant.NewGeminiGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			return fmt.Errorf("initialize gemini client: %w", err)
		}
		gen = gemini
		slog.Info("AI assistant enabled", "model", cfg.AI.Model)
	} else {
		slog.Info("AI features disabled (GEMINI_API_KEY not set)")
	}

	registry := app.NewRegistry(app.Deps{
		Profiles:       db,
		KV:             kv,
		Cache:          advisory.New(kv, time.Now, logger),
		Assistant:      assistant.NewOrchestrator(gen, cfg.AI.Timeout, logger),
		Fixture:        fixture,
		SuggestionsTTL: cfg.AI.SuggestionsTTL,
		FollowUpsTTL:   cfg.AI.FollowUpsTTL,
		Logger:         logger,
	})
	defer registry.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, limiterIdle)
	grpcHealth := health.NewServer()

	// Initialize handlers.
	handler := api.NewHandler(registry, cfg.AIEnabled(), logger)
	handler.SetOriginPatterns(cfg.CORSOrigins, cfg.IsDevelopment())
	healthHandler := api.NewHealthHandler(db, grpcHealth, logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", promhttp.Handler())

	// Device-scoped routes.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.IsDevelopment()))
		handler.RegisterRoutes(r, limiter.Limit(api.DeviceKey))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // assistant calls and the event stream run long
		IdleTimeout:  120 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, grpcHealth)

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	// Start background workers.
	app.StartReaper(ctx, registry, reaperInterval, cfg.SessionTTL)
	go limiter.Run(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("gRPC health server listening", "addr", grpcLis.Addr().String())
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		pollHealth(gctx, healthHandler)
		return nil
	})

	// Wait for shutdown signal or a server failure.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		grpcHealth.Shutdown()
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openKV returns the configured key-value medium and its close func.
func openKV(cfg *config.Config, db *store.SQLiteStore, logger *slog.Logger) (store.KV, func(), error) {
	if cfg.KVBackend != config.KVBackendBadger {
		return db.KV(), func() {}, nil
	}

	kv, err := store.OpenBadgerKV(store.BadgerConfig{Path: cfg.BadgerPath, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("open badger: %w", err)
	}
	slog.Info("Badger KV opened", "path", cfg.BadgerPath)
	return kv, func() {
		if err := kv.Close(); err != nil {
			slog.Error("Failed to close badger", "error", err)
		}
	}, nil
}

// seedProfiles stores fixture members that do not have a profile yet.
func seedProfiles(ctx context.Context, profiles store.Profiles, fixture *seed.Fixture) error {
	for _, u := range fixture.Users {
		existing, err := profiles.Get(ctx, u.UID)
		if err != nil {
			return fmt.Errorf("seed profile %s: %w", u.UID, err)
		}
		if existing != nil {
			continue
		}
		if err := profiles.Upsert(ctx, u); err != nil {
			return fmt.Errorf("seed profile %s: %w", u.UID, err)
		}
	}
	return nil
}

// pollHealth keeps the gRPC health status current between HTTP checks.
func pollHealth(ctx context.Context, h *api.HealthHandler) {
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	for {
		if err := h.Check(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("Health poll failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
