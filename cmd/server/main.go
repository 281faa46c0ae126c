package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/roomhost/internal/api"
	"github.com/mcoot/roomhost/internal/api/middleware"
	"github.com/mcoot/roomhost/internal/config"
	"github.com/mcoot/roomhost/internal/factory"
)

// limiterIdleTTL drops per-client buckets that have been idle this long
const limiterIdleTTL = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("error closing application", slog.String("error", err.Error()))
		}
	}()

	if err := app.SeedAdmin(context.Background(), cfg.Admin); err != nil {
		logger.Error("failed to seed admin user", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, limiterIdleTTL)
		defer limiter.Stop()
	}

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:             logger,
		AuthService:        app.AuthService,
		UserService:        app.UserService,
		RoomController:     app.RoomController,
		Metrics:            app.Metrics,
		RateLimiter:        limiter,
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := api.NewServer(router, cfg.HTTP, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("events", cfg.Events.Backend),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			return
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			return
		}
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
