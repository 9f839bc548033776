package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/api"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facegate/internal/app"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Facegate API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("camera", cfg.Camera),
		slog.String("locator", cfg.Locator),
		slog.String("extractor", cfg.Extractor),
	)

	if cfg.APIKey == "" && cfg.IsProduction() {
		logger.Warn("API_KEY is empty, identity routes are open to anyone who can reach the port")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wire components
	application, err := app.Build(ctx, cfg, logger, app.Options{Migrate: true})
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("close error", slog.Any("error", err))
		}
	}()
	application.Start(ctx)

	rateLimit := middleware.RateLimiterConfig{
		Max:    cfg.SessionRateLimit,
		Window: time.Minute,
		Logger: logger,
	}
	if application.RateLimits != nil {
		rateLimit.Store = application.RateLimits
	}

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Sessions:   application.Sessions,
		Enrollment: application.Enrollment,
		Logins:     application.Logins,
		Hub:        application.Hub,
		DB:         application.Pool,
		APIKey:     cfg.APIKey,
		RateLimit:  rateLimit,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	// Sessions release the camera and flush results before the pool closes
	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("session shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return nil
}
