package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Ayash-Bera/mathgate/backend/internal/api"
	"github.com/Ayash-Bera/mathgate/backend/internal/bootstrap"
	"github.com/Ayash-Bera/mathgate/backend/internal/config"
	"github.com/Ayash-Bera/mathgate/backend/internal/middleware"
	"github.com/Ayash-Bera/mathgate/backend/internal/migration"
	"github.com/Ayash-Bera/mathgate/backend/migrations"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

const (
	healthInterval  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("Starting math tutoring gateway...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.WithError(err).Error("Failed to close application cleanly")
		}
	}()

	if app.DB.HasDB() {
		if err := migration.NewRunner(app.DB, logger).RunMigrations(migrations.Files); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
	}

	app.StartHealthChecks(ctx, healthInterval)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimit, 0)
	defer rateLimiter.Stop()

	deps := api.Dependencies{
		Tutor:       app.Tutor,
		Health:      app.Health,
		RateLimiter: rateLimiter,
		Metrics:     app.Metrics.Handler(),
		Logger:      logger,
	}
	if app.MCP != nil {
		deps.MCP = app.MCP.HTTPHandler()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.WithError(err).Error("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	logger.Info("Server stopped")
}
