// Package main is the entry point for copydash, the copy-trading dashboard backend.
// It serves the login flow, the strategy dashboard, copy management, public
// strategy portals and the open positions summary for the signed-in account.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/copydash/internal/config"
	"github.com/aristath/copydash/internal/di"
	"github.com/aristath/copydash/internal/scheduler"
	"github.com/aristath/copydash/internal/server"
	"github.com/aristath/copydash/pkg/logger"
)

// main orchestrates the startup sequence:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires all dependencies via the DI container and registers background jobs
// 4. Starts the scheduler and the HTTP server
// 5. Waits for a shutdown signal and stops everything in reverse order
//
// Two databases live under DATA_DIR:
// - portals.db: portals and their view/copy events
// - sessions.db: server-side browser sessions (disposable)
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("version", server.Version).Msg("Starting copydash")

	sched := scheduler.New(log)

	container, jobs, err := di.Wire(cfg, sched, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close databases")
		}
	}()

	// Check database health once before accepting traffic
	if err := jobs.DatabaseMaintenance.Run(); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("copydash is running")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// In-flight requests get up to 10 seconds; open streams are closed with the server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let running jobs finish before the databases close
	sched.Stop()

	log.Info().Msg("Server stopped")
}
