package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/stageloader/internal/config"
	"github.com/JonMunkholm/stageloader/internal/core"
	_ "github.com/JonMunkholm/stageloader/internal/core/entities" // Register payments and orders
	"github.com/JonMunkholm/stageloader/internal/logging"
	"github.com/JonMunkholm/stageloader/internal/warehouse"
	"github.com/JonMunkholm/stageloader/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Warehouse.Backend,
		"staging_dataset", cfg.Warehouse.StagingDataset,
		"temp_dataset", cfg.Warehouse.TempDataset,
		"ingest_max_concurrent", cfg.Ingest.MaxConcurrent,
	)
	slog.Debug("configuration", "config", cfg.String())

	ctx := context.Background()
	wh, closeWarehouse, err := warehouse.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open warehouse", "error", err)
		os.Exit(1)
	}
	defer closeWarehouse()

	slog.Info("entities registered", "entities", core.Names())

	pipeline := core.NewPipeline(wh, cfg)
	server := web.NewServer(pipeline, cfg.Server)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting events first, then let in-flight runs finish their cleanup.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		runs := pipeline.Limiter().Status()
		if runs.Active > 0 {
			slog.Info("waiting for runs to complete", "active", runs.Active)
			if err := pipeline.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		closeWarehouse()
		os.Exit(1)
	}
	<-done
}
