package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibedrive/vibedrive/api"
	"github.com/vibedrive/vibedrive/internal/app"
	"github.com/vibedrive/vibedrive/internal/config"
	"github.com/vibedrive/vibedrive/internal/log"
)

var serveJSONLogs bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveJSONLogs, "json-logs", false, "emit logs as JSON")
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the application and serves HTTP until SIGINT or
// SIGTERM. The signal context also scopes background ambience runs, so
// shutdown cancels anything still in flight.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{Level: slog.LevelInfo, JSON: serveJSONLogs})
	logger.Info("starting vibedrive", "version", AppVersion, "model", cfg.ModelName)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	// Keep-alives for SSE subscribers.
	go heartbeatLoop(ctx, a, cfg.HeartbeatInterval())

	server := api.NewServer(api.Deps{
		Tasks:       a.Tasks,
		Master:      a.Master,
		Bus:         a.Bus,
		Store:       a.Store,
		Pool:        a.DBPool,
		RunCtx:      ctx,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger.With("component", "api"),
	})
	return server.Run(ctx, cfg.ServerAddr)
}

// heartbeatLoop drives the event bus keep-alive until shutdown.
func heartbeatLoop(ctx context.Context, a *app.App, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Bus.Heartbeat()
		}
	}
}
