package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interlink/internal/logger"
	"interlink/internal/server"

	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 30 * time.Second
	dbStatsInterval = 15 * time.Second
)

// NewServeCmd creates the serve command for starting the HTTP API
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the interlink JSON API.

The server provides:
  • Suggestion, apply, preview and removal endpoints under /api
  • Health check at /health
  • Prometheus metrics at the configured metrics path

Mutating endpoints require "Authorization: Bearer <ADMIN_API_KEY>".

Examples:
  interlink serve
  interlink serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	log := logger.Component("serve")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := pingDatabase(ctx, a.db); err != nil {
		return err
	}
	log.Info().Str("driver", a.cfg.Database.Driver).Msg("Database connection successful")

	serverCfg := a.cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	opts := server.Options{MetricsPath: a.cfg.Metrics.Path}
	if a.cfg.Metrics.Enabled {
		opts.Metrics = a.metrics
	}
	srv := server.New(a.linking, a.db, serverCfg, opts)

	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	if handle, ok := a.db.(sqlHandle); ok && opts.Metrics != nil {
		go reportDBStats(statsCtx, handle, a)
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Msgf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port)
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("Server shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info().Msg("Server stopped successfully")
	}

	return nil
}

// reportDBStats publishes connection pool gauges until ctx is done
func reportDBStats(ctx context.Context, handle sqlHandle, a *app) {
	ticker := time.NewTicker(dbStatsInterval)
	defer ticker.Stop()

	for {
		a.metrics.UpdateDBStats(handle.DB().Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
