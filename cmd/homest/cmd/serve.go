package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/homest/internal/config"
	"github.com/MeKo-Tech/homest/internal/server"
)

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP estimation server",
		Long: `Start an HTTP server that estimates homographies on request.

The server provides the following endpoints:
  GET  /health       - Health check endpoint
  GET  /config       - Active estimator parameters
  POST /estimate     - Estimate from a JSON correspondence body
  GET  /ws/estimate  - WebSocket estimation, one set per message
  GET  /metrics      - Prometheus metrics

Examples:
  homest serve
  homest serve --port 8080
  homest serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}

	d := config.DefaultConfig().Server
	addEstimatorFlags(cmd)
	cmd.Flags().StringP("host", "H", d.Host, "server host")
	cmd.Flags().IntP("port", "p", d.Port, "server port")
	cmd.Flags().String("cors-origin", d.CORSOrigin, "CORS allowed origins")
	cmd.Flags().Int("max-body-size", d.MaxBodyMB, "maximum request body size in MB")
	cmd.Flags().Int("max-points", d.MaxPoints, "maximum correspondences per request")
	cmd.Flags().Int("timeout", d.TimeoutSec, "request timeout in seconds")
	cmd.Flags().Int("shutdown-timeout", d.ShutdownTimeout, "shutdown timeout in seconds")
	cmd.Flags().Bool("rate-limit-enabled", d.RateLimit.Enabled, "enable rate limiting")
	cmd.Flags().Int("requests-per-minute", d.RateLimit.RequestsPerMinute, "maximum requests per minute per client")
	cmd.Flags().Int("requests-per-hour", d.RateLimit.RequestsPerHour, "maximum requests per hour per client")
	cmd.Flags().Int("max-requests-per-day", d.RateLimit.MaxRequestsPerDay, "maximum requests per day per client")
	cmd.Flags().Int64("max-points-per-day", d.RateLimit.MaxPointsPerDay, "maximum correspondences processed per day per client")

	return cmd
}

// toServerConfig maps the loaded configuration to server.Config.
// Flags override config values only when explicitly set.
func (a *app) toServerConfig(cmd *cobra.Command) (server.Config, int, error) {
	est, err := a.estimatorConfig(cmd)
	if err != nil {
		return server.Config{}, 0, err
	}

	s := a.cfg.Server
	if cmd.Flags().Changed("host") {
		s.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		s.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("cors-origin") {
		s.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	if cmd.Flags().Changed("max-body-size") {
		s.MaxBodyMB, _ = cmd.Flags().GetInt("max-body-size")
	}
	if cmd.Flags().Changed("max-points") {
		s.MaxPoints, _ = cmd.Flags().GetInt("max-points")
	}
	if cmd.Flags().Changed("timeout") {
		s.TimeoutSec, _ = cmd.Flags().GetInt("timeout")
	}
	if cmd.Flags().Changed("shutdown-timeout") {
		s.ShutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	if cmd.Flags().Changed("rate-limit-enabled") {
		s.RateLimit.Enabled, _ = cmd.Flags().GetBool("rate-limit-enabled")
	}
	if cmd.Flags().Changed("requests-per-minute") {
		s.RateLimit.RequestsPerMinute, _ = cmd.Flags().GetInt("requests-per-minute")
	}
	if cmd.Flags().Changed("requests-per-hour") {
		s.RateLimit.RequestsPerHour, _ = cmd.Flags().GetInt("requests-per-hour")
	}
	if cmd.Flags().Changed("max-requests-per-day") {
		s.RateLimit.MaxRequestsPerDay, _ = cmd.Flags().GetInt("max-requests-per-day")
	}
	if cmd.Flags().Changed("max-points-per-day") {
		s.RateLimit.MaxPointsPerDay, _ = cmd.Flags().GetInt64("max-points-per-day")
	}

	if s.Port < 1 || s.Port > 65535 {
		return server.Config{}, 0, fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", s.Port)
	}

	return server.Config{
		Host:       s.Host,
		Port:       s.Port,
		CORSOrigin: s.CORSOrigin,
		MaxBodyMB:  int64(s.MaxBodyMB),
		MaxPoints:  s.MaxPoints,
		TimeoutSec: s.TimeoutSec,
		Estimator:  est,
		RateLimit: server.RateLimitConfig{
			Enabled:           s.RateLimit.Enabled,
			RequestsPerMinute: s.RateLimit.RequestsPerMinute,
			RequestsPerHour:   s.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: s.RateLimit.MaxRequestsPerDay,
			MaxPointsPerDay:   s.RateLimit.MaxPointsPerDay,
		},
	}, s.ShutdownTimeout, nil
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	serverConfig, shutdownTimeout, err := a.toServerConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	estServer, err := server.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	mux := http.NewServeMux()
	estServer.SetupRoutes(mux)

	timeout := time.Duration(serverConfig.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(serverConfig.Host, strconv.Itoa(serverConfig.Port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}

	go func() {
		slog.Info("Starting estimation server", "host", serverConfig.Host, "port", serverConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	if err := estServer.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	slog.Info("Graceful shutdown completed")
	return nil
}
