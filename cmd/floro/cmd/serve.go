package cmd

import (
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyber-run/floro/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the segmentation API",
	Long: `Start an HTTP server that segments uploaded images.

The server provides the following endpoints:
  POST /v1/segment - Segment an uploaded image (multipart field "image")
  GET  /ws/segment - WebSocket variant taking base64 images as JSON messages
  GET  /health     - Health check endpoint
  GET  /metrics    - Prometheus metrics

Examples:
  floro serve
  floro serve --port 8080
  floro serve --host 0.0.0.0 --port 3000 --rate-limit-enabled --requests-per-minute 30`,
	RunE: runServeCommand,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addSegmentationFlags(serveCmd)

	serveCmd.Flags().StringP("host", "H", "localhost", "host to bind to")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().String("cors-origin", "*", "allowed CORS origin")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "per-request processing timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	serveCmd.Flags().Bool("overlay-enable", true, "allow format=png annotated responses")

	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable per-client rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "requests allowed per client per minute")
	serveCmd.Flags().Int("requests-per-hour", 1000, "requests allowed per client per hour")
	serveCmd.Flags().Int("max-requests-per-day", 0, "daily request quota per client (0 disables)")
	serveCmd.Flags().Int64("max-data-per-day", 0, "daily upload quota per client in bytes (0 disables)")
}

// configToServerConfig maps centralized configuration plus flags to server.Config.
func configToServerConfig(cmd *cobra.Command) (server.Config, error) {
	cfg := GetConfig()
	f := cmd.Flags()
	applySegmentationFlags(cmd, &cfg.Segmentation)

	cfg.Server.Host = stringOverride(cmd, "host", cfg.Server.Host)
	if f.Changed("port") {
		cfg.Server.Port, _ = f.GetInt("port")
	}
	cfg.Server.CORSOrigin = stringOverride(cmd, "cors-origin", cfg.Server.CORSOrigin)
	if f.Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = f.GetInt("max-upload-size")
	}
	if f.Changed("timeout") {
		cfg.Server.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("overlay-enable") {
		cfg.Server.OverlayEnabled, _ = f.GetBool("overlay-enable")
	}
	if err := cfg.Validate(); err != nil {
		return server.Config{}, err
	}
	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return server.Config{}, err
	}

	rl := server.RateLimitConfig{}
	rl.Enabled, _ = f.GetBool("rate-limit-enabled")
	rl.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	rl.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	rl.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	rl.MaxDataPerDay, _ = f.GetInt64("max-data-per-day")

	return server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		CORSOrigin:      cfg.Server.CORSOrigin,
		MaxUploadMB:     int64(cfg.Server.MaxUploadMB),
		TimeoutSec:      cfg.Server.TimeoutSec,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		PipelineConfig:  pc,
		OverlayEnabled:  cfg.Server.OverlayEnabled,
		RateLimit:       rl,
		Logger:          logger,
	}, nil
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	sc, err := configToServerConfig(cmd)
	if err != nil {
		return err
	}
	srv, err := server.NewServer(sc)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
	logger.Debug().Str("addr", addr).Bool("rate_limit", sc.RateLimit.Enabled).Msg("server configured")
	return srv.ListenAndServe(ctx, addr,
		time.Duration(sc.TimeoutSec)*time.Second,
		time.Duration(sc.ShutdownTimeout)*time.Second)
}
