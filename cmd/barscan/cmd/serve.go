package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/server"
	"github.com/MeKo-Tech/barscan/internal/version"
)

func newServeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for the barcode decoding API",
		Long: `Start an HTTP server that decodes barcodes from uploaded images and PDFs.

The server provides the following endpoints:
  POST /decode/image - Decode an uploaded image (multipart field "image")
  POST /decode/pdf   - Decode the images embedded in an uploaded PDF
  GET  /ws/decode    - WebSocket decoding
  GET  /formats      - Supported and configured formats
  GET  /health       - Health check
  GET  /metrics      - Prometheus metrics

Examples:
  barscan serve
  barscan serve --port 8080 --formats qr,datamatrix
  barscan serve --host 0.0.0.0 --rate-limit-enabled --requests-per-minute 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.config()
			formats, opts, err := readerSettings(cmd, cfg)
			if err != nil {
				return err
			}
			applyServerFlags(cmd, &cfg.Server)

			sc := cfg.Server
			if sc.Port < 1 || sc.Port > 65535 {
				return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", sc.Port)
			}

			srv, err := server.NewServer(server.Config{
				Host:          sc.Host,
				Port:          sc.Port,
				CORSOrigin:    sc.CORSOrigin,
				MaxUploadMB:   int64(sc.MaxUploadMB),
				TimeoutSec:    sc.TimeoutSec,
				PoolSize:      sc.PoolSize,
				Version:       version.Info().Version,
				Formats:       formats,
				ReaderOptions: opts,
				RateLimit:     sc.RateLimit,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			httpServer := &http.Server{
				Addr:              fmt.Sprintf("%s:%d", sc.Host, sc.Port),
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       time.Duration(sc.TimeoutSec) * time.Second,
			}

			go srv.RunMaintenance(ctx, 10*time.Minute)

			serveErr := make(chan error, 1)
			go func() {
				slog.Info("Starting barcode server", "host", sc.Host, "port", sc.Port, "pool_size", sc.PoolSize)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
			defer signal.Stop(sigChan)

			var runErr error
			select {
			case sig := <-sigChan:
				slog.Info("Received shutdown signal", "signal", sig.String())
			case <-ctx.Done():
				slog.Info("Context cancelled, initiating shutdown")
			case err, ok := <-serveErr:
				if ok {
					slog.Error("Server error", "error", err)
					runErr = fmt.Errorf("server error: %w", err)
				}
			}

			slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", sc.ShutdownTimeout))
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(sc.ShutdownTimeout)*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP server shutdown error", "error", err)
			}
			if err := srv.Close(); err != nil {
				slog.Error("Server cleanup error", "error", err)
			}
			slog.Info("Graceful shutdown completed")
			return runErr
		},
	}

	addReaderFlags(cmd)
	cmd.Flags().StringP("host", "H", "localhost", "server host")
	cmd.Flags().IntP("port", "p", 8080, "server port")
	cmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	cmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	cmd.Flags().Int("timeout", 30, "request timeout in seconds")
	cmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	cmd.Flags().Int("pool-size", 4, "number of barcode readers shared by requests")
	cmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	cmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	cmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	cmd.Flags().Int("max-requests-per-day", 10000, "maximum requests per day per client")
	cmd.Flags().Int64("max-data-per-day", 1<<30, "maximum bytes uploaded per day per client")
	return cmd
}

// applyServerFlags overrides sc with the server flags set on the command line.
func applyServerFlags(cmd *cobra.Command, sc *config.ServerConfig) {
	f := cmd.Flags()
	if f.Changed("host") {
		sc.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		sc.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		sc.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		sc.MaxUploadMB, _ = f.GetInt("max-upload-size")
	}
	if f.Changed("timeout") {
		sc.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		sc.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("pool-size") {
		sc.PoolSize, _ = f.GetInt("pool-size")
	}
	if f.Changed("rate-limit-enabled") {
		sc.RateLimit.Enabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		sc.RateLimit.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		sc.RateLimit.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		sc.RateLimit.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		sc.RateLimit.MaxDataPerDay, _ = f.GetInt64("max-data-per-day")
	}
}
