// Package server exposes barcode decoding over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/pdf"
)

// Decoder decodes one barcode from the centered crop of an image.
// *barcode.ReaderPool satisfies it.
type Decoder interface {
	Decode(ctx context.Context, img image.Image, cropWidth, cropHeight int) (*barcode.Result, error)
}

type pdfScanner interface {
	Scan(ctx context.Context, filename string, opts pdf.ScanOptions) (*pdf.DocumentResult, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	decoder     Decoder
	closer      func() error
	scanner     pdfScanner
	formats     barcode.FormatSet
	version     string
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host          string
	Port          int
	CORSOrigin    string
	MaxUploadMB   int64
	TimeoutSec    int
	PoolSize      int
	Version       string
	Formats       barcode.FormatSet
	ReaderOptions barcode.Options
	RateLimit     config.RateLimitConfig
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewServer creates a server backed by a ReaderPool of cfg.PoolSize readers.
func NewServer(cfg Config) (*Server, error) {
	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}
	pool, err := barcode.NewReaderPool(size, cfg.Formats, cfg.ReaderOptions)
	if err != nil {
		return nil, fmt.Errorf("create reader pool: %w", err)
	}
	s := newServer(cfg, pool)
	s.closer = pool.Close
	slog.Info("Reader pool ready", "size", pool.Size(), "formats", pool.Formats().String())
	return s, nil
}

func newServer(cfg Config, dec Decoder) *Server {
	s := &Server{
		decoder:     dec,
		scanner:     pdf.NewScanner(dec),
		formats:     cfg.Formats.Clone(),
		version:     cfg.Version,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if rl := cfg.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.wrap(s.healthHandler, false))
	mux.HandleFunc("/formats", s.wrap(s.formatsHandler, false))
	mux.HandleFunc("/decode/image", s.wrap(s.decodeImageHandler, true))
	mux.HandleFunc("/decode/pdf", s.wrap(s.decodePDFHandler, true))
	mux.HandleFunc("/ws/decode", s.wrap(s.decodeWebSocketHandler, true))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// wrap applies the middleware chain. Rate limiting only guards routes that
// do decoding work.
func (s *Server) wrap(h http.HandlerFunc, limited bool) http.HandlerFunc {
	if limited {
		h = s.rateLimitMiddleware(h)
	}
	return s.corsMiddleware(s.requestIDMiddleware(h))
}

// RunMaintenance forgets rate limit entries of clients idle for a day. It
// returns when ctx is done.
func (s *Server) RunMaintenance(ctx context.Context, interval time.Duration) {
	if s.rateLimiter == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.rateLimiter.Prune(24 * time.Hour); n > 0 {
				slog.Debug("Pruned idle rate limit entries", "clients", n)
			}
		}
	}
}

// requestContext bounds the request by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

// decodeStatus maps a decode error to an HTTP status code.
func decodeStatus(err error) int {
	switch {
	case errors.Is(err, barcode.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, barcode.ErrPoolClosed), errors.Is(err, barcode.ErrUseAfterRelease):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
