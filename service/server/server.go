package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/omniscan/service/metrics"
	"github.com/brojonat/omniscan/service/nats"
)

// Server represents the HTTP server for the aggregation service.
type Server struct {
	addr      string
	backends  *Backends
	publisher nats.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The publisher is optional - if nil, block scans won't emit transfer events.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, backends *Backends, publisher nats.Publisher, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:      addr,
		backends:  backends,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	timed := func(name string, h http.Handler) http.Handler {
		return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}

	// Aggregation routes
	mux.Handle("GET /api/v1/networks", timed("/api/v1/networks", handleListNetworks(s.backends, s.logger)))
	mux.Handle("GET /api/v1/{network}/balance/{address}", timed("/api/v1/{network}/balance", handleGetBalance(s.backends, s.logger)))
	mux.Handle("GET /api/v1/{network}/balances", timed("/api/v1/{network}/balances", handleGetBalances(s.backends, s.logger)))
	mux.Handle("GET /api/v1/{network}/txs/{address}", timed("/api/v1/{network}/txs", handleGetAddressTxs(s.backends, s.logger)))
	mux.Handle("GET /api/v1/{network}/tx/{hash}", timed("/api/v1/{network}/tx", handleGetTxDetails(s.backends, s.logger)))
	mux.Handle("GET /api/v1/{network}/token-txs/{address}", timed("/api/v1/{network}/token-txs", handleGetTokenTxs(s.backends, s.logger)))
	mux.Handle("GET /api/v1/{network}/blocks", timed("/api/v1/{network}/blocks", handleScanBlocks(s.backends, s.publisher, s.logger)))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.publisher != nil {
		s.publisher.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers for all requests
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Pass through to next handler
		next.ServeHTTP(w, r)
	})
}
