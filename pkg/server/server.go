package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/mchmarny/navd/pkg/metric"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = 9876

	// DefaultReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// It covers the first navigation after login, which waits for the menu fetch.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the maximum duration to wait for active connections
	// to gracefully close during server shutdown.
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultMaxHeaderBytes caps request header size.
	DefaultMaxHeaderBytes = 1 << 20 // 1 MB

	// MetricsPath is where WithPrometheusMetrics serves the registry.
	MetricsPath = "/metrics"

	// HealthPath is where WithSimpleHealth answers.
	HealthPath = "/healthz"
)

// Server is an HTTP server with graceful shutdown.
type Server interface {
	// Serve starts the HTTP server and blocks until the context is canceled.
	// Returns nil on graceful shutdown.
	Serve(ctx context.Context) error

	// IsRunning returns true once the socket is bound and until the server stops.
	IsRunning() bool

	// Registry returns the Prometheus registry of this server.
	Registry() *prometheus.Registry

	// Handler returns the root handler, for tests and embedding.
	Handler() http.Handler
}

type route struct {
	pattern string
	handler http.Handler
}

// server is the internal implementation of the Server interface.
type server struct {
	mux             *http.ServeMux
	routes          []route
	port            int
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	maxHeaderBytes  int
	errLog          *log.Logger
	tlsConfig       *TLSConfig
	metrics         bool
	health          bool
	mu              sync.RWMutex
	running         bool
	registry        *prometheus.Registry
}

// TLSConfig contains the certificate and key file paths for TLS/HTTPS support.
type TLSConfig struct {
	CertFile string // Path to the TLS certificate file
	KeyFile  string // Path to the TLS private key file
}

// Option is a functional option for configuring the Server.
type Option func(*server)

// WithPort sets the port number for the HTTP server.
func WithPort(port int) Option {
	return func(s *server) {
		if port > 0 {
			s.port = port
		}
	}
}

// WithReadTimeout sets the maximum duration for reading the entire request.
func WithReadTimeout(d time.Duration) Option {
	return func(s *server) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// WithWriteTimeout sets the maximum duration before timing out writes of the response.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithIdleTimeout sets the keep-alive idle timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *server) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithShutdownTimeout sets the maximum duration to wait for graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithMaxHeaderBytes sets the maximum number of bytes to read from request headers.
func WithMaxHeaderBytes(n int) Option {
	return func(s *server) { s.maxHeaderBytes = n }
}

// WithErrorLogger sets the logger for errors from the underlying http.Server.
func WithErrorLogger(l *log.Logger) Option {
	return func(s *server) {
		if l != nil {
			s.errLog = l
		}
	}
}

// WithHandler registers a handler for the pattern. Patterns follow
// http.ServeMux; "/" catches every path no other pattern claims.
func WithHandler(pattern string, handler http.Handler) Option {
	return func(s *server) {
		s.routes = append(s.routes, route{pattern: pattern, handler: handler})
	}
}

// WithRegistry replaces the Prometheus registry of the server.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithPrometheusMetrics serves the registry at /metrics together with the
// Go runtime and process collectors.
func WithPrometheusMetrics() Option {
	return func(s *server) { s.metrics = true }
}

// WithSimpleHealth adds /healthz answering 200 "ok".
func WithSimpleHealth() Option {
	return func(s *server) { s.health = true }
}

// WithTLS configures the server to use TLS with the provided certificate and key files.
func WithTLS(cfg TLSConfig) Option {
	return func(s *server) {
		s.tlsConfig = &cfg
	}
}

// New creates a new HTTP server with the provided options.
//
// Default configuration:
//   - Port: 9876
//   - ReadTimeout: 10s
//   - WriteTimeout: 30s
//   - IdleTimeout: 60s
//   - ShutdownTimeout: 5s
//   - MaxHeaderBytes: 1 MB
func New(opts ...Option) Server {
	s := &server{
		port:            DefaultPort,
		readTimeout:     DefaultReadTimeout,
		writeTimeout:    DefaultWriteTimeout,
		idleTimeout:     DefaultIdleTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		maxHeaderBytes:  DefaultMaxHeaderBytes,
		mux:             http.NewServeMux(),
		registry:        prometheus.NewRegistry(),
		errLog:          log.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.health {
		s.mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	}

	if s.metrics {
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.mux.Handle("GET "+MetricsPath, metric.GetHandlerForRegistry(s.registry))
	}

	for _, r := range s.routes {
		s.mux.Handle(r.pattern, r.handler)
	}

	slog.Info("server initialized",
		"port", s.port,
		"routes", len(s.routes),
		"read_timeout", s.readTimeout,
		"write_timeout", s.writeTimeout)

	return s
}

// Registry returns the Prometheus registry of this server.
func (s *server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns the server mux.
func (s *server) Handler() http.Handler {
	return s.mux
}

// IsRunning returns true if the server is currently running and accepting connections.
func (s *server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.running
}

// Serve starts the HTTP server and blocks until the context is canceled or an error occurs.
// One goroutine serves, the other waits for cancellation and shuts the server
// down within the shutdown timeout.
func (s *server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", s.port),
		Handler:        s.mux,
		ReadTimeout:    s.readTimeout,
		WriteTimeout:   s.writeTimeout,
		IdleTimeout:    s.idleTimeout,
		MaxHeaderBytes: s.maxHeaderBytes,
		ErrorLog:       s.errLog,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	if s.tlsConfig != nil {
		cert, certErr := tls.LoadX509KeyPair(s.tlsConfig.CertFile, s.tlsConfig.KeyFile)
		if certErr != nil {
			listener.Close()
			return fmt.Errorf("failed to load TLS certificate: %w", certErr)
		}

		listener = tls.NewListener(listener, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})

		slog.Info("starting TLS server", "addr", srv.Addr)
	} else {
		slog.Info("starting server", "addr", srv.Addr)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.mu.Lock()
		s.running = true
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		slog.Info("shutting down server", "grace_period", s.shutdownTimeout)

		shutdownStart := time.Now()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		slog.Info("server shutdown complete", "duration", time.Since(shutdownStart))

		return nil
	})

	return g.Wait()
}
