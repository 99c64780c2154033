package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 2 * time.Minute
)

// Server is an http.Server carrying the timeouts shared by the API and the proxy.
type Server struct {
	inner *http.Server
}

// Option adjusts the underlying http.Server.
type Option func(*http.Server)

// WithErrorLogger routes the server's internal errors (TLS handshakes,
// malformed requests, handler panics outside the middleware) to logger at warn.
func WithErrorLogger(logger *slog.Logger) Option {
	return func(s *http.Server) {
		if logger != nil {
			s.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
		}
	}
}

// New constructs a server listening on port.
func New(port int, handler http.Handler, opts ...Option) *Server {
	inner := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	for _, opt := range opts {
		opt(inner)
	}
	return &Server{inner: inner}
}

// Addr reports the configured listen address.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start serves until Shutdown; it returns http.ErrServerClosed after a clean stop.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
