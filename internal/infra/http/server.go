package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/openctemio/scanledger/internal/config"
	"github.com/openctemio/scanledger/internal/infra/http/middleware"
	"github.com/openctemio/scanledger/pkg/logger"
)

// UploadPathPrefix is exempt from the global body limit; the upload
// handler bounds its own body by the ingest upload size.
const UploadPathPrefix = "/api/v1/batches"

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = time.Minute
)

// Server owns the HTTP listener and the global middleware chain.
type Server struct {
	srv    *http.Server
	router Router
	log    *logger.Logger

	// onShutdown runs before the listener is closed.
	onShutdown []func()
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRouter replaces the default chi router.
func WithRouter(r Router) ServerOption {
	return func(s *Server) { s.router = r }
}

// NewServer builds the server with the global chain installed. Routes are
// registered on Router() afterwards.
func NewServer(cfg *config.Config, log *logger.Logger, opts ...ServerOption) *Server {
	s := &Server{log: log.With("component", "http_server")}
	for _, opt := range opts {
		opt(s)
	}
	if s.router == nil {
		s.router = NewChiRouter()
	}

	limit, stopLimit := middleware.RateLimit(&cfg.RateLimit, log)
	s.onShutdown = append(s.onShutdown, stopLimit)

	// Recovery wraps everything; the request id is set before anything logs.
	s.router.Use(
		middleware.Recovery(log, cfg.IsProduction()),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(&cfg.CORS),
		middleware.BodyLimit(cfg.Server.MaxBodySize, UploadPathPrefix),
		limit,
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.Metrics(),
		middleware.AccessLog(log, accessLogConfig(&cfg.Log)),
	)

	s.srv = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.router.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          log.StdLogger(),
	}
	return s
}

func accessLogConfig(cfg *config.LogConfig) middleware.AccessLogConfig {
	alc := middleware.DefaultAccessLogConfig()
	if cfg.SlowRequestSeconds > 0 {
		alc.SlowThreshold = time.Duration(cfg.SlowRequestSeconds) * time.Second
	}
	if !cfg.SkipHealthLogs {
		alc.SkipPaths = nil
	}
	return alc
}

// Router returns the router routes are registered on.
func (s *Server) Router() Router {
	return s.router
}

// Handler returns the root handler with the global chain applied.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("http server listening", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Shutdown stops background helpers, then drains in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	for _, fn := range s.onShutdown {
		fn()
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}
