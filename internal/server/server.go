// Package server provides the HTTP server that wires all services together.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/ricesearch/rice-accesslog/internal/accesslog"
	"github.com/ricesearch/rice-accesslog/internal/config"
	"github.com/ricesearch/rice-accesslog/internal/metrics"
	apperrors "github.com/ricesearch/rice-accesslog/internal/pkg/errors"
	"github.com/ricesearch/rice-accesslog/internal/pkg/logger"
	"github.com/ricesearch/rice-accesslog/internal/pkg/middleware"
	"github.com/ricesearch/rice-accesslog/internal/search"
)

// Server is the main HTTP server that wires all services together.
type Server struct {
	cfg        config.Config
	log        *logger.Logger
	httpServer *http.Server
	handler    http.Handler

	// Services
	search      *search.Service
	metrics     *metrics.Metrics
	rateLimiter *middleware.RateLimiter
	accessLog   *accesslog.Writer
	accessOut   io.Closer

	mu       sync.RWMutex
	started  bool
	stopped  bool
	listener net.Listener
}

// New creates a new server with all dependencies.
func New(cfg config.Config, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Discard()
	}

	s := &Server{
		cfg: cfg,
		log: log.WithComponent("server"),
	}

	out, closer, err := openOutput(cfg.AccessLog.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to open access log: %w", err)
	}
	s.accessOut = closer

	var observers []accesslog.Observer
	if cfg.Observability.MetricsEnabled {
		s.metrics = metrics.New()
		observers = append(observers, s.metrics)
	}
	s.accessLog = accesslog.NewWriter(out, observers...)

	// Initialize search service
	s.search = search.NewService(search.Config{
		Partitions:     cfg.Search.Partitions,
		DownPartitions: cfg.Search.DownPartitions,
		TimeBudget:     cfg.Search.TimeBudget,
		DefaultHits:    cfg.Search.DefaultHits,
		MaxHits:        cfg.Search.MaxHits,
	}, log)
	if cfg.Search.DocumentsFile != "" {
		docs, err := search.LoadDocuments(cfg.Search.DocumentsFile)
		if err != nil {
			s.closeOutput()
			return nil, fmt.Errorf("failed to load documents: %w", err)
		}
		s.search.Add(docs...)
		s.log.Info("Loaded documents", "count", len(docs), "file", cfg.Search.DocumentsFile)
	}

	if cfg.Security.RateLimit > 0 {
		rlCfg := middleware.DefaultRateLimiterConfig()
		rlCfg.RequestsPerSecond = float64(cfg.Security.RateLimit)
		rlCfg.Burst = cfg.Security.RateLimit * 2
		rlCfg.TrustForwarded = cfg.AccessLog.TrustForwarded
		s.rateLimiter = middleware.NewRateLimiter(rlCfg)
	}

	s.handler = s.setupRoutes()
	return s, nil
}

// openOutput resolves the access log destination. The returned closer is
// nil for the standard streams.
func openOutput(output string) (io.Writer, io.Closer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Search returns the search service.
func (s *Server) Search() *search.Service {
	return s.search
}

// Start starts the HTTP server. It blocks until the server is stopped.
// Start returns nil without listening once Stop has been called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}

	addr := s.cfg.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.listener = ln
	s.started = true
	srv := s.httpServer
	s.mu.Unlock()

	s.log.Info("Starting HTTP server", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server and closes the access log.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	var shutdownErr error
	if s.started {
		s.log.Info("Shutting down server...")

		shutdownCtx := ctx
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
			defer cancel()
		}

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
			shutdownErr = err
		}
		s.started = false
	}

	if err := s.closeOutput(); err != nil {
		s.log.Error("Access log close error", "error", err)
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	s.log.Info("Server stopped")
	return shutdownErr
}

func (s *Server) closeOutput() error {
	if s.accessOut == nil {
		return nil
	}
	err := s.accessOut.Close()
	s.accessOut = nil
	return err
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	searchHandler := search.NewHandler(s.search)
	mux.HandleFunc("/search/", searchHandler.HandleSearch)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		apperrors.WriteError(w, apperrors.NotFoundError(r.URL.Path))
	})
	if s.metrics != nil {
		mux.Handle(s.cfg.Observability.MetricsPath, s.metrics.Handler())
	}

	var handler http.Handler = mux
	if s.rateLimiter != nil {
		handler = s.rateLimiter.Middleware(handler)
	}

	al := middleware.NewAccessLogger(middleware.AccessLoggerConfig{
		Writer:         s.accessLog,
		TrustForwarded: s.cfg.AccessLog.TrustForwarded,
		Headers:        s.cfg.AccessLog.Headers,
		Logger:         s.log,
	})
	handler = al.Middleware(handler)

	if s.metrics != nil {
		handler = s.metrics.InFlight(handler)
	}
	return handler
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Documents: s.search.Count(),
	})
}

// Health returns the server health status.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
