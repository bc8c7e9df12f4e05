// Package api provides the HTTP server for kospifeed.
//
// It exposes the aggregated updates feed, the single-keyword news lookup,
// a health check and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/kospifeed/internal/config"
	"github.com/seenimoa/kospifeed/internal/feed"
	"github.com/seenimoa/kospifeed/internal/providers/naver"
	"github.com/seenimoa/kospifeed/pkg/models"
)

// APIKeyHeader carries the shared secret for /updates.
const APIKeyHeader = "X-API-Key"

// UpdatesService builds the aggregated feed.
type UpdatesService interface {
	Updates(ctx context.Context, req feed.UpdatesRequest) (*feed.UpdatesResult, error)
}

// NewsSearcher runs a single-keyword news lookup.
type NewsSearcher interface {
	Search(ctx context.Context, params naver.SearchParams) ([]models.Event, error)
}

// Options are the collaborators of a Server. Metrics may be nil.
type Options struct {
	Updates UpdatesService
	News    NewsSearcher
	Logger  *slog.Logger
	Metrics http.Handler
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	updates UpdatesService
	news    NewsSearcher
	logger  *slog.Logger
	metrics http.Handler
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		cfg:     cfg,
		updates: opts.Updates,
		news:    opts.News,
		logger:  logger,
		metrics: opts.Metrics,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully on
// SIGINT or SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx, addr)
}

// Run serves on addr until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.requestTimeout() + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// requestTimeout bounds one request: every upstream call may use the full
// upstream timeout, plus headroom for rate limiting.
func (s *Server) requestTimeout() time.Duration {
	t := 2 * s.cfg.Upstream.Timeout
	if t < 30*time.Second {
		t = 30 * time.Second
	}
	return t
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", APIKeyHeader, "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.With(s.requireAPIKey).Get("/updates", s.handleUpdates)
	r.Get("/news", s.handleNews)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
