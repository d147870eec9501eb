package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rickgao/deribit-data/internal/metrics"
	"github.com/rickgao/deribit-data/internal/version"
)

// Transport reports connection state. connection.Client satisfies it.
type Transport interface {
	IsConnected() bool
}

// PendingCounter reports in-flight calls. *rpc.Correlator satisfies it.
type PendingCounter interface {
	Pending() int
}

// FeedLister reports live feeds. *subscription.Cache satisfies it.
type FeedLister interface {
	Keys() []string
	Len() int
}

// Config holds status server settings.
type Config struct {
	Port        int
	MetricsPath string // default: /metrics
}

// Deps are the components whose state the server reports.
type Deps struct {
	Transport Transport
	Pending   PendingCounter
	Feeds     map[string]FeedLister // by cache name, e.g. "tickers"
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string         `json:"status"`
	Connected   bool           `json:"connected"`
	Pending     int            `json:"pending_calls"`
	ActiveFeeds map[string]int `json:"active_feeds"`
	Uptime      string         `json:"uptime"`
}

// Server serves health, metrics and feed introspection.
type Server struct {
	cfg     Config
	deps    Deps
	logger  *slog.Logger
	started time.Time
	router  chi.Router
}

// New creates a Server and builds its routes.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  logger.With(slog.String("component", "server")),
		started: time.Now(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Handle(s.cfg.MetricsPath, metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", s.health)
		r.Get("/version", s.version)
		r.Get("/debug/feeds", s.feeds)
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// health handles GET /health. It answers 503 while the transport is down.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		ActiveFeeds: make(map[string]int, len(s.deps.Feeds)),
		Uptime:      time.Since(s.started).Round(time.Second).String(),
	}
	if s.deps.Transport != nil {
		resp.Connected = s.deps.Transport.IsConnected()
	}
	if s.deps.Pending != nil {
		resp.Pending = s.deps.Pending.Pending()
	}
	for name, f := range s.deps.Feeds {
		resp.ActiveFeeds[name] = f.Len()
	}

	if !resp.Connected {
		resp.Status = "disconnected"
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}

// version handles GET /version.
func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, version.Get())
}

// feeds handles GET /debug/feeds.
func (s *Server) feeds(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]string, len(s.deps.Feeds))
	for name, f := range s.deps.Feeds {
		out[name] = f.Keys()
	}
	render.JSON(w, r, out)
}
