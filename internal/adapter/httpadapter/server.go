package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/store/sqlite"
)

// PostLister reads stored analyzed posts.
type PostLister interface {
	List(ctx context.Context, f sqlite.Filter) ([]domain.AnalyzedPost, error)
}

// Server exposes health, readiness, metrics and report HTTP endpoints.
type Server struct {
	httpServer *http.Server
	posts      PostLister
	gazetteer  *domain.Gazetteer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz and /metrics
// routes. When posts is non-nil the /api report views are mounted too.
func NewServer(addr string, ready sharedobs.ReadinessChecker, posts PostLister, g *domain.Gazetteer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		posts:     posts,
		gazetteer: g,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	if posts != nil {
		mux.HandleFunc("GET /api/posts", s.handlePosts)
		mux.HandleFunc("GET /api/stats", s.handleStats)
		mux.HandleFunc("GET /api/crosstab", s.handleCrossTab)
		mux.HandleFunc("GET /api/locations/top", s.handleTopLocations)
		mux.HandleFunc("GET /api/states", s.handleStates)
		mux.HandleFunc("GET /api/heatmap", s.handleHeatmap)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// AllReady combines readiness checkers; the first failure wins.
type AllReady []sharedobs.ReadinessChecker

func (a AllReady) CheckReadiness(ctx context.Context) error {
	for _, c := range a {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func errorResponse(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
