package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard answers the selection queries behind the page and the JSON API.
type Dashboard interface {
	Tribes() ([]string, error)
	Render(ctx context.Context, tribe string) (domain.Render, error)
	Warnings() []domain.LayerWarning
}

// Basemap describes the historical tile layer drawn over the street map.
type Basemap struct {
	URL         string  `json:"url"`
	Name        string  `json:"name"`
	Attribution string  `json:"attribution"`
	Opacity     float64 `json:"opacity"`
}

// Server exposes the map page, the JSON API, and health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	dash       Dashboard
	basemap    Basemap
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the page, API, and operational routes.
func NewServer(addr string, dash Dashboard, ready sharedobs.ReadinessChecker, basemap Basemap, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dash:    dash,
		basemap: basemap,
		logger:  logger,
	}

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/tribes", s.handleTribes)
	mux.HandleFunc("GET /api/tribes/{name}", s.handleRender)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

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

// renderResponse is the JSON form of one selection.
type renderResponse struct {
	domain.Render
	ShowFallback  bool                  `json:"show_fallback"`
	OriginSummary string                `json:"origin_summary"`
	Warnings      []domain.LayerWarning `json:"warnings"`
}

func (s *Server) handleTribes(w http.ResponseWriter, _ *http.Request) {
	names, err := s.dash.Tribes()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	render, err := s.dash.Render(r.Context(), r.PathValue("name"))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	warnings := s.dash.Warnings()
	if warnings == nil {
		warnings = []domain.LayerWarning{}
	}
	writeJSON(w, http.StatusOK, renderResponse{
		Render:        render,
		ShowFallback:  render.ShowFallback(),
		OriginSummary: render.OriginSummary(),
		Warnings:      warnings,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}
