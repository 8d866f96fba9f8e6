// Package http exposes the service over JSON endpoints, plus health,
// readiness, and metrics routes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
	"github.com/couchcryptid/respiratory-risk-service/internal/service"
)

// RiskAPI is the slice of the service layer the HTTP surface needs.
type RiskAPI interface {
	Suggest(ctx context.Context, query, sessionToken string) ([]domain.Suggestion, error)
	Retrieve(ctx context.Context, id, sessionToken string) (domain.Place, error)
	Assess(ctx context.Context, req service.AssessRequest) (domain.Assessment, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the risk API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	api        RiskAPI
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, api RiskAPI, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:    api,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/suggest", s.handleSuggest)
	mux.HandleFunc("GET /v1/retrieve/{id}", s.handleRetrieve)
	mux.HandleFunc("GET /v1/risk", s.handleRisk)

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

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.api.CheckReadiness(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	suggestions, err := s.api.Suggest(r.Context(), query, r.URL.Query().Get("session_token"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	place, err := s.api.Retrieve(r.Context(), r.PathValue("id"), r.URL.Query().Get("session_token"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, place)
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		query = q.Get("q")
	}
	req := service.AssessRequest{
		PlaceID:      q.Get("place_id"),
		Query:        query,
		SessionToken: q.Get("session_token"),
	}

	assessment, err := s.api.Assess(r.Context(), req)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, assessment)
}

// writeAPIError maps service errors to HTTP statuses: bad input is the
// caller's fault, missing places are 404, everything else is an upstream
// failure surfaced as 502.
func (s *Server) writeAPIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMissingLocator):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoResults):
		s.writeError(w, http.StatusNotFound, "no results found")
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "upstream request failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
