// Package httpapi exposes the service HTTP surface: health, readiness, and
// metrics endpoints plus the status, sites, and run-trigger API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ejayaguirre/geopulse/internal/domain"
	"github.com/ejayaguirre/geopulse/internal/pipeline"
	"github.com/ejayaguirre/geopulse/internal/store"
)

// Pipeline is the orchestrator surface the API consumes.
type Pipeline interface {
	TriggerRun(params domain.ScoreParameters, force bool) pipeline.Decision
	Status() pipeline.Snapshot
	CheckReadiness(ctx context.Context) error
}

// SiteStore reads persisted run outputs.
type SiteStore interface {
	LoadSites() ([]domain.CandidateSite, error)
	OutputsReady() bool
	SiteCount() int
	LoadLastRun() (*store.LastRun, error)
}

// Server exposes the GeoPulse HTTP endpoints.
type Server struct {
	httpServer *http.Server
	pipe       Pipeline
	sites      SiteStore
	defaults   domain.ScoreParameters
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, pipe Pipeline, sites SiteStore, defaults domain.ScoreParameters, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		pipe:     pipe,
		sites:    sites,
		defaults: defaults,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/sites", s.handleSites)
	mux.HandleFunc("POST /api/run", s.handleRun)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.pipe.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusResponse is the read-only status tuple served to pollers.
type statusResponse struct {
	Status       pipeline.Status `json:"status"`
	Step         string          `json:"step"`
	Progress     int             `json:"progress"`
	LastRun      *time.Time      `json:"last_run,omitempty"`
	Error        string          `json:"error,omitempty"`
	OutputsReady bool            `json:"outputs_ready"`
	SiteCount    int             `json:"site_count"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.pipe.Status()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:       snap.Status,
		Step:         snap.Step,
		Progress:     snap.Progress,
		LastRun:      snap.LastRun,
		Error:        snap.Error,
		OutputsReady: s.sites.OutputsReady(),
		SiteCount:    s.sites.SiteCount(),
	})
}

type sitesResponse struct {
	Status      string                 `json:"status"`
	Count       int                    `json:"count"`
	Sites       []domain.CandidateSite `json:"sites"`
	GeneratedAt *time.Time             `json:"generated_at,omitempty"`
}

func (s *Server) handleSites(w http.ResponseWriter, _ *http.Request) {
	sites, err := s.sites.LoadSites()
	if err != nil {
		s.logger.Error("failed to load sites", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  "failed to load persisted sites",
		})
		return
	}
	if sites == nil {
		sites = []domain.CandidateSite{}
	}

	resp := sitesResponse{Status: "ok", Count: len(sites), Sites: sites}
	if rec, err := s.sites.LoadLastRun(); err == nil && rec != nil {
		t := rec.CompletedAt
		resp.GeneratedAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

// runRequest is the optional trigger payload: a force flag and partial
// parameter overrides on top of the configured defaults.
type runRequest struct {
	Force  bool                       `json:"force"`
	Params *domain.ParameterOverrides `json:"params,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"status": "invalid",
				"error":  "malformed run request: " + err.Error(),
			})
			return
		}
	}

	params := s.defaults
	if req.Params != nil {
		applied, err := req.Params.Apply(s.defaults)
		if err != nil {
			// Configuration errors are surfaced synchronously; the
			// pipeline state is untouched.
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"status": "invalid",
				"error":  err.Error(),
			})
			return
		}
		params = applied
	}

	switch s.pipe.TriggerRun(params, req.Force) {
	case pipeline.DecisionAlreadyRunning:
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already_running"})
	case pipeline.DecisionReusedOutputs:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "done",
			"message": "reused previous outputs",
		})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
