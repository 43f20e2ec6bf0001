// Package httpapi implements the HTTP surface (spec §6): the search
// endpoint, the background rebuild trigger, and the health check.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/itrecruiter/candidatesearch/internal/search"
	"github.com/itrecruiter/candidatesearch/internal/telemetry"
)

// SearchEngine is the subset of the hybrid search engine (C7) the server
// needs.
type SearchEngine interface {
	Search(ctx context.Context, filters search.Filters) ([]*search.FusedResult, error)
}

// RebuildLauncher is the subset of the job ledger (internal/asyncjob) the
// rebuild endpoint needs.
type RebuildLauncher interface {
	Start(ctx context.Context) (string, error)
}

// LexicalHealthChecker reports whether the lexical store's alias resolves
// to at least one index.
type LexicalHealthChecker interface {
	ListIndicesForAlias(ctx context.Context, alias string) ([]string, error)
}

// VectorHealthChecker reports whether the ANN collection exists.
// EnsureCollection is idempotent, so calling it from a health check doubles
// as an existence probe without a separate describe-collection method.
type VectorHealthChecker interface {
	EnsureCollection(ctx context.Context) error
}

// BusHealthChecker reports whether the message bus connection is open.
type BusHealthChecker interface {
	CheckConnection() bool
}

// Config configures the Server.
type Config struct {
	LexicalAlias string // default "candidates"
}

func (c Config) withDefaults() Config {
	if c.LexicalAlias == "" {
		c.LexicalAlias = "candidates"
	}
	return c
}

// Server wires the Hybrid Search Engine, the rebuild job ledger, and the
// health dependencies into net/http handlers. No router library is used:
// Go 1.22's ServeMux method-and-path patterns cover the three routes spec §6
// names, and nothing in the retrieval pack pulls in chi/gorilla/gin/echo for
// this — pulling one in here would be the odd one out, not the fit.
type Server struct {
	cfg     Config
	engine  SearchEngine
	jobs    RebuildLauncher
	lexical LexicalHealthChecker
	vector  VectorHealthChecker
	bus     BusHealthChecker
	logger  *slog.Logger
	metrics *telemetry.QueryMetrics
}

// SetMetrics attaches a query telemetry collector. Optional — a Server with
// no metrics attached just skips recording. Kept out of New's already-long
// parameter list since only /v1/search/ uses it.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.metrics = m
}

// New builds a Server. Any of lexical, vector, or bus may be nil, in which
// case /health skips that dependency's check (useful for the CLI's
// stand-alone `serve --no-bus` style invocations).
func New(cfg Config, engine SearchEngine, jobs RebuildLauncher, lexical LexicalHealthChecker, vector VectorHealthChecker, bus BusHealthChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg.withDefaults(),
		engine:  engine,
		jobs:    jobs,
		lexical: lexical,
		vector:  vector,
		bus:     bus,
		logger:  logger,
	}
}

// Handler builds the ServeMux wiring all routes spec §6 names.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/search/", s.handleSearch)
	mux.HandleFunc("POST /v1/search/index/rebuild", s.handleRebuild)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": "candidatesearch", "status": "up"})
}

type searchRequest struct {
	Role          string   `json:"role"`
	MustSkills    []string `json:"must_skills"`
	NiceSkills    []string `json:"nice_skills"`
	ExperienceMin *float64 `json:"experience_min"`
	ExperienceMax *float64 `json:"experience_max"`
	Location      string   `json:"location"`
	WorkModes     []string `json:"work_modes"`
	ExcludeIDs    []string `json:"exclude_ids"`
}

type searchResultItem struct {
	CandidateID string  `json:"candidate_id"`
	Score       float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if req.ExperienceMin != nil && req.ExperienceMax != nil && *req.ExperienceMax < *req.ExperienceMin {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "experience_max must be >= experience_min"})
		return
	}

	filters := search.Filters{
		Role:          req.Role,
		MustSkills:    req.MustSkills,
		NiceSkills:    req.NiceSkills,
		ExperienceMin: req.ExperienceMin,
		ExperienceMax: req.ExperienceMax,
		Location:      req.Location,
		WorkModes:     req.WorkModes,
		ExcludeIDs:    req.ExcludeIDs,
	}

	start := time.Now()
	fused, err := s.engine.Search(r.Context(), filters)
	if err != nil {
		s.logger.Error("search failed", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search failed"})
		return
	}

	s.recordQuery(req, len(fused), time.Since(start))

	resp := searchResponse{Results: make([]searchResultItem, 0, len(fused))}
	for _, f := range fused {
		resp.Results = append(resp.Results, searchResultItem{CandidateID: f.CandidateID, Score: f.RRFScore})
	}
	writeJSON(w, http.StatusOK, resp)
}

// recordQuery classifies and records a completed search for telemetry.
func (s *Server) recordQuery(req searchRequest, resultCount int, latency time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.Record(telemetry.QueryEvent{
		Query:       req.Role,
		QueryType:   telemetry.ClassifyQuery(req.Role, req.NiceSkills),
		ResultCount: resultCount,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}

type rebuildResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	taskID, err := s.jobs.Start(r.Context())
	if err != nil {
		s.logger.Error("failed to start rebuild job", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start rebuild"})
		return
	}
	writeJSON(w, http.StatusAccepted, rebuildResponse{Message: "reindex started", TaskID: taskID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.lexical != nil {
		indices, err := s.lexical.ListIndicesForAlias(ctx, s.cfg.LexicalAlias)
		if err != nil || len(indices) == 0 {
			writeUnhealthy(w, "lexical store unreachable")
			return
		}
	}

	if s.vector != nil {
		if err := s.vector.EnsureCollection(ctx); err != nil {
			writeUnhealthy(w, "ANN collection unavailable")
			return
		}
	}

	if s.bus != nil && !s.bus.CheckConnection() {
		writeUnhealthy(w, "message bus connection closed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeUnhealthy(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "reason": reason})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
