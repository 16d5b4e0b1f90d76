// Package http exposes the plugin catalogue and rule evaluation over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/rules/internal/logging"
	"github.com/aretw0/rules/internal/metrics"
	"github.com/aretw0/rules/internal/runtime"
	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxBodyBytes bounds the size of an evaluation request.
const MaxBodyBytes = 1 << 20

// Server serves the plugin registry and evaluates posted trees.
type Server struct {
	Registry  *expression.Registry
	Evaluator *runtime.Evaluator
	Metrics   *metrics.Collector
	Logger    *slog.Logger
	Version   string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts GET /metrics for the collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.Metrics = c }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.Logger = logger }
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.Version = v }
}

// NewHandler creates the HTTP handler.
func NewHandler(reg *expression.Registry, ev *runtime.Evaluator, opts ...Option) http.Handler {
	server := &Server{
		Registry:  reg,
		Evaluator: ev,
		Logger:    logging.NewNop(),
		Version:   "dev",
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/plugins", server.ListPlugins)
	r.Get("/plugins/{id}", server.GetPlugin)
	r.Get("/plugins/{id}/form", server.GetForm)
	r.Post("/evaluate", server.Evaluate)
	if server.Metrics != nil {
		r.Handle("/metrics", server.Metrics.Handler())
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "rules-http",
		"version": s.Version,
		"plugins": len(s.Registry.Definitions()),
	})
}

// ListPlugins handles the GET /plugins request.
func (s *Server) ListPlugins(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Registry.Definitions())
}

// GetPlugin handles the GET /plugins/{id} request.
func (s *Server) GetPlugin(w http.ResponseWriter, r *http.Request) {
	def, ok := s.Registry.Definition(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, domain.ErrUnknownPlugin)
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

// GetForm handles the GET /plugins/{id}/form request. Query parameters are
// passed to the plugin as configuration.
func (s *Server) GetForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	config := make(map[string]any)
	for k, v := range r.URL.Query() {
		config[k] = v[len(v)-1]
	}
	e, err := s.Registry.CreateWith(id, config)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownPlugin):
			s.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, domain.ErrInvalidConfiguration), errors.Is(err, domain.ErrInvalidDefinition):
			s.writeError(w, http.StatusUnprocessableEntity, err)
		default:
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	handler := e.FormHandler()
	if handler == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("plugin %s has no form", id))
		return
	}
	s.writeJSON(w, http.StatusOK, handler.Form())
}

// EvaluateRequest is the body of POST /evaluate.
type EvaluateRequest struct {
	Expression map[string]any    `json:"expression"`
	Variables  []domain.Variable `json:"variables"`
}

// EvaluateResponse is the result of POST /evaluate.
type EvaluateResponse struct {
	ExecutionID string                     `json:"execution_id"`
	Passed      bool                       `json:"passed"`
	Outcome     domain.Outcome             `json:"outcome"`
	Variables   map[string]domain.Variable `json:"variables"`
	Diff        *domain.VariableDiff       `json:"diff,omitempty"`
	DurationMS  float64                    `json:"duration_ms"`
}

// Evaluate handles the POST /evaluate request. Every request builds its own
// tree, so concurrent requests never share nodes.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var body EvaluateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&body); err != nil {
		s.Logger.Warn("evaluate: invalid request body", "error", err)
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.Expression == nil {
		s.writeError(w, http.StatusBadRequest, errors.New("expression is required"))
		return
	}

	tree, err := s.Registry.Create(body.Expression)
	if err != nil {
		s.Logger.Warn("evaluate: invalid expression", "error", err)
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrUnknownPlugin) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}

	res, err := s.Evaluator.Run(r.Context(), tree, body.Variables...)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrUndefinedVariable), errors.Is(err, domain.ErrTypeMismatch):
			status = http.StatusUnprocessableEntity
		default:
			s.Logger.Error("evaluate failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		}
		s.writeError(w, status, err)
		return
	}

	before := make(map[string]domain.Variable, len(body.Variables))
	for _, v := range body.Variables {
		before[v.Name] = v
	}
	s.writeJSON(w, http.StatusOK, EvaluateResponse{
		ExecutionID: res.ExecutionID,
		Passed:      res.Outcome.Passed,
		Outcome:     res.Outcome,
		Variables:   res.Variables,
		Diff:        domain.Diff(before, res.Variables),
		DurationMS:  float64(res.Duration.Microseconds()) / 1000,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
