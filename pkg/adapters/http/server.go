// Package http exposes a compiled graph over HTTP.
//
//	POST /evaluate  {"node": "greeting", "config": {...}} -> {"value": ...}
//	POST /validate  -> {"valid": true} or 422 {"valid": false, "error": "..."}
//	POST /keys      -> {"keys": [...]}
//	POST /explain   -> {"sufficient": true, "keys": [...]} or {"sufficient": false, "reason": "..."}
//	GET  /nodes     -> ["greeting", ...]
//	GET  /health, GET /info, GET /metrics
//
// An empty node name selects the graph's root.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/espalier/internal/compiler"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/runtime"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Graph is the set of named nodes served.
type Graph interface {
	Resolve(name string) (domain.Node, error)
	Names() []string
}

// Request is the body of the POST endpoints.
type Request struct {
	Node   string         `json:"node,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// Server handles requests against one Graph.
type Server struct {
	graph    Graph
	base     config.Config
	handlers runtime.Handlers
	gatherer prometheus.Gatherer
	version  string
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithBaseConfig sets the configuration every request body is overlaid on.
func WithBaseConfig(cfg config.Config) Option {
	return func(s *Server) {
		s.base = cfg
	}
}

// WithHandlers installs request handlers around every operation, for
// example typecheck.Enforce().
func WithHandlers(h runtime.Handlers) Option {
	return func(s *Server) {
		s.handlers = h
	}
}

// WithGatherer sets the source of /metrics. Defaults to the Prometheus
// default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a Server for graph.
func NewServer(graph Graph, opts ...Option) *Server {
	s := &Server{
		graph:    graph,
		base:     config.Empty(),
		gatherer: prometheus.DefaultGatherer,
		version:  "dev",
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates a new HTTP handler for graph.
func NewHandler(graph Graph, opts ...Option) http.Handler {
	return NewServer(graph, opts...).Routes()
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/evaluate", s.Evaluate)
	r.Post("/validate", s.Validate)
	r.Post("/keys", s.Keys)
	r.Post("/explain", s.Explain)
	r.Get("/nodes", s.GetNodes)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
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

// prepare decodes the body and resolves its node and configuration. It
// writes the error response itself and reports whether to continue.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request, op string) (context.Context, func(), domain.Node, config.Config, bool) {
	var body Request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn(op+": invalid request body", "error", err)
		return nil, nil, nil, config.Config{}, false
	}

	n, err := s.graph.Resolve(body.Node)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, compiler.ErrNodeNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		s.logger.Warn(op+": unknown node", "node", body.Node, "error", err)
		return nil, nil, nil, config.Config{}, false
	}

	cfg := s.base.Overlay(config.New(body.Config))
	ctx, exit := r.Context(), func() {}
	if len(s.handlers) > 0 {
		ctx, exit = runtime.Scope(ctx, s.handlers)
	}
	return ctx, exit, n, cfg, true
}

// fail maps err to a status: evaluation and validation failures are the
// caller's configuration, anything else is ours.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEvaluation), errors.Is(err, domain.ErrValidation):
		status = http.StatusUnprocessableEntity
		s.logger.Debug(op+" rejected", "error", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		s.logger.Warn(op+" interrupted", "error", err)
	default:
		s.logger.Error(op+" failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()}, s.logger)
}

// Evaluate handles the POST /evaluate request.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx, exit, n, cfg, ok := s.prepare(w, r, "Evaluate")
	if !ok {
		return
	}
	defer exit()

	v, err := eval.Evaluate(ctx, n, cfg)
	if err != nil {
		s.fail(w, "Evaluate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": v}, s.logger)
}

// Validate handles the POST /validate request.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, exit, n, cfg, ok := s.prepare(w, r, "Validate")
	if !ok {
		return
	}
	defer exit()

	err := eval.Validate(ctx, n, cfg)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"valid": true}, s.logger)
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"valid": false, "error": err.Error()}, s.logger)
	default:
		s.fail(w, "Validate", err)
	}
}

// Keys handles the POST /keys request.
func (s *Server) Keys(w http.ResponseWriter, r *http.Request) {
	ctx, exit, n, cfg, ok := s.prepare(w, r, "Keys")
	if !ok {
		return
	}
	defer exit()

	keys, err := eval.Keys(ctx, n, cfg)
	if err != nil {
		s.fail(w, "Keys", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys.Sorted()}, s.logger)
}

// Explain handles the POST /explain request.
func (s *Server) Explain(w http.ResponseWriter, r *http.Request) {
	ctx, exit, n, cfg, ok := s.prepare(w, r, "Explain")
	if !ok {
		return
	}
	defer exit()

	e, err := eval.Explain(ctx, n, cfg)
	if err != nil {
		s.fail(w, "Explain", err)
		return
	}
	if !e.Sufficient() {
		writeJSON(w, http.StatusOK, map[string]any{"sufficient": false, "reason": e.Err().Error()}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sufficient": true, "keys": e.Keys.Sorted()}, s.logger)
}

// GetNodes handles the GET /nodes request.
func (s *Server) GetNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.graph.Names(), s.logger)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "espalier-http",
		"version": s.version,
	}, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}
