// Package api serves the chartmeta HTTP API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/okian/chartmeta/internal/adapters/http/swagger"
	"github.com/okian/chartmeta/internal/adapters/repository"
	"github.com/okian/chartmeta/internal/domain/scoring"
	"github.com/okian/chartmeta/internal/domain/types"
	"github.com/okian/chartmeta/pkg/metrics"
)

const defaultMaxBodyBytes = 8 << 20

// Submission acknowledges a queued song batch.
type Submission struct {
	BatchID    string `json:"batch_id"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Score runs the pipeline synchronously on an inline chart.
	Score(ctx context.Context, in scoring.Input) (scoring.Result, error)

	// SubmitSong enqueues both fever passes for each difficulty in levels.
	SubmitSong(ctx context.Context, song string, levels map[string]int) (Submission, error)

	// Results lists stored rows.
	Results(ctx context.Context, f repository.Filter) ([]types.Row, error)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxBodyBytes caps request bodies. Values <= 0 are ignored.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithAllowedOrigins sets the CORS origins; the default allows any.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps         Dependencies
	maxBodyBytes int64
	origins      []string
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		maxBodyBytes: defaultMaxBodyBytes,
		origins:      []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the route table without CORS.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	r.Use(MetricsMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	swagger.Register(r)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/score", s.handleScore).Methods(http.MethodPost)
	v1.HandleFunc("/songs/{song}", s.handleSubmitSong).Methods(http.MethodPost)
	v1.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)
	return r
}

// Handler returns the full HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
