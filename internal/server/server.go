// Package server exposes the engine, the graph store and the tool catalog
// over HTTP.
//
//	POST /api/workflows/execute/      run a submitted graph
//	POST /api/workflows/save/         create or replace a named graph
//	GET  /api/workflows/              list named graphs, newest first
//	GET  /api/workflows/{name}        load one named graph
//	POST /api/workflows/{name}/run    load a named graph and run it
//	POST /api/workflows/delete/       delete a named graph
//	GET  /api/tools/                  the tool catalog
//	GET  /health                      liveness
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/engine"
	"github.com/specialistvlad/toolgrid/internal/graphstore"
	"github.com/specialistvlad/toolgrid/internal/workflow"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 10 << 20

// Executor runs workflows.
type Executor interface {
	Execute(ctx context.Context, req *workflow.Request) (*engine.Result, error)
}

// ToolLister lists the tool catalog.
type ToolLister interface {
	All() map[string]workflow.ToolDef
}

// Server holds the HTTP handlers.
type Server struct {
	executor Executor
	graphs   graphstore.Store
	tools    ToolLister
	logger   *slog.Logger
}

// New creates a Server.
func New(executor Executor, graphs graphstore.Store, tools ToolLister, logger *slog.Logger) *Server {
	return &Server{executor: executor, graphs: graphs, tools: tools, logger: logger}
}

// Handler returns the routed handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/workflows/execute/{$}", s.handleExecute)
	mux.HandleFunc("POST /api/workflows/save/{$}", s.handleSave)
	mux.HandleFunc("POST /api/workflows/delete/{$}", s.handleDelete)
	mux.HandleFunc("GET /api/workflows/{$}", s.handleList)
	mux.HandleFunc("GET /api/workflows/{name}", s.handleLoad)
	mux.HandleFunc("POST /api/workflows/{name}/run", s.handleRunSaved)
	mux.HandleFunc("GET /api/tools/{$}", s.handleTools)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.withLogging(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging attaches the logger to the request context and logs every
// request once it completes.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With("method", r.Method, "path", r.URL.Path)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctxlog.WithLogger(r.Context(), logger)))

		logger.Debug("Request handled.", "status", rec.status, "duration", time.Since(start))
	})
}
