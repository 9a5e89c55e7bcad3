package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/engine"
	"github.com/specialistvlad/toolgrid/internal/graphstore"
	"github.com/specialistvlad/toolgrid/internal/workflow"
)

type runResponse struct {
	Success bool     `json:"success"`
	RunID   string   `json:"run_id,omitempty"`
	Error   string   `json:"error,omitempty"`
	Log     []string `json:"log"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type saveRequest struct {
	Name  string          `json:"name"`
	Graph *workflow.Graph `json:"graph"`
}

type deleteRequest struct {
	Name string `json:"name"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := workflow.ParseRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.execute(w, r, req)
}

// execute runs req and maps the outcome onto the response. A run is not
// tied to the client connection: once started it completes even if the
// client goes away.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, req *workflow.Request) {
	logger := ctxlog.FromContext(r.Context())

	res, err := s.executor.Execute(context.WithoutCancel(r.Context()), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, runResponse{Success: true, RunID: res.RunID, Log: nonNil(res.Log)})
	case workflow.IsValidationError(err):
		logger.Info("Workflow rejected.", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Warn("Workflow run failed.", "error", err)
		resp := runResponse{Success: false, Error: err.Error(), Log: []string{}}
		if res != nil {
			resp.RunID = res.RunID
			resp.Log = nonNil(res.Log)
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req saveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Graph == nil {
		writeError(w, http.StatusBadRequest, "missing workflow name or graph")
		return
	}
	if !workflow.ValidName(req.Name) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid workflow name %q", req.Name))
		return
	}

	created, err := s.graphs.Save(r.Context(), req.Name, *req.Graph)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "created": created})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.graphs.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRunSaved(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.load(w, r)
	if !ok {
		return
	}
	s.execute(w, r, workflow.NewRequest(rec.Name, rec.Graph))
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (*graphstore.Record, bool) {
	name := r.PathValue("name")
	if !workflow.ValidName(name) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid workflow name %q", name))
		return nil, false
	}
	rec, err := s.graphs.Load(r.Context(), name)
	if errors.Is(err, graphstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return rec, true
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req deleteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing workflow name")
		return
	}
	if !workflow.ValidName(req.Name) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid workflow name %q", req.Name))
		return
	}

	err = s.graphs.Delete(r.Context(), req.Name)
	if errors.Is(err, graphstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tools.All())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func nonNil(log []string) []string {
	if log == nil {
		return []string{}
	}
	return log
}

var _ Executor = (*engine.Engine)(nil)
