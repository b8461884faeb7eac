package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/haasonsaas/docops/internal/audit"
	"github.com/haasonsaas/docops/internal/jobs"
	"github.com/haasonsaas/docops/internal/runtime"
)

type createJobRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Text        string `json:"text"`

	// SourceText is accepted as a legacy alias for Text.
	SourceText string `json:"source_text"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Filename == "" {
		req.Filename = "document.txt"
	}
	if req.ContentType == "" {
		req.ContentType = "text/plain"
	}
	text := req.Text
	if text == "" {
		text = req.SourceText
	}

	job, err := s.jobs.Create(r.Context(), req.Filename, req.ContentType, text)
	if err != nil {
		s.logger.Error("create job", "error", err)
		writeError(w, http.StatusInternalServerError, "create job failed")
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list jobs", "error", err)
		writeError(w, http.StatusInternalServerError, "list jobs failed")
		return
	}
	if list == nil {
		list = []*jobs.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": list})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("get job", "error", err)
		writeError(w, http.StatusInternalServerError, "get job failed")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, err := s.jobs.Get(r.Context(), jobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get job failed")
		return
	}

	events, err := s.audit.ListByJob(r.Context(), jobID)
	if err != nil {
		s.logger.Error("list events", "error", err)
		writeError(w, http.StatusInternalServerError, "list events failed")
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, err := s.jobs.Get(r.Context(), jobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get job failed")
		return
	}

	list, err := s.artifacts.ListByJob(r.Context(), jobID)
	if err != nil {
		s.logger.Error("list artifacts", "error", err)
		writeError(w, http.StatusInternalServerError, "list artifacts failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": list})
}

type setStatusRequest struct {
	ToStatus string `json:"to_status"`
	Reason   string `json:"reason"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	to := jobs.Status(req.ToStatus)
	if !to.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status: "+req.ToStatus)
		return
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	job, err := s.jobs.SetStatus(r.Context(), r.PathValue("id"), to, req.Reason)
	if err != nil {
		var te *jobs.TransitionError
		switch {
		case errors.Is(err, jobs.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.As(err, &te):
			writeError(w, http.StatusBadRequest, te.Error())
		default:
			s.logger.Error("set status", "error", err)
			writeError(w, http.StatusInternalServerError, "set status failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, err := s.jobs.Get(r.Context(), jobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get job failed")
		return
	}

	result, err := s.runner.RunJob(r.Context(), jobID)
	if err != nil {
		s.handleRunFailure(w, r, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRunFailure marks the job FAILED and records an ERROR audit event.
// Cleanup failures are logged but never mask the run error's response.
func (s *Server) handleRunFailure(w http.ResponseWriter, r *http.Request, jobID string, runErr error) {
	ctx := r.Context()

	if errors.Is(runErr, runtime.ErrMissingSource) {
		writeError(w, http.StatusBadRequest, runErr.Error())
		return
	}

	var pde *runtime.PolicyDeniedError
	if errors.As(runErr, &pde) {
		s.failJob(ctx, jobID, "policy_denied", map[string]any{
			"kind":  "policy_denied",
			"error": runErr.Error(),
			"tool":  pde.Tool,
		})
		writeError(w, http.StatusForbidden, runErr.Error())
		return
	}

	s.failJob(ctx, jobID, "run_failed", map[string]any{
		"kind":  "run_failed",
		"error": runErr.Error(),
	})
	s.logger.Error("job run failed", "job_id", jobID, "error", runErr)
	writeError(w, http.StatusInternalServerError, "job run failed")
}

func (s *Server) failJob(ctx context.Context, jobID, reason string, payload map[string]any) {
	if err := s.audit.Write(ctx, jobID, audit.EventError, payload); err != nil {
		s.logger.Error("write error audit", "job_id", jobID, "error", err)
	}
	if err := s.jobs.SetError(ctx, jobID, reason); err != nil {
		s.logger.Error("record job error", "job_id", jobID, "error", err)
	}
	if _, err := s.jobs.SetStatus(ctx, jobID, jobs.StatusFailed, reason); err != nil {
		s.logger.Error("mark job failed", "job_id", jobID, "error", err)
	}
}
