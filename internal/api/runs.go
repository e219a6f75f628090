package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/service/research"
)

// StartRunRequest is the body of POST /api/v1/runs.
type StartRunRequest struct {
	Topic       string `json:"topic"`
	MaxAnalysts int    `json:"max_analysts"`
	MaxTurns    int    `json:"max_turns,omitempty"`
	PersonaOnly bool   `json:"persona_only,omitempty"`
}

// ResumeRunRequest is the body of POST /api/v1/runs/{id}/resume.
type ResumeRunRequest struct {
	Action   string `json:"action"`
	Feedback string `json:"feedback,omitempty"`
}

// ResumeRunResponse acknowledges a decision. The run continues in the
// background.
type ResumeRunResponse struct {
	RunID  string `json:"run_id"`
	Action string `json:"action"`
}

// PatchAnalystsRequest is the body of PUT /api/v1/runs/{id}/analysts.
type PatchAnalystsRequest struct {
	Analysts []core.Analyst `json:"analysts"`
}

// ReportResponse carries the final report.
type ReportResponse struct {
	RunID  string `json:"run_id"`
	Report string `json:"report"`
}

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var opts []research.RunOption
	if req.MaxTurns > 0 {
		opts = append(opts, research.WithMaxTurns(req.MaxTurns))
	}
	if req.PersonaOnly {
		opts = append(opts, research.WithPersonaOnly())
	}

	runID, err := s.engine.StartRun(r.Context(), req.Topic, req.MaxAnalysts, opts...)
	if err != nil {
		s.respondDomainError(w, err, runID)
		return
	}

	cp, err := s.engine.GetState(r.Context(), runID)
	if err != nil {
		s.respondDomainError(w, err, runID)
		return
	}
	w.Header().Set("Location", "/api/v1/runs/"+runID)
	respondJSON(w, http.StatusCreated, cp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.engine.List(r.Context())
	if err != nil {
		s.respondDomainError(w, err, "")
		return
	}
	if runs == nil {
		runs = []core.CheckpointSummary{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	cp, err := s.engine.GetState(r.Context(), runID)
	if err != nil {
		s.respondDomainError(w, err, "")
		return
	}
	respondJSON(w, http.StatusOK, cp)
}

func (s *Server) handleResumeRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	var req ResumeRunRequest
	if !decodeBody(w, r, &req) {
		return
	}

	d := core.Decision{
		Kind:     core.DecisionKind(strings.ToLower(strings.TrimSpace(req.Action))),
		Feedback: req.Feedback,
	}
	done, err := s.engine.ResumeAsync(r.Context(), runID, d)
	if err != nil {
		s.respondDomainError(w, err, "")
		return
	}
	// The engine logs the outcome; the channel only needs draining.
	go func() {
		for range done {
		}
	}()

	respondJSON(w, http.StatusAccepted, ResumeRunResponse{RunID: runID, Action: string(d.Kind)})
}

func (s *Server) handlePatchAnalysts(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	var req PatchAnalystsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cp, err := s.engine.PatchAnalysts(r.Context(), runID, req.Analysts)
	if err != nil {
		s.respondDomainError(w, err, "")
		return
	}
	respondJSON(w, http.StatusOK, cp)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if err := s.engine.Cancel(r.Context(), runID); err != nil {
		s.respondDomainError(w, err, "")
		return
	}

	cp, err := s.engine.GetState(r.Context(), runID)
	if err != nil {
		s.respondDomainError(w, err, "")
		return
	}
	respondJSON(w, http.StatusAccepted, cp)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	report, err := s.engine.GetFinalReport(r.Context(), runID)
	if err != nil {
		s.respondDomainError(w, err, "")
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/markdown") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report))
		return
	}
	respondJSON(w, http.StatusOK, ReportResponse{RunID: runID, Report: report})
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if err := s.engine.Delete(r.Context(), runID); err != nil {
		s.respondDomainError(w, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
