package api

import (
	"errors"
	"net/http"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Category string `json:"category,omitempty"`
	RunID    string `json:"run_id,omitempty"`
}

func httpStatusForDomainError(err error) (int, bool) {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return 0, false
	}

	switch domErr.Category {
	case core.ErrCatValidation:
		return http.StatusBadRequest, true
	case core.ErrCatNotFound:
		return http.StatusNotFound, true
	case core.ErrCatConflict, core.ErrCatState:
		return http.StatusConflict, true
	default:
		return http.StatusInternalServerError, true
	}
}

// respondDomainError maps engine errors onto status codes. runID is echoed
// when the failure left a run behind.
func (s *Server) respondDomainError(w http.ResponseWriter, err error, runID string) {
	status, ok := httpStatusForDomainError(err)
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "run_id", runID)
	}

	resp := ErrorResponse{Error: err.Error(), RunID: runID}
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		resp.Error = domErr.Message
		resp.Code = domErr.Code
		resp.Category = string(domErr.Category)
	}
	respondJSON(w, status, resp)
}
