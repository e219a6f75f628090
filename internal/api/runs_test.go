package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/testutil"
)

func TestStartRun_SuspendsAtGate(t *testing.T) {
	ts := newTestServer(t)

	cp := ts.startRun(t, StartRunRequest{Topic: "LLM evaluation", MaxAnalysts: 2})

	assert.NotEmpty(t, cp.RunID)
	assert.Equal(t, core.StageHumanFeedback, cp.Stage)
	assert.Equal(t, core.RunStatusAwaitingFeedback, cp.Status)
	assert.Len(t, cp.State.Analysts, 2)
}

func TestStartRun_Validation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{"empty topic", StartRunRequest{Topic: " ", MaxAnalysts: 2}, core.CodeEmptyTopic},
		{"zero analysts", StartRunRequest{Topic: "x", MaxAnalysts: 0}, core.CodeInvalidCount},
		{"unknown field", map[string]interface{}{"topic": "x", "analysts": 2}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/runs", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestStartRun_GenerationFailureEchoesRunID(t *testing.T) {
	ts := newTestServer(t)
	ts.model.WithError(core.ErrAuth("bad key"))

	rec := ts.do(t, http.MethodPost, "/api/v1/runs", StartRunRequest{Topic: "x", MaxAnalysts: 2})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	require.NotEmpty(t, resp.RunID)

	get := ts.do(t, http.MethodGet, "/api/v1/runs/"+resp.RunID, nil)
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, core.RunStatusFailed, decode[core.Checkpoint](t, get).Status)
}

func TestGetRun_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/runs/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, core.CodeRunNotFound, decode[ErrorResponse](t, rec).Code)
}

func TestListRuns(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	ts.startRun(t, StartRunRequest{Topic: "first", MaxAnalysts: 2})
	ts.startRun(t, StartRunRequest{Topic: "second", MaxAnalysts: 2})

	rec = ts.do(t, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.CheckpointSummary](t, rec), 2)
}

func TestResume_ApproveCompletesRun(t *testing.T) {
	ts := newTestServer(t)
	cp := ts.startRun(t, StartRunRequest{Topic: "LLM evaluation", MaxAnalysts: 2, MaxTurns: 1})

	early := ts.do(t, http.MethodGet, "/api/v1/runs/"+cp.RunID+"/report", nil)
	require.Equal(t, http.StatusConflict, early.Code)
	assert.Equal(t, core.CodeReportNotReady, decode[ErrorResponse](t, early).Code)

	rec := ts.do(t, http.MethodPost, "/api/v1/runs/"+cp.RunID+"/resume", ResumeRunRequest{Action: "approve"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "approve", decode[ResumeRunResponse](t, rec).Action)

	ts.engine.Wait()

	report := ts.do(t, http.MethodGet, "/api/v1/runs/"+cp.RunID+"/report", nil)
	require.Equal(t, http.StatusOK, report.Code, report.Body.String())
	assert.NotEmpty(t, decode[ReportResponse](t, report).Report)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+cp.RunID+"/report", nil)
	req.Header.Set("Accept", "text/markdown")
	md := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(md, req)
	assert.Equal(t, http.StatusOK, md.Code)
	assert.True(t, strings.HasPrefix(md.Header().Get("Content-Type"), "text/markdown"))
}

func TestResume_RegenerateRequiresFeedback(t *testing.T) {
	ts := newTestServer(t)
	cp := ts.startRun(t, StartRunRequest{Topic: "x", MaxAnalysts: 2})

	rec := ts.do(t, http.MethodPost, "/api/v1/runs/"+cp.RunID+"/resume", ResumeRunRequest{Action: "regenerate"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.CodeInvalidDecision, decode[ErrorResponse](t, rec).Code)
}

func TestResume_RegenerateReturnsToGate(t *testing.T) {
	ts := newTestServer(t)
	cp := ts.startRun(t, StartRunRequest{Topic: "x", MaxAnalysts: 2})

	rec := ts.do(t, http.MethodPost, "/api/v1/runs/"+cp.RunID+"/resume",
		ResumeRunRequest{Action: "Regenerate", Feedback: "add a policy analyst"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	ts.engine.Wait()

	get := decode[core.Checkpoint](t, ts.do(t, http.MethodGet, "/api/v1/runs/"+cp.RunID, nil))
	assert.Equal(t, core.StageHumanFeedback, get.Stage)
	assert.Equal(t, 2, get.State.Generations)
}

func TestResume_CancelThenConflict(t *testing.T) {
	ts := newTestServer(t)
	cp := ts.startRun(t, StartRunRequest{Topic: "x", MaxAnalysts: 2})

	rec := ts.do(t, http.MethodPost, "/api/v1/runs/"+cp.RunID+"/resume", ResumeRunRequest{Action: "cancel"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	ts.engine.Wait()

	get := decode[core.Checkpoint](t, ts.do(t, http.MethodGet, "/api/v1/runs/"+cp.RunID, nil))
	assert.Equal(t, core.RunStatusAbandoned, get.Status)

	again := ts.do(t, http.MethodPost, "/api/v1/runs/"+cp.RunID+"/resume", ResumeRunRequest{Action: "approve"})
	assert.Equal(t, http.StatusConflict, again.Code)
}

func TestCancelRun(t *testing.T) {
	ts := newTestServer(t)
	cp := ts.startRun(t, StartRunRequest{Topic: "x", MaxAnalysts: 2})

	rec := ts.do(t, http.MethodPost, "/api/v1/runs/"+cp.RunID+"/cancel", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, core.RunStatusAbandoned, decode[core.Checkpoint](t, rec).Status)

	again := ts.do(t, http.MethodPost, "/api/v1/runs/"+cp.RunID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, again.Code)
}

func TestPatchAnalysts(t *testing.T) {
	ts := newTestServer(t)
	cp := ts.startRun(t, StartRunRequest{Topic: "x", MaxAnalysts: 2})

	panel := testutil.TestAnalysts(3)
	rec := ts.do(t, http.MethodPut, "/api/v1/runs/"+cp.RunID+"/analysts", PatchAnalystsRequest{Analysts: panel})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, panel, decode[core.Checkpoint](t, rec).State.Analysts)

	bad := ts.do(t, http.MethodPut, "/api/v1/runs/"+cp.RunID+"/analysts",
		PatchAnalystsRequest{Analysts: []core.Analyst{{Name: "No description"}}})
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	empty := ts.do(t, http.MethodPut, "/api/v1/runs/"+cp.RunID+"/analysts", PatchAnalystsRequest{})
	assert.Equal(t, http.StatusBadRequest, empty.Code)
}

func TestPatchAnalysts_WrongStage(t *testing.T) {
	ts := newTestServer(t)
	cp := ts.startRun(t, StartRunRequest{Topic: "x", MaxAnalysts: 2})
	ts.do(t, http.MethodPost, "/api/v1/runs/"+cp.RunID+"/cancel", nil)

	rec := ts.do(t, http.MethodPut, "/api/v1/runs/"+cp.RunID+"/analysts",
		PatchAnalystsRequest{Analysts: testutil.TestAnalysts(1)})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteRun(t *testing.T) {
	ts := newTestServer(t)
	cp := ts.startRun(t, StartRunRequest{Topic: "x", MaxAnalysts: 2})

	rec := ts.do(t, http.MethodDelete, "/api/v1/runs/"+cp.RunID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/runs/"+cp.RunID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/v1/runs/"+cp.RunID, nil).Code)
}

func TestRunEvents_TerminalRunSendsSnapshot(t *testing.T) {
	ts := newTestServer(t)
	cp := ts.startRun(t, StartRunRequest{Topic: "x", MaxAnalysts: 2})
	ts.do(t, http.MethodPost, "/api/v1/runs/"+cp.RunID+"/cancel", nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/runs/"+cp.RunID+"/events", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: snapshot\n")
	assert.Contains(t, rec.Body.String(), `"status":"abandoned"`)
}

func TestRunEvents_UnknownRun(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/runs/missing/events", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
