package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyst_Persona(t *testing.T) {
	a := Analyst{Name: "Ada", Role: "Engineer", Affiliation: "Grid Lab", Description: "Storage"}
	assert.Equal(t, "Name: Ada\nRole: Engineer\nAffiliation: Grid Lab\nDescription: Storage\n", a.Persona())
	require.NoError(t, a.Validate())
	assert.Error(t, Analyst{Name: "x"}.Validate())
}

func TestDecision_Validate(t *testing.T) {
	assert.NoError(t, Approve().Validate())
	assert.NoError(t, Cancel().Validate())
	assert.NoError(t, Regenerate("focus on battery storage").Validate())
	assert.Error(t, Regenerate("  ").Validate())
	assert.Error(t, Decision{Kind: "pause"}.Validate())

	assert.Equal(t, DecisionApprove, DecisionFromFeedback("").Kind)
	assert.Equal(t, DecisionRegenerate, DecisionFromFeedback("more economists").Kind)
}

func TestRunState_RecordErrorAndClone(t *testing.T) {
	s := RunState{Analysts: []Analyst{{Name: "a"}}}
	s.RecordError(StageConductInterviews, "a", ErrInterviewAbortedFor("a", errors.New("timeout")))
	s.RecordError(StageConductInterviews, "a", nil)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, "InterviewAborted", s.Errors[0].Kind)

	c := s.Clone()
	c.Analysts[0].Name = "changed"
	assert.Equal(t, "a", s.Analysts[0].Name)
}

func TestRunStatus_IsTerminal(t *testing.T) {
	assert.False(t, RunStatusRunning.IsTerminal())
	assert.False(t, RunStatusAwaitingFeedback.IsTerminal())
	assert.True(t, RunStatusCompleted.IsTerminal())
	assert.True(t, RunStatusFailed.IsTerminal())
	assert.True(t, RunStatusAbandoned.IsTerminal())
}

func TestParseStage(t *testing.T) {
	st, err := ParseStage("human_feedback")
	require.NoError(t, err)
	assert.Equal(t, StageHumanFeedback, st)
	_, err = ParseStage("nope")
	assert.Error(t, err)
}
