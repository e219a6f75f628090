package core

import "fmt"

// Stage is the node a run is at, or suspended at.
type Stage string

const (
	// StageGenerateAnalysts produces the analyst panel.
	StageGenerateAnalysts Stage = "generate_analysts"

	// StageHumanFeedback is the only suspension point. The run waits here
	// for an approve, regenerate or cancel decision.
	StageHumanFeedback Stage = "human_feedback"

	// StageConductInterviews fans out one interview per analyst.
	StageConductInterviews Stage = "conduct_interviews"

	// StageWriteReport runs the body, introduction and conclusion reducers.
	StageWriteReport Stage = "write_report"

	// StageFinalizeReport assembles the final report.
	StageFinalizeReport Stage = "finalize_report"

	// StageDone is terminal.
	StageDone Stage = "done"
)

// AllStages returns the stages in execution order.
func AllStages() []Stage {
	return []Stage{
		StageGenerateAnalysts,
		StageHumanFeedback,
		StageConductInterviews,
		StageWriteReport,
		StageFinalizeReport,
		StageDone,
	}
}

// ParseStage converts a string to a Stage.
func ParseStage(s string) (Stage, error) {
	for _, st := range AllStages() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid stage: %s", s)
}

// RunStatus is the externally visible lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning          RunStatus = "running"
	RunStatusAwaitingFeedback RunStatus = "awaiting_feedback"
	RunStatusCompleted        RunStatus = "completed"
	RunStatusFailed           RunStatus = "failed"
	RunStatusAbandoned        RunStatus = "abandoned"
)

// IsTerminal reports whether no further transitions can happen.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusAbandoned:
		return true
	}
	return false
}
