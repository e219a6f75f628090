package core

import (
	"time"

	"github.com/google/uuid"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return "run-" + uuid.NewString()
}

// RunError records a failure without losing it.
type RunError struct {
	Stage   Stage     `json:"stage"`
	Analyst string    `json:"analyst,omitempty"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// RunState is the top-level pipeline state of one run.
type RunState struct {
	Topic         string    `json:"topic"`
	MaxAnalysts   int       `json:"max_analysts"`
	MaxTurns      int       `json:"max_turns"`
	HumanFeedback string    `json:"human_feedback,omitempty"`
	PersonaOnly   bool      `json:"persona_only,omitempty"`
	Analysts      []Analyst `json:"analysts"`
	Generations   int       `json:"generations"`

	Sections   Accumulator[Section] `json:"sections"`
	Interviews []InterviewRecord    `json:"interviews,omitempty"`

	Introduction string `json:"introduction,omitempty"`
	Body         string `json:"body,omitempty"`
	Conclusion   string `json:"conclusion,omitempty"`
	FinalReport  string `json:"final_report,omitempty"`

	Errors []RunError `json:"errors,omitempty"`

	// CancelRequested is set when a cancel arrives while the run is executing.
	// No further interviews are launched once it is observed.
	CancelRequested bool `json:"cancel_requested,omitempty"`
}

// RecordError appends err to the run's error log.
func (s *RunState) RecordError(stage Stage, analyst string, err error) {
	if err == nil {
		return
	}
	s.Errors = append(s.Errors, RunError{
		Stage:   stage,
		Analyst: analyst,
		Kind:    ErrorKind(err),
		Message: err.Error(),
		At:      time.Now().UTC(),
	})
}

// SectionTexts returns the section contents in canonical order.
func (s *RunState) SectionTexts() []string {
	out := make([]string, 0, len(s.Sections))
	for _, sec := range s.Sections {
		out = append(out, sec.Content)
	}
	return out
}

// Clone returns a deep copy safe to hand to callers.
func (s RunState) Clone() RunState {
	c := s
	c.Analysts = CloneAnalysts(s.Analysts)
	c.Sections = append(Accumulator[Section](nil), s.Sections...)
	c.Interviews = append([]InterviewRecord(nil), s.Interviews...)
	c.Errors = append([]RunError(nil), s.Errors...)
	return c
}
