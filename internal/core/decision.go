package core

import "strings"

// DecisionKind is the action taken at the feedback gate.
type DecisionKind string

const (
	DecisionApprove    DecisionKind = "approve"
	DecisionRegenerate DecisionKind = "regenerate"
	DecisionCancel     DecisionKind = "cancel"
)

// Decision resumes a run suspended at the feedback gate.
type Decision struct {
	Kind     DecisionKind `json:"action"`
	Feedback string       `json:"feedback,omitempty"`
}

// Approve proceeds to the interviews with the current analysts.
func Approve() Decision { return Decision{Kind: DecisionApprove} }

// Regenerate discards the analysts and generates a new panel guided by feedback.
func Regenerate(feedback string) Decision {
	return Decision{Kind: DecisionRegenerate, Feedback: feedback}
}

// Cancel abandons the run.
func Cancel() Decision { return Decision{Kind: DecisionCancel} }

// DecisionFromFeedback maps empty feedback to Approve and anything else to Regenerate.
func DecisionFromFeedback(feedback string) Decision {
	if strings.TrimSpace(feedback) == "" {
		return Approve()
	}
	return Regenerate(feedback)
}

// Validate checks the decision is well formed.
func (d Decision) Validate() error {
	switch d.Kind {
	case DecisionApprove, DecisionCancel:
		return nil
	case DecisionRegenerate:
		if strings.TrimSpace(d.Feedback) == "" {
			return ErrValidation(CodeInvalidDecision, "regenerate requires non-empty feedback")
		}
		return nil
	}
	return ErrValidation(CodeInvalidDecision, "unknown decision: "+string(d.Kind))
}
