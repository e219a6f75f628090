package events

// Event type constants for research runs.
const (
	TypeRunStarted         = "run_started"
	TypeAnalystsGenerated  = "analysts_generated"
	TypeAwaitingFeedback   = "awaiting_feedback"
	TypeRunResumed         = "run_resumed"
	TypeInterviewStarted   = "interview_started"
	TypeInterviewCompleted = "interview_completed"
	TypeInterviewAborted   = "interview_aborted"
	TypeSynthesisStarted   = "synthesis_started"
	TypeReportCompleted    = "report_completed"
	TypeRunFailed          = "run_failed"
	TypeRunAbandoned       = "run_abandoned"
)

// RunStartedEvent is emitted when StartRun accepts a topic.
type RunStartedEvent struct {
	BaseEvent
	Topic       string `json:"topic"`
	MaxAnalysts int    `json:"max_analysts"`
}

// NewRunStartedEvent creates a run started event.
func NewRunStartedEvent(runID, topic string, maxAnalysts int) RunStartedEvent {
	return RunStartedEvent{
		BaseEvent:   NewBaseEvent(TypeRunStarted, runID),
		Topic:       topic,
		MaxAnalysts: maxAnalysts,
	}
}

// AnalystsGeneratedEvent is emitted after each persona generation.
type AnalystsGeneratedEvent struct {
	BaseEvent
	Names      []string `json:"names"`
	Generation int      `json:"generation"`
	Feedback   string   `json:"feedback,omitempty"`
}

// NewAnalystsGeneratedEvent creates an analysts generated event.
func NewAnalystsGeneratedEvent(runID string, names []string, generation int, feedback string) AnalystsGeneratedEvent {
	return AnalystsGeneratedEvent{
		BaseEvent:  NewBaseEvent(TypeAnalystsGenerated, runID),
		Names:      names,
		Generation: generation,
		Feedback:   feedback,
	}
}

// AwaitingFeedbackEvent is emitted when the run suspends at the gate.
type AwaitingFeedbackEvent struct {
	BaseEvent
}

// NewAwaitingFeedbackEvent creates an awaiting feedback event.
func NewAwaitingFeedbackEvent(runID string) AwaitingFeedbackEvent {
	return AwaitingFeedbackEvent{BaseEvent: NewBaseEvent(TypeAwaitingFeedback, runID)}
}

// RunResumedEvent is emitted when a decision is accepted at the gate.
type RunResumedEvent struct {
	BaseEvent
	Decision string `json:"decision"`
	Feedback string `json:"feedback,omitempty"`
}

// NewRunResumedEvent creates a run resumed event.
func NewRunResumedEvent(runID, decision, feedback string) RunResumedEvent {
	return RunResumedEvent{
		BaseEvent: NewBaseEvent(TypeRunResumed, runID),
		Decision:  decision,
		Feedback:  feedback,
	}
}

// InterviewEvent reports the lifecycle of one interview.
type InterviewEvent struct {
	BaseEvent
	Analyst string `json:"analyst"`
	Index   int    `json:"index"`
	Answers int    `json:"answers,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewInterviewStartedEvent creates an interview started event.
func NewInterviewStartedEvent(runID, analyst string, index int) InterviewEvent {
	return InterviewEvent{
		BaseEvent: NewBaseEvent(TypeInterviewStarted, runID),
		Analyst:   analyst,
		Index:     index,
	}
}

// NewInterviewCompletedEvent creates an interview completed event.
func NewInterviewCompletedEvent(runID, analyst string, index, answers int) InterviewEvent {
	return InterviewEvent{
		BaseEvent: NewBaseEvent(TypeInterviewCompleted, runID),
		Analyst:   analyst,
		Index:     index,
		Answers:   answers,
	}
}

// NewInterviewAbortedEvent creates an interview aborted event.
func NewInterviewAbortedEvent(runID, analyst string, index int, err error) InterviewEvent {
	e := InterviewEvent{
		BaseEvent: NewBaseEvent(TypeInterviewAborted, runID),
		Analyst:   analyst,
		Index:     index,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// SynthesisStartedEvent is emitted when the report reducers start.
type SynthesisStartedEvent struct {
	BaseEvent
	Sections int `json:"sections"`
}

// NewSynthesisStartedEvent creates a synthesis started event.
func NewSynthesisStartedEvent(runID string, sections int) SynthesisStartedEvent {
	return SynthesisStartedEvent{
		BaseEvent: NewBaseEvent(TypeSynthesisStarted, runID),
		Sections:  sections,
	}
}

// ReportCompletedEvent is emitted once per run, when the final report is set.
type ReportCompletedEvent struct {
	BaseEvent
	Sections int `json:"sections"`
	Length   int `json:"length"`
}

// NewReportCompletedEvent creates a report completed event.
func NewReportCompletedEvent(runID string, sections, length int) ReportCompletedEvent {
	return ReportCompletedEvent{
		BaseEvent: NewBaseEvent(TypeReportCompleted, runID),
		Sections:  sections,
		Length:    length,
	}
}

// RunFailedEvent is emitted when a run ends in the failed state.
type RunFailedEvent struct {
	BaseEvent
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// NewRunFailedEvent creates a run failed event.
func NewRunFailedEvent(runID, stage string, err error) RunFailedEvent {
	e := RunFailedEvent{
		BaseEvent: NewBaseEvent(TypeRunFailed, runID),
		Stage:     stage,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// RunAbandonedEvent is emitted when a run is cancelled.
type RunAbandonedEvent struct {
	BaseEvent
	Stage string `json:"stage"`
}

// NewRunAbandonedEvent creates a run abandoned event.
func NewRunAbandonedEvent(runID, stage string) RunAbandonedEvent {
	return RunAbandonedEvent{
		BaseEvent: NewBaseEvent(TypeRunAbandoned, runID),
		Stage:     stage,
	}
}
