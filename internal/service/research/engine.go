// Package research implements the research pipeline: persona generation,
// the feedback gate, the interview fan-out and the report reduction, driven
// as an explicit state machine over a checkpoint store.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/control"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/events"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/logging"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/metrics"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/service"
)

// Engine drives research runs. Every transition is a checkpoint patch, so a
// run suspended at the feedback gate can be resumed by any engine sharing
// the store.
type Engine struct {
	store       core.CheckpointStore
	personas    *PersonaGenerator
	coordinator *Coordinator
	synthesizer *Synthesizer
	registry    *control.Registry
	bus         *events.EventBus
	logger      *logging.Logger

	policy        service.CallPolicy
	maxConcurrent int
	maxTurns      int
	maxDocs       int
	runTimeout    time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithEventBus publishes progress events to bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithCallPolicy sets the timeout and retry budget of every external call.
func WithCallPolicy(p service.CallPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithMaxConcurrentInterviews bounds the fan-out. Zero means unbounded.
func WithMaxConcurrentInterviews(n int) Option {
	return func(e *Engine) { e.maxConcurrent = n }
}

// WithDefaultMaxTurns sets the interview length used when a run does not
// choose one.
func WithDefaultMaxTurns(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTurns = n
		}
	}
}

// WithKnowledgeDocs sets how many encyclopedic documents each search keeps.
func WithKnowledgeDocs(n int) Option {
	return func(e *Engine) { e.maxDocs = n }
}

// WithRunTimeout bounds the execution after approval.
func WithRunTimeout(d time.Duration) Option {
	return func(e *Engine) { e.runTimeout = d }
}

// WithRegistry shares a registry of executing runs.
func WithRegistry(r *control.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// NewEngine creates an engine. web or kb may be nil to disable that source.
func NewEngine(store core.CheckpointStore, model core.LanguageModel, web core.WebSearcher, kb core.KnowledgeBase, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		logger:        logging.NewNop(),
		policy:        service.DefaultCallPolicy(),
		maxConcurrent: 4,
		maxTurns:      2,
		maxDocs:       2,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = control.NewRegistry()
	}

	prompts := MustPromptRenderer()
	inv := invoker{policy: e.policy, logger: e.logger}
	interviewer := NewInterviewer(model, prompts, inv,
		NewWebRetriever(web),
		NewKnowledgeRetriever(kb, e.maxDocs),
	)
	e.personas = NewPersonaGenerator(model, prompts, inv)
	e.coordinator = NewCoordinator(interviewer, e.maxConcurrent, e.bus, e.logger)
	e.synthesizer = NewSynthesizer(model, prompts, inv)
	return e
}

type runOptions struct {
	maxTurns    int
	personaOnly bool
}

// RunOption configures one run.
type RunOption func(*runOptions)

// WithMaxTurns sets the number of expert answers per interview.
func WithMaxTurns(n int) RunOption {
	return func(o *runOptions) { o.maxTurns = n }
}

// WithPersonaOnly stops the run after the analysts are approved.
func WithPersonaOnly() RunOption {
	return func(o *runOptions) { o.personaOnly = true }
}

// StartRun creates a run, generates the analysts and suspends at the
// feedback gate. The run id is returned even when generation fails, in which
// case the run is left failed.
func (e *Engine) StartRun(ctx context.Context, topic string, maxAnalysts int, opts ...RunOption) (string, error) {
	ro := runOptions{maxTurns: e.maxTurns}
	for _, opt := range opts {
		opt(&ro)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", core.ErrValidation(core.CodeEmptyTopic, "topic is required")
	}
	if maxAnalysts < 1 {
		return "", core.ErrValidation(core.CodeInvalidCount, fmt.Sprintf("max analysts must be at least 1, got %d", maxAnalysts))
	}
	if ro.maxTurns < 1 {
		return "", core.ErrValidation(core.CodeInvalidCount, fmt.Sprintf("max turns must be at least 1, got %d", ro.maxTurns))
	}

	runID := core.NewRunID()
	plane, _ := e.registry.Acquire(runID)
	defer e.registry.Release(plane)

	kind := core.KindResearch
	if ro.personaOnly {
		kind = core.KindPersona
	}
	now := time.Now().UTC()
	cp := &core.Checkpoint{
		RunID:  runID,
		Kind:   kind,
		Stage:  core.StageGenerateAnalysts,
		Status: core.RunStatusRunning,
		State: core.RunState{
			Topic:       topic,
			MaxAnalysts: maxAnalysts,
			MaxTurns:    ro.maxTurns,
			PersonaOnly: ro.personaOnly,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.Create(ctx, cp); err != nil {
		return "", err
	}

	metrics.RunsStarted.Inc()
	e.bus.Publish(events.NewRunStartedEvent(runID, topic, maxAnalysts))
	e.logger.WithRun(runID).Info("run started", "topic", topic, "max_analysts", maxAnalysts, "kind", kind)

	return runID, e.generate(ctx, runID, "")
}

// generate runs the persona generator and moves the run to the gate.
func (e *Engine) generate(ctx context.Context, runID, feedback string) error {
	logger := e.logger.WithRun(runID).WithStage(string(core.StageGenerateAnalysts))
	bookkeeping := context.WithoutCancel(ctx)

	cp, err := e.store.Read(ctx, runID)
	if err != nil {
		return err
	}
	analysts, err := e.personas.Generate(ctx, cp.State.Topic, feedback, cp.State.MaxAnalysts)
	if err != nil {
		return e.fail(bookkeeping, runID, core.StageGenerateAnalysts, err)
	}

	updated, err := e.store.Patch(bookkeeping, runID, core.StageGenerateAnalysts, func(cp *core.Checkpoint) error {
		cp.State.Analysts = analysts
		cp.State.HumanFeedback = feedback
		cp.State.Generations++
		if cp.State.CancelRequested {
			cp.Stage = core.StageDone
			cp.Status = core.RunStatusAbandoned
			return nil
		}
		cp.Stage = core.StageHumanFeedback
		cp.Status = core.RunStatusAwaitingFeedback
		return nil
	})
	if err != nil {
		return err
	}

	names := make([]string, len(analysts))
	for i, a := range analysts {
		names[i] = a.Name
	}
	e.bus.Publish(events.NewAnalystsGeneratedEvent(runID, names, updated.State.Generations, feedback))
	if updated.Status == core.RunStatusAbandoned {
		e.finished(updated)
		return nil
	}
	e.bus.Publish(events.NewAwaitingFeedbackEvent(runID))
	logger.Info("awaiting feedback", "analysts", len(analysts), "generation", updated.State.Generations)
	return nil
}

// Resume applies a decision to a run suspended at the feedback gate and runs
// the pipeline until the next suspension or the end of the run.
func (e *Engine) Resume(ctx context.Context, runID string, d core.Decision) error {
	next, err := e.transition(ctx, runID, d)
	if err != nil {
		return err
	}
	return next(ctx)
}

// ResumeAsync validates and applies the decision like Resume, then continues
// the run in the background. The channel yields the outcome once.
func (e *Engine) ResumeAsync(ctx context.Context, runID string, d core.Decision) (<-chan error, error) {
	next, err := e.transition(ctx, runID, d)
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		err := next(bg)
		if err != nil {
			e.logger.WithRun(runID).Error("run failed", "error", err)
		}
		done <- err
	}()
	return done, nil
}

// transition moves a run out of the gate. The returned function continues
// the run and releases the run's plane.
func (e *Engine) transition(ctx context.Context, runID string, d core.Decision) (func(context.Context) error, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	plane, ok := e.registry.Acquire(runID)
	if !ok {
		return nil, core.ErrConflict(fmt.Sprintf("run %s is already executing", runID))
	}
	release := func() { e.registry.Release(plane) }

	updated, err := e.store.Patch(ctx, runID, core.StageHumanFeedback, func(cp *core.Checkpoint) error {
		switch d.Kind {
		case core.DecisionCancel:
			cp.Stage = core.StageDone
			cp.Status = core.RunStatusAbandoned
		case core.DecisionRegenerate:
			cp.State.Analysts = nil
			cp.State.HumanFeedback = d.Feedback
			cp.Stage = core.StageGenerateAnalysts
			cp.Status = core.RunStatusRunning
		case core.DecisionApprove:
			cp.State.HumanFeedback = ""
			if cp.State.PersonaOnly {
				cp.Stage = core.StageDone
				cp.Status = core.RunStatusCompleted
			} else {
				cp.Stage = core.StageConductInterviews
				cp.Status = core.RunStatusRunning
			}
		}
		return nil
	})
	if err != nil {
		release()
		return nil, err
	}

	metrics.FeedbackDecisions.WithLabelValues(string(d.Kind)).Inc()
	e.bus.Publish(events.NewRunResumedEvent(runID, string(d.Kind), d.Feedback))
	e.logger.WithRun(runID).Info("decision accepted", "decision", d.Kind)

	switch {
	case updated.Status.IsTerminal():
		release()
		e.finished(updated)
		return func(context.Context) error { return nil }, nil
	case d.Kind == core.DecisionRegenerate:
		return func(ctx context.Context) error {
			defer release()
			return e.generate(ctx, runID, d.Feedback)
		}, nil
	default:
		return func(ctx context.Context) error {
			defer release()
			return e.execute(ctx, plane, runID)
		}, nil
	}
}

// execute runs the interviews, the synthesis and the finalization.
func (e *Engine) execute(ctx context.Context, plane *control.Plane, runID string) error {
	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}
	bookkeeping := context.WithoutCancel(ctx)
	logger := e.logger.WithRun(runID)

	cp, err := e.store.Read(bookkeeping, runID)
	if err != nil {
		return err
	}
	cancelled := func() bool {
		if plane.IsCancelled() {
			return true
		}
		cur, err := e.store.Read(bookkeeping, runID)
		return err == nil && cur.State.CancelRequested
	}

	logger.Info("conducting interviews", "analysts", len(cp.State.Analysts))
	fan := e.coordinator.Run(ctx, runID, cp.State.Topic, cp.State.Analysts, cp.State.MaxTurns, cancelled)
	abandon := fan.Cancelled || cancelled()

	updated, err := e.store.Patch(bookkeeping, runID, core.StageConductInterviews, func(cp *core.Checkpoint) error {
		cp.State.Sections = fan.Sections
		cp.State.Interviews = fan.Interviews
		for i, rec := range fan.Interviews {
			if rec.Outcome == core.InterviewAborted {
				cp.State.RecordError(core.StageConductInterviews, rec.Analyst, fan.Aborted[i])
			}
		}
		if abandon {
			cp.Stage = core.StageDone
			cp.Status = core.RunStatusAbandoned
			return nil
		}
		cp.Stage = core.StageWriteReport
		return nil
	})
	if err != nil {
		return e.fail(bookkeeping, runID, core.StageConductInterviews, err)
	}
	if updated.Status == core.RunStatusAbandoned {
		e.finished(updated)
		return nil
	}

	logger.Info("synthesizing findings", "sections", len(updated.State.Sections), "aborted", len(fan.Aborted))
	e.bus.Publish(events.NewSynthesisStartedEvent(runID, len(updated.State.Sections)))
	parts, err := e.synthesizer.Synthesize(ctx, updated.State.Topic, updated.State.SectionTexts())
	if err != nil {
		return e.fail(bookkeeping, runID, core.StageWriteReport, err)
	}

	updated, err = e.store.Patch(bookkeeping, runID, core.StageWriteReport, func(cp *core.Checkpoint) error {
		if abandonIfCancelled(cp, plane) {
			return nil
		}
		cp.State.Introduction = parts.Introduction
		cp.State.Body = parts.Body
		cp.State.Conclusion = parts.Conclusion
		cp.Stage = core.StageFinalizeReport
		return nil
	})
	if err != nil {
		return e.fail(bookkeeping, runID, core.StageWriteReport, err)
	}
	if updated.Status == core.RunStatusAbandoned {
		e.finished(updated)
		return nil
	}

	report := Finalize(updated.State.Introduction, updated.State.Body, updated.State.Conclusion)
	updated, err = e.store.Patch(bookkeeping, runID, core.StageFinalizeReport, func(cp *core.Checkpoint) error {
		if abandonIfCancelled(cp, plane) {
			return nil
		}
		if cp.State.FinalReport != "" {
			return core.ErrState(core.CodeFinalizeFailed, "final report is already set")
		}
		cp.State.FinalReport = report
		cp.Stage = core.StageDone
		cp.Status = core.RunStatusCompleted
		return nil
	})
	if err != nil {
		return e.fail(bookkeeping, runID, core.StageFinalizeReport, err)
	}
	if updated.Status == core.RunStatusAbandoned {
		e.finished(updated)
		return nil
	}

	metrics.ReportSections.Observe(float64(len(updated.State.Sections)))
	e.bus.Publish(events.NewReportCompletedEvent(runID, len(updated.State.Sections), len(report)))
	e.finished(updated)
	return nil
}

// abandonIfCancelled ends cp abandoned when a cancel was requested, either
// through the store or through this process's plane.
func abandonIfCancelled(cp *core.Checkpoint, plane *control.Plane) bool {
	if !cp.State.CancelRequested && !plane.IsCancelled() {
		return false
	}
	cp.State.CancelRequested = true
	cp.Stage = core.StageDone
	cp.Status = core.RunStatusAbandoned
	return true
}

// fail records err and leaves the run failed. A run with a pending or
// settled cancel ends abandoned instead, and fail returns nil.
func (e *Engine) fail(ctx context.Context, runID string, stage core.Stage, cause error) error {
	var abandoned bool
	updated, err := e.store.Patch(ctx, runID, core.AnyStage, func(cp *core.Checkpoint) error {
		if cp.Status.IsTerminal() {
			abandoned = cp.Status == core.RunStatusAbandoned
			return core.ErrConflict(fmt.Sprintf("run is already %s", cp.Status))
		}
		cp.State.RecordError(stage, "", cause)
		if cp.State.CancelRequested {
			cp.Stage = core.StageDone
			cp.Status = core.RunStatusAbandoned
			return nil
		}
		cp.Stage = stage
		cp.Status = core.RunStatusFailed
		return nil
	})
	if err != nil {
		if abandoned {
			e.logger.WithRun(runID).Info("run abandoned while executing", "stage", stage, "cause", cause)
			return nil
		}
		e.logger.WithRun(runID).Error("recording failure", "stage", stage, "cause", cause, "error", err)
		return cause
	}
	if updated.Status == core.RunStatusAbandoned {
		e.finished(updated)
		return nil
	}
	e.bus.Publish(events.NewRunFailedEvent(runID, string(stage), cause))
	e.finished(updated)
	return cause
}

// finished reports a terminal run.
func (e *Engine) finished(cp *core.Checkpoint) {
	metrics.RecordRunFinished(string(cp.Status), cp.CreatedAt)
	logger := e.logger.WithRun(cp.RunID)
	switch cp.Status {
	case core.RunStatusAbandoned:
		e.bus.Publish(events.NewRunAbandonedEvent(cp.RunID, string(cp.Stage)))
		logger.Info("run abandoned")
	case core.RunStatusCompleted:
		logger.Info("run completed", "sections", len(cp.State.Sections))
	case core.RunStatusFailed:
		logger.Error("run failed", "stage", cp.Stage)
	}
}

// Cancel abandons a run. At the gate the run ends immediately. While
// executing here, no further interviews are launched and the run ends
// abandoned once started ones settle. A cancel during synthesis or
// finalization ends the run abandoned without a report.
func (e *Engine) Cancel(ctx context.Context, runID string) error {
	cp, err := e.store.Read(ctx, runID)
	if err != nil {
		return err
	}
	if cp.Status.IsTerminal() {
		return core.ErrConflict(fmt.Sprintf("run %s is already %s", runID, cp.Status))
	}
	if cp.Stage == core.StageHumanFeedback {
		err := e.Resume(ctx, runID, core.Cancel())
		if err == nil || !errors.Is(err, core.ErrStateConflict) {
			return err
		}
	}

	_, executing := e.registry.Get(runID)
	updated, err := e.store.Patch(ctx, runID, core.AnyStage, func(cp *core.Checkpoint) error {
		if cp.Status.IsTerminal() {
			return core.ErrConflict(fmt.Sprintf("run %s is already %s", runID, cp.Status))
		}
		cp.State.CancelRequested = true
		if !executing {
			// Nothing in this process will observe the flag.
			cp.Stage = core.StageDone
			cp.Status = core.RunStatusAbandoned
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.registry.Cancel(runID)
	e.logger.WithRun(runID).Info("cancel requested", "stage", updated.Stage, "executing", executing)
	if updated.Status == core.RunStatusAbandoned {
		e.finished(updated)
	}
	return nil
}

// GetState returns a snapshot of the run.
func (e *Engine) GetState(ctx context.Context, runID string) (*core.Checkpoint, error) {
	return e.store.Read(ctx, runID)
}

// GetFinalReport returns the final report, or ErrReportNotReady.
func (e *Engine) GetFinalReport(ctx context.Context, runID string) (string, error) {
	cp, err := e.store.Read(ctx, runID)
	if err != nil {
		return "", err
	}
	if cp.Status != core.RunStatusCompleted || cp.State.FinalReport == "" {
		return "", core.ErrNotReady(runID, cp.Status)
	}
	return cp.State.FinalReport, nil
}

// PatchAnalysts replaces the analysts of a run suspended at the gate, as if
// the persona generator had produced them.
func (e *Engine) PatchAnalysts(ctx context.Context, runID string, analysts []core.Analyst) (*core.Checkpoint, error) {
	if len(analysts) == 0 {
		return nil, core.ErrValidation(core.CodeInvalidCount, "at least one analyst is required")
	}
	for _, a := range analysts {
		if err := a.Validate(); err != nil {
			return nil, core.ErrValidation("INVALID_ANALYST", err.Error())
		}
	}
	analysts = core.CloneAnalysts(analysts)
	updated, err := e.store.Patch(ctx, runID, core.StageHumanFeedback, func(cp *core.Checkpoint) error {
		cp.State.Analysts = analysts
		return nil
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, len(analysts))
	for i, a := range analysts {
		names[i] = a.Name
	}
	e.bus.Publish(events.NewAnalystsGeneratedEvent(runID, names, updated.State.Generations, ""))
	e.logger.WithRun(runID).Info("analysts patched", "analysts", len(analysts))
	return updated, nil
}

// List returns the stored runs, newest first.
func (e *Engine) List(ctx context.Context) ([]core.CheckpointSummary, error) {
	return e.store.List(ctx)
}

// Delete discards a run that is not executing.
func (e *Engine) Delete(ctx context.Context, runID string) error {
	if _, executing := e.registry.Get(runID); executing {
		return core.ErrConflict(fmt.Sprintf("run %s is executing", runID))
	}
	if _, err := e.store.Read(ctx, runID); err != nil {
		return err
	}
	return e.store.Delete(ctx, runID)
}

// Wait blocks until background runs started by ResumeAsync finish.
func (e *Engine) Wait() {
	e.registry.Wait()
}
