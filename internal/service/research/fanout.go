package research

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/events"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/logging"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/metrics"
)

// FanOutResult is the fan-in of all interviews of a run.
type FanOutResult struct {
	Sections   core.Accumulator[core.Section]
	Interviews []core.InterviewRecord
	Aborted    map[int]error // analyst index -> cause
	Cancelled  bool
}

// Coordinator launches one interview per analyst and collects the sections.
type Coordinator struct {
	interviewer   *Interviewer
	maxConcurrent int
	bus           *events.EventBus
	logger        *logging.Logger
}

// NewCoordinator creates a coordinator running at most maxConcurrent
// interviews at a time (unbounded when maxConcurrent <= 0).
func NewCoordinator(interviewer *Interviewer, maxConcurrent int, bus *events.EventBus, logger *logging.Logger) *Coordinator {
	return &Coordinator{
		interviewer:   interviewer,
		maxConcurrent: maxConcurrent,
		bus:           bus,
		logger:        logger,
	}
}

// Run interviews every analyst and waits for all of them to settle. An
// aborted interview contributes no section and is recorded, never returned.
// cancelled is consulted before each launch; once it reports true the
// remaining analysts are skipped while started interviews run to completion.
func (c *Coordinator) Run(ctx context.Context, runID, topic string, analysts []core.Analyst, maxTurns int, cancelled func() bool) FanOutResult {
	result := FanOutResult{
		Interviews: make([]core.InterviewRecord, len(analysts)),
		Aborted:    make(map[int]error),
	}
	var mu sync.Mutex

	skip := func(i int, a core.Analyst) {
		mu.Lock()
		defer mu.Unlock()
		result.Interviews[i] = core.InterviewRecord{AnalystIndex: i, Analyst: a.Name, Outcome: core.InterviewSkipped}
		result.Cancelled = true
	}

	g := new(errgroup.Group)
	if c.maxConcurrent > 0 {
		g.SetLimit(c.maxConcurrent)
	}
	for i, analyst := range analysts {
		if cancelled() {
			skip(i, analyst)
			continue
		}
		g.Go(func() error {
			// A slot may free up long after the loop checked.
			if cancelled() {
				skip(i, analyst)
				return nil
			}
			record, section, err := c.interview(ctx, runID, i, analyst, topic, maxTurns)

			mu.Lock()
			defer mu.Unlock()
			result.Interviews[i] = record
			if err != nil {
				result.Aborted[i] = err
				return nil
			}
			result.Sections = result.Sections.Append(section)
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func (c *Coordinator) interview(ctx context.Context, runID string, index int, analyst core.Analyst, topic string, maxTurns int) (core.InterviewRecord, core.Section, error) {
	logger := c.logger.WithAnalyst(analyst.Name)
	c.bus.Publish(events.NewInterviewStartedEvent(runID, analyst.Name, index))
	metrics.InterviewsInFlight.Inc()
	defer metrics.InterviewsInFlight.Dec()
	start := time.Now()

	state, err := c.interviewer.Run(ctx, analyst, topic, maxTurns)
	record := core.InterviewRecord{
		AnalystIndex: index,
		Analyst:      analyst.Name,
		Answers:      state.ExpertAnswers(),
		Transcript:   state.Transcript,
	}
	if err != nil {
		record.Outcome = core.InterviewAborted
		record.Error = err.Error()
		metrics.RecordInterview(string(core.InterviewAborted), time.Since(start))
		c.bus.Publish(events.NewInterviewAbortedEvent(runID, analyst.Name, index, err))
		logger.Warn("interview aborted", "error", err)
		return record, core.Section{}, err
	}

	record.Outcome = core.InterviewCompleted
	metrics.RecordInterview(string(core.InterviewCompleted), time.Since(start))
	c.bus.Publish(events.NewInterviewCompletedEvent(runID, analyst.Name, index, record.Answers))
	logger.Info("interview completed", "answers", record.Answers)
	return record, core.Section{AnalystIndex: index, Analyst: analyst.Name, Content: state.Section}, nil
}
