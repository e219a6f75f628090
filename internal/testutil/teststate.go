package testutil

import (
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// NewTestCheckpoint creates a checkpoint suspended at the feedback gate with
// two analysts. Use functional options to override specific fields.
func NewTestCheckpoint(opts ...func(*core.Checkpoint)) *core.Checkpoint {
	now := time.Now().UTC()
	cp := &core.Checkpoint{
		RunID:  core.NewRunID(),
		Kind:   core.KindResearch,
		Stage:  core.StageHumanFeedback,
		Status: core.RunStatusAwaitingFeedback,
		State: core.RunState{
			Topic:       "test topic",
			MaxAnalysts: 2,
			MaxTurns:    2,
			Analysts:    TestAnalysts(2),
			Generations: 1,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(cp)
	}
	return cp
}

// TestAnalysts returns n distinct, valid analysts.
func TestAnalysts(n int) []core.Analyst {
	out := make([]core.Analyst, n)
	for i := range out {
		out[i] = core.Analyst{
			Name:        "Analyst " + string(rune('A'+i)),
			Role:        "Researcher",
			Affiliation: "Test Lab",
			Description: "Focuses on aspect " + string(rune('A'+i)),
		}
	}
	return out
}
