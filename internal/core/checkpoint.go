package core

import "time"

// CheckpointKind distinguishes a full research run from the standalone
// persona feedback flow.
type CheckpointKind string

const (
	KindResearch CheckpointKind = "research"
	KindPersona  CheckpointKind = "persona"
)

// Checkpoint maps a run id to its latest state and the stage it is at.
type Checkpoint struct {
	RunID     string         `json:"run_id"`
	Kind      CheckpointKind `json:"kind"`
	Stage     Stage          `json:"stage"`
	Status    RunStatus      `json:"status"`
	State     RunState       `json:"state"`
	Version   int64          `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Clone returns a deep copy.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	out.State = c.State.Clone()
	return &out
}

// Summary returns the listing view of the checkpoint.
func (c *Checkpoint) Summary() CheckpointSummary {
	return CheckpointSummary{
		RunID:     c.RunID,
		Kind:      c.Kind,
		Topic:     c.State.Topic,
		Stage:     c.Stage,
		Status:    c.Status,
		Analysts:  len(c.State.Analysts),
		Sections:  len(c.State.Sections),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CheckpointSummary is a lightweight listing entry.
type CheckpointSummary struct {
	RunID     string         `json:"run_id"`
	Kind      CheckpointKind `json:"kind"`
	Topic     string         `json:"topic"`
	Stage     Stage          `json:"stage"`
	Status    RunStatus      `json:"status"`
	Analysts  int            `json:"analysts"`
	Sections  int            `json:"sections"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
