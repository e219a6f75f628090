package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// envelopeVersion is bumped when the persisted layout changes.
const envelopeVersion = 1

// encodeCheckpoint serializes cp and returns the payload and its checksum.
func encodeCheckpoint(cp *core.Checkpoint) ([]byte, string, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling checkpoint: %w", err)
	}
	return data, checksum(data), nil
}

// decodeCheckpoint parses data and verifies it against sum when sum is set.
func decodeCheckpoint(data []byte, sum string) (*core.Checkpoint, error) {
	if sum != "" && checksum(data) != sum {
		return nil, core.ErrState(core.CodeStateCorrupted, "checkpoint checksum mismatch")
	}
	var cp core.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshaling checkpoint: %w", err)
	}
	return &cp, nil
}

// checkpointEnvelope wraps a checkpoint with integrity metadata.
type checkpointEnvelope struct {
	Version    int             `json:"version"`
	Checksum   string          `json:"checksum"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Checkpoint json.RawMessage `json:"checkpoint"`
}

func encodeEnvelope(cp *core.Checkpoint) ([]byte, error) {
	payload, sum, err := encodeCheckpoint(cp)
	if err != nil {
		return nil, err
	}
	env := checkpointEnvelope{
		Version:    envelopeVersion,
		Checksum:   sum,
		UpdatedAt:  cp.UpdatedAt,
		Checkpoint: payload,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope: %w", err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (*core.Checkpoint, error) {
	var env checkpointEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, core.ErrState(core.CodeStateCorrupted, fmt.Sprintf("unsupported envelope version %d", env.Version))
	}
	return decodeCheckpoint(env.Checkpoint, env.Checksum)
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// applyPatch checks the expected stage and runs mutate on a copy of cp.
// The copy is returned with its version and timestamp advanced.
func applyPatch(cp *core.Checkpoint, expected core.Stage, mutate func(*core.Checkpoint) error) (*core.Checkpoint, error) {
	if expected != core.AnyStage && cp.Stage != expected {
		return nil, core.ErrConflict(fmt.Sprintf("run %s is at stage %s, not %s", cp.RunID, cp.Stage, expected)).
			WithDetail("stage", string(cp.Stage)).
			WithDetail("expected", string(expected))
	}
	next := cp.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.RunID = cp.RunID
	next.CreatedAt = cp.CreatedAt
	next.Version = cp.Version + 1
	next.UpdatedAt = time.Now().UTC()
	return next, nil
}

// prepareCreate validates and stamps a new checkpoint.
func prepareCreate(cp *core.Checkpoint) (*core.Checkpoint, error) {
	if cp == nil || cp.RunID == "" {
		return nil, core.ErrValidation("INVALID_CHECKPOINT", "checkpoint requires a run id")
	}
	out := cp.Clone()
	now := time.Now().UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	if out.Version == 0 {
		out.Version = 1
	}
	return out, nil
}

func errRunExists(runID string) error {
	return core.ErrState(core.CodeRunExists, fmt.Sprintf("run already exists: %s", runID))
}
