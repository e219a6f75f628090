package core

import (
	"context"
	"encoding/json"
)

// =============================================================================
// Language model port
// =============================================================================

// OutputSchema constrains a structured generation.
type OutputSchema struct {
	Name        string          // Tool or schema name, e.g. "perspectives"
	Description string          // What the value represents
	Schema      json.RawMessage // JSON Schema of the expected value
}

// LanguageModel is the text generation capability.
type LanguageModel interface {
	// GenerateText returns unconstrained text for the conversation.
	GenerateText(ctx context.Context, systemPrompt string, conversation []Message) (string, error)

	// GenerateStructured returns a JSON value matching schema.
	GenerateStructured(ctx context.Context, systemPrompt string, conversation []Message, schema OutputSchema) (json.RawMessage, error)
}

// Pinger is implemented by providers that support a connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// =============================================================================
// Retrieval ports
// =============================================================================

// WebResult is one general web search hit.
type WebResult struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// WebSearcher is the general web search capability.
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string) ([]WebResult, error)
}

// KnowledgeDocument is one encyclopedic search hit.
type KnowledgeDocument struct {
	Source  string `json:"source"`
	Page    string `json:"page,omitempty"`
	Content string `json:"content"`
}

// KnowledgeBase is the encyclopedic search capability.
type KnowledgeBase interface {
	SearchKnowledgeBase(ctx context.Context, query string, maxDocs int) ([]KnowledgeDocument, error)
}

// =============================================================================
// Checkpoint store port
// =============================================================================

// AnyStage disables the stage check of CheckpointStore.Patch.
const AnyStage Stage = ""

// CheckpointStore persists checkpoints keyed by run id. All operations on one
// run id are serialized; different run ids are independent.
type CheckpointStore interface {
	// Create stores a new checkpoint. Fails if the run id already exists.
	Create(ctx context.Context, cp *Checkpoint) error

	// Read returns a copy of the latest checkpoint, or ErrRunNotFound.
	Read(ctx context.Context, runID string) (*Checkpoint, error)

	// Patch applies mutate to the checkpoint atomically. When expected is not
	// AnyStage and the checkpoint is at another stage, it fails with
	// ErrStateConflict and mutate is not called. The stored version is bumped.
	Patch(ctx context.Context, runID string, expected Stage, mutate func(*Checkpoint) error) (*Checkpoint, error)

	// Delete discards a checkpoint. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error

	// List returns summaries of all stored runs, newest first.
	List(ctx context.Context) ([]CheckpointSummary, error)

	// Close releases resources.
	Close() error
}
