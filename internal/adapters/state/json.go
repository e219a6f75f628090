package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/fsutil"
)

// JSONStore keeps one JSON file per run under a directory.
type JSONStore struct {
	dir        string
	keepBackup bool
	locks      *runLocks
}

// JSONStoreOption configures the store.
type JSONStoreOption func(*JSONStore)

// WithBackups keeps the previous version of each run file as <run>.json.bak.
func WithBackups(enabled bool) JSONStoreOption {
	return func(s *JSONStore) {
		s.keepBackup = enabled
	}
}

// NewJSONStore creates a store rooted at dir.
func NewJSONStore(dir string, opts ...JSONStoreOption) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	s := &JSONStore{dir: dir, keepBackup: true, locks: newRunLocks()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *JSONStore) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// Create writes a new run file.
func (s *JSONStore) Create(_ context.Context, cp *core.Checkpoint) error {
	next, err := prepareCreate(cp)
	if err != nil {
		return err
	}
	if strings.ContainsAny(next.RunID, `/\`) {
		return core.ErrValidation("INVALID_CHECKPOINT", "run id must not contain path separators")
	}
	unlock := s.locks.lock(next.RunID)
	defer unlock()

	if _, err := os.Stat(s.path(next.RunID)); err == nil {
		return errRunExists(next.RunID)
	}
	return s.write(next)
}

// Read loads the run file, falling back to its backup when corrupt.
func (s *JSONStore) Read(_ context.Context, runID string) (*core.Checkpoint, error) {
	return s.load(runID)
}

func (s *JSONStore) load(runID string) (*core.Checkpoint, error) {
	data, err := fsutil.ReadFileScoped(s.path(runID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.ErrRunMissing(runID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	cp, err := decodeEnvelope(data)
	if err == nil {
		return cp, nil
	}
	backup, backupErr := fsutil.ReadFileScoped(s.path(runID) + ".bak")
	if backupErr != nil {
		return nil, fmt.Errorf("loading state: %w (backup also failed: %v)", err, backupErr)
	}
	cp, backupErr = decodeEnvelope(backup)
	if backupErr != nil {
		return nil, fmt.Errorf("loading state: %w (backup also failed: %v)", err, backupErr)
	}
	return cp, nil
}

// Patch rewrites the run file atomically under the run's lock.
func (s *JSONStore) Patch(_ context.Context, runID string, expected core.Stage, mutate func(*core.Checkpoint) error) (*core.Checkpoint, error) {
	unlock := s.locks.lock(runID)
	defer unlock()

	current, err := s.load(runID)
	if err != nil {
		return nil, err
	}
	next, err := applyPatch(current, expected, mutate)
	if err != nil {
		return nil, err
	}
	if s.keepBackup {
		if err := s.backup(runID); err != nil {
			return nil, fmt.Errorf("creating backup: %w", err)
		}
	}
	if err := s.write(next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *JSONStore) write(cp *core.Checkpoint) error {
	data, err := encodeEnvelope(cp)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(s.path(cp.RunID), data, 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

func (s *JSONStore) backup(runID string) error {
	data, err := fsutil.ReadFileScoped(s.path(runID))
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(s.path(runID)+".bak", data, 0o600)
}

// Delete removes the run file and its backup.
func (s *JSONStore) Delete(_ context.Context, runID string) error {
	unlock := s.locks.lock(runID)
	defer unlock()
	for _, p := range []string{s.path(runID), s.path(runID) + ".bak"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

// List reads every run file in the directory.
func (s *JSONStore) List(_ context.Context) ([]core.CheckpointSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading state directory: %w", err)
	}
	var out []core.CheckpointSummary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		cp, err := s.load(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, cp.Summary())
	}
	sortSummaries(out)
	return out, nil
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }
