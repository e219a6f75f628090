package state

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_checkpoints.sql
var migrationV1 string

// SQLiteStore implements core.CheckpointStore with SQLite storage.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	locks  *runLocks
}

// SQLiteStoreOption configures the store.
type SQLiteStoreOption func(*SQLiteStore)

// WithMaxOpenConns limits the connection pool. SQLite serializes writers,
// so values above one only help readers.
func WithMaxOpenConns(n int) SQLiteStoreOption {
	return func(s *SQLiteStore) {
		s.db.SetMaxOpenConns(n)
	}
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string, opts ...SQLiteStoreOption) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		dbPath: dbPath,
		db:     db,
		locks:  newRunLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Create inserts a new checkpoint.
func (s *SQLiteStore) Create(ctx context.Context, cp *core.Checkpoint) error {
	next, err := prepareCreate(cp)
	if err != nil {
		return err
	}
	unlock := s.locks.lock(next.RunID)
	defer unlock()

	data, sum, err := encodeCheckpoint(next)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM checkpoints WHERE run_id = ?", next.RunID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking run: %w", err)
	}
	if exists > 0 {
		return errRunExists(next.RunID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, kind, stage, status, topic, version, data, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		next.RunID, next.Kind, next.Stage, next.Status, next.State.Topic, next.Version,
		string(data), sum, formatTime(next.CreatedAt), formatTime(next.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting checkpoint: %w", err)
	}
	return tx.Commit()
}

// Read loads the checkpoint for runID.
func (s *SQLiteStore) Read(ctx context.Context, runID string) (*core.Checkpoint, error) {
	return s.read(ctx, s.db, runID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) read(ctx context.Context, q queryRower, runID string) (*core.Checkpoint, error) {
	var data, sum string
	err := q.QueryRowContext(ctx, "SELECT data, checksum FROM checkpoints WHERE run_id = ?", runID).Scan(&data, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRunMissing(runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	return decodeCheckpoint([]byte(data), sum)
}

// Patch applies mutate inside a transaction guarded by the stored version.
func (s *SQLiteStore) Patch(ctx context.Context, runID string, expected core.Stage, mutate func(*core.Checkpoint) error) (*core.Checkpoint, error) {
	unlock := s.locks.lock(runID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.read(ctx, tx, runID)
	if err != nil {
		return nil, err
	}
	next, err := applyPatch(current, expected, mutate)
	if err != nil {
		return nil, err
	}
	data, sum, err := encodeCheckpoint(next)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE checkpoints
		SET kind = ?, stage = ?, status = ?, topic = ?, version = ?, data = ?, checksum = ?, updated_at = ?
		WHERE run_id = ? AND version = ?
	`,
		next.Kind, next.Stage, next.Status, next.State.Topic, next.Version, string(data), sum,
		formatTime(next.UpdatedAt), runID, current.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("updating checkpoint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return nil, core.ErrConflict(fmt.Sprintf("run %s was modified concurrently", runID))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing checkpoint: %w", err)
	}
	return next, nil
}

// Delete removes the checkpoint.
func (s *SQLiteStore) Delete(ctx context.Context, runID string) error {
	unlock := s.locks.lock(runID)
	defer unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// List returns run summaries, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]core.CheckpointSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM checkpoints ORDER BY created_at DESC, run_id ASC")
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var out []core.CheckpointSummary
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning checkpoint: %w", err)
		}
		cp, err := decodeCheckpoint([]byte(data), "")
		if err != nil {
			return nil, err
		}
		out = append(out, cp.Summary())
	}
	return out, rows.Err()
}

// sqliteTimeLayout has fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
