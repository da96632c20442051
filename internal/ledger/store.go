package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"streamline/internal/config"
)

const runColumns = "id, job_id, state, request_json, error_kind, error_message, files_json, failed_count, cleaned_up, created_at, updated_at"

// ErrRunNotFound is returned by updates addressing an unknown run.
var ErrRunNotFound = errors.New("run not found")

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database at cfg.Ledger.Path.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := strings.TrimSpace(cfg.Ledger.Path)
	if dbPath == "" {
		return nil, errors.New("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a run in its initial state.
func (s *Store) Create(ctx context.Context, runID, state, requestJSON string) (*Run, error) {
	now := time.Now().UTC().Format(timeLayout)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, state, request_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, state, requestJSON, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO run_transitions (run_id, state, at) VALUES (?, ?, ?)`,
		runID, state, now,
	); err != nil {
		return nil, fmt.Errorf("insert transition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit run: %w", err)
	}
	return s.Get(ctx, runID)
}

// Transition moves a run to state and appends it to the history.
func (s *Store) Transition(ctx context.Context, runID, state, detail string) error {
	now := time.Now().UTC().Format(timeLayout)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE runs SET state = ?, updated_at = ? WHERE id = ?`, state, now, runID)
	if err != nil {
		return fmt.Errorf("update run state: %w", err)
	}
	if err := requireRow(res, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO run_transitions (run_id, state, detail, at) VALUES (?, ?, ?, ?)`,
		runID, state, nullableString(detail), now,
	); err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return tx.Commit()
}

// SetJobID records the backend job id of a run.
func (s *Store) SetJobID(ctx context.Context, runID, jobID string) error {
	return s.exec(ctx, runID, `UPDATE runs SET job_id = ?, updated_at = ? WHERE id = ?`, jobID)
}

// RecordFailure stores the error that ended or degraded a run.
func (s *Store) RecordFailure(ctx context.Context, runID, kind, message string) error {
	return s.exec(ctx, runID, `UPDATE runs SET error_kind = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		nullableString(kind), nullableString(message))
}

// RecordRedistribution stores the redistributed file list of a run.
func (s *Store) RecordRedistribution(ctx context.Context, runID string, files []string, failed int) error {
	data, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}
	return s.exec(ctx, runID, `UPDATE runs SET files_json = ?, failed_count = ?, updated_at = ? WHERE id = ?`,
		string(data), failed)
}

// MarkCleanedUp flags that the run's cleanup phase completed.
func (s *Store) MarkCleanedUp(ctx context.Context, runID string) error {
	return s.exec(ctx, runID, `UPDATE runs SET cleaned_up = 1, updated_at = ? WHERE id = ?`)
}

func (s *Store) exec(ctx context.Context, runID, query string, args ...any) error {
	args = append(args, time.Now().UTC().Format(timeLayout), runID)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	return requireRow(res, runID)
}

// Get fetches a run by id. It returns nil, nil when no run matches.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindByJobID returns the run that submitted jobID, or nil when unknown.
func (s *Store) FindByJobID(ctx context.Context, jobID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE job_id = ? ORDER BY created_at DESC LIMIT 1`, jobID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run by job: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first, optionally filtered by state.
// A limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int, states ...string) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]any, 0, len(states)+1)
	if len(states) > 0 {
		query += ` WHERE state IN (` + makePlaceholders(len(states)) + `)`
		for _, st := range states {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Transitions returns the state history of a run in order.
func (s *Store) Transitions(ctx context.Context, runID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, detail, at FROM run_transitions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			state  string
			detail sql.NullString
			atRaw  string
		)
		if err := rows.Scan(&state, &detail, &atRaw); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr := Transition{State: state, Detail: detail.String}
		if at, err := parseTimeString(atRaw); err == nil {
			tr.At = at
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Prune removes finished (done or failed) runs created before cutoff and
// returns how many were removed. Transitions go with them.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE created_at < ? AND state IN ('done', 'failed')`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
