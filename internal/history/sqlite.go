package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/branchbuilder/internal/report"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(ErrDatabaseOpenFailed, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, wrap(ErrInitializeSchemaFailed, err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		total INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 0,
		build_failure INTEGER NOT NULL DEFAULT 0,
		internal_error INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		repository TEXT NOT NULL,
		branch TEXT NOT NULL,
		kind TEXT,
		commit_sha TEXT NOT NULL,
		outcome TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		published INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_repo ON outcomes(repository, branch);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) BeginRun(ctx context.Context, runID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (run_id, started_at) VALUES (?, ?)",
		runID, startedAt.UnixMilli(),
	)
	if err != nil {
		return wrap(ErrRecordFailed, err)
	}
	return nil
}

func (s *SQLiteStore) Record(ctx context.Context, runID string, e report.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, repository, branch, kind, commit_sha, outcome, exit_code, skipped, published, duration_ms, started_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		e.Branch.Repository.FullName(),
		e.Branch.Name,
		string(e.Branch.Kind),
		e.Branch.HeadCommit,
		e.Outcome.String(),
		e.ExitCode,
		e.Skipped,
		e.Published,
		e.Duration.Milliseconds(),
		e.StartedAt.UnixMilli(),
		e.Error,
	)
	if err != nil {
		return wrap(ErrRecordFailed, err)
	}
	return nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, finishedAt time.Time, sum report.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, success = ?, build_failure = ?, internal_error = ?, skipped = ?
		 WHERE run_id = ?`,
		finishedAt.UnixMilli(), sum.Total, sum.Success, sum.BuildFailure, sum.InternalError, sum.Skipped, runID,
	)
	if err != nil {
		return wrap(ErrRecordFailed, err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, repository string, limit int) ([]Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, run_id, repository, branch, kind, commit_sha, outcome, exit_code, skipped, published, duration_ms, started_at, error
		FROM outcomes`
	args := []any{}
	if repository != "" {
		query += " WHERE repository = ?"
		args = append(args, repository)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var kind, errText sql.NullString
		var outcome string
		var durationMS, startedMS int64
		if err := rows.Scan(&o.ID, &o.RunID, &o.Repository, &o.Branch, &kind, &o.Commit, &outcome,
			&o.ExitCode, &o.Skipped, &o.Published, &durationMS, &startedMS, &errText); err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		if err := o.Outcome.UnmarshalText([]byte(outcome)); err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		o.Kind = kind.String
		o.Error = errText.String
		o.Duration = time.Duration(durationMS) * time.Millisecond
		o.StartedAt = time.UnixMilli(startedMS)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
