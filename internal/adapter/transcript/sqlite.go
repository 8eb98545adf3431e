// Package transcript persists discussion runs to SQLite for later review.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"colloquy/internal/domain"
)

// SQLiteStore implements domain.TranscriptSink using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ domain.TranscriptSink = (*SQLiteStore)(nil)

// Run is a stored discussion run.
type Run struct {
	ID         string
	Topic      string
	Rounds     int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs the
// schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate transcript db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			topic       TEXT NOT NULL,
			rounds      INTEGER NOT NULL,
			started_at  TEXT NOT NULL,
			finished_at TEXT
		);
		CREATE TABLE IF NOT EXISTS entries (
			id          TEXT PRIMARY KEY,
			run_id      TEXT NOT NULL REFERENCES runs(id),
			ts          TEXT NOT NULL,
			sender      TEXT NOT NULL,
			message     TEXT NOT NULL,
			role        TEXT NOT NULL,
			is_thinking INTEGER NOT NULL DEFAULT 0,
			is_system   INTEGER NOT NULL DEFAULT 0,
			is_summary  INTEGER NOT NULL DEFAULT 0,
			is_decision INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_entries_run ON entries(run_id, ts)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginRun implements domain.TranscriptSink.
func (s *SQLiteStore) BeginRun(ctx context.Context, topic string, rounds int) (string, error) {
	id := domain.NewULID(time.Now())
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, topic, rounds, started_at) VALUES (?, ?, ?, ?)",
		id, topic, rounds, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Append implements domain.TranscriptSink.
func (s *SQLiteStore) Append(ctx context.Context, runID string, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (id, run_id, ts, sender, message, role, is_thinking, is_system, is_summary, is_decision)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, runID, e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Sender, e.Message, e.Role,
		boolInt(e.IsThinking), boolInt(e.IsSystem), boolInt(e.IsSummary), boolInt(e.IsDecision),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// EndRun implements domain.TranscriptSink.
func (s *SQLiteStore) EndRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339Nano), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewDomainError("transcript.EndRun", domain.ErrNotFound, runID)
	}
	return nil
}

// ListRuns returns stored runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, topic, rounds, started_at, finished_at FROM runs ORDER BY started_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &r.Topic, &r.Rounds, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if finished.Valid {
			t, err := time.Parse(time.RFC3339Nano, finished.String)
			if err != nil {
				return nil, fmt.Errorf("parse finished_at: %w", err)
			}
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Entries returns a run's entries in transcript order.
func (s *SQLiteStore) Entries(ctx context.Context, runID string) (domain.Transcript, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, sender, message, role, is_thinking, is_system, is_summary, is_decision
		 FROM entries WHERE run_id = ? ORDER BY ts, id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out domain.Transcript
	for rows.Next() {
		var e domain.Entry
		var ts string
		var thinking, system, summary, decision int
		if err := rows.Scan(&e.ID, &ts, &e.Sender, &e.Message, &e.Role,
			&thinking, &system, &summary, &decision); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse entry ts: %w", err)
		}
		e.IsThinking = thinking != 0
		e.IsSystem = system != 0
		e.IsSummary = summary != 0
		e.IsDecision = decision != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
