// Package history records per-ticket merge outcomes in a local SQLite
// database so past runs can be reviewed without replaying them.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS merge_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	ticket_id   INTEGER NOT NULL,
	issue_id    TEXT NOT NULL,
	action      TEXT NOT NULL,
	confidence  REAL NOT NULL,
	model       TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_merge_history_ticket ON merge_history(ticket_id);
CREATE INDEX IF NOT EXISTS idx_merge_history_run ON merge_history(run_id);
`

// Record is one merge outcome: which ticket landed in which issue, how,
// and with what confidence.
type Record struct {
	ID         int64
	RunID      string
	TicketID   int
	IssueID    string
	Action     string
	Confidence float64
	Model      string
	CreatedAt  time.Time
}

// Store is the SQLite-backed history store.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordMerge appends one merge outcome. The record's CreatedAt defaults
// to now and its ID is populated on return.
func (s *Store) RecordMerge(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO merge_history (run_id, ticket_id, issue_id, action, confidence, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.TicketID, rec.IssueID, rec.Action, rec.Confidence, rec.Model, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording merge for ticket %d: %w", rec.TicketID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// Recent returns the most recent merge records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, ticket_id, issue_id, action, confidence, model, created_at
		 FROM merge_history
		 ORDER BY id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying merge history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.TicketID, &rec.IssueID,
			&rec.Action, &rec.Confidence, &rec.Model, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning merge record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating merge history: %w", err)
	}
	return records, nil
}

// TicketHistory returns every recorded outcome for one ticket, oldest first.
func (s *Store) TicketHistory(ctx context.Context, ticketID int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, ticket_id, issue_id, action, confidence, model, created_at
		 FROM merge_history
		 WHERE ticket_id = ?
		 ORDER BY id ASC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("querying history for ticket %d: %w", ticketID, err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.TicketID, &rec.IssueID,
			&rec.Action, &rec.Confidence, &rec.Model, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning merge record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ticket history: %w", err)
	}
	return records, nil
}
