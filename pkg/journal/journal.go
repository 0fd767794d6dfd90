// Package journal keeps a sqlite audit trail of dispatch attempts. It
// records work the engine has already done; the engine itself stays purely
// in memory and pending reminders do not survive a restart.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"remindd/pkg/reminders"
)

const busyTimeoutMs = 2000

// Store is a sqlite-backed dispatch journal. It implements
// reminders.Recorder.
type Store struct {
	db *sql.DB
}

// Entry is one journaled dispatch attempt.
type Entry struct {
	ID           string    `json:"id"`
	ReminderID   string    `json:"reminderId"`
	Title        string    `json:"title"`
	Recipient    string    `json:"recipient"`
	DueTime      time.Time `json:"dueTime"`
	DispatchedAt time.Time `json:"dispatchedAt"`
	Outcome      string    `json:"outcome"`
	Error        string    `json:"error,omitempty"`
}

// Open opens (or creates) the journal database at file and ensures the
// schema exists.
func Open(file string) (*Store, error) {
	db, err := sql.Open("sqlite", connString(file))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if err := ensureTable(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func connString(file string) string {
	qs := url.Values{
		"_txlock": []string{"immediate"},
		"_pragma": []string{
			"journal_mode(WAL)",
			fmt.Sprintf("busy_timeout(%d)", busyTimeoutMs),
		},
	}

	return "file:" + file + "?" + qs.Encode()
}

func ensureTable(db *sql.DB) error {
	_, err := db.ExecContext(context.TODO(),
		`CREATE TABLE IF NOT EXISTS dispatches (
			id TEXT NOT NULL PRIMARY KEY,
			reminder_id TEXT NOT NULL,
			title TEXT NOT NULL,
			recipient TEXT NOT NULL,
			due_time TEXT NOT NULL,
			dispatched_at TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		) WITHOUT ROWID;

		CREATE INDEX IF NOT EXISTS dispatched_at_idx ON dispatches (dispatched_at DESC);
		`,
	)
	if err != nil {
		return fmt.Errorf("failed to create journal table: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one dispatch attempt.
func (s *Store) Record(ctx context.Context, d reminders.Dispatch) error {
	outcome := "sent"
	errMsg := ""
	if d.Err != nil {
		outcome = "failed"
		errMsg = d.Err.Error()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatches (id, reminder_id, title, recipient, due_time, dispatched_at, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), d.Reminder.ID, d.Reminder.Title, d.Reminder.Recipient,
		d.Reminder.DueTime.UTC().Format(time.RFC3339Nano),
		d.DispatchedAt.UTC().Format(time.RFC3339Nano),
		outcome, errMsg)
	if err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}

	return nil
}

// Recent returns up to limit journal entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reminder_id, title, recipient, due_time, dispatched_at, outcome, error
		FROM dispatches ORDER BY dispatched_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			en                    Entry
			dueTime, dispatchedAt string
		)
		if err := rows.Scan(&en.ID, &en.ReminderID, &en.Title, &en.Recipient,
			&dueTime, &dispatchedAt, &en.Outcome, &en.Error); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}

		en.DueTime, _ = time.Parse(time.RFC3339Nano, dueTime)
		en.DispatchedAt, _ = time.Parse(time.RFC3339Nano, dispatchedAt)

		entries = append(entries, en)
	}

	return entries, rows.Err()
}
