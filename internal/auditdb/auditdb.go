// Package auditdb persists activity events in a local SQLite database.
// It implements activity.Logger so callers can plug it into the emitter;
// session state itself is never written here, only the audit trail.
package auditdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"connectix/internal/activity"
)

// Store is a SQLite-backed audit sink.
type Store struct {
	sql *sql.DB
}

// Open opens (or creates) the audit database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("audit db path is required")
	}

	// modernc SQLite uses a URI-like DSN; plain file paths are ok.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", path)
	s, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	s.SetMaxOpenConns(1)
	s.SetMaxIdleConns(1)
	s.SetConnMaxLifetime(0)

	st := &Store{sql: s}
	if err := st.ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := st.setPragmas(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := st.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) Close() error {
	return s.sql.Close()
}

func (s *Store) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.sql.PingContext(ctx)
}

func (s *Store) setPragmas(ctx context.Context) error {
	// WAL keeps reads cheap while operations append events.
	_, err := s.sql.ExecContext(ctx, "PRAGMA journal_mode = WAL;")
	if err != nil {
		return err
	}
	_, err = s.sql.ExecContext(ctx, "PRAGMA foreign_keys = ON;")
	return err
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.sql.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS activity_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	connection_id TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	kind          TEXT NOT NULL,
	detail        TEXT NOT NULL DEFAULT '',
	bytes         INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_connection
	ON activity_events (connection_id, created_at);
`)
	return err
}

// Record inserts one event. Implements activity.Logger.
func (s *Store) Record(ctx context.Context, ev activity.Event) error {
	when := ev.Time
	if when.IsZero() {
		when = time.Now()
	}
	_, err := s.sql.ExecContext(ctx, `
INSERT INTO activity_events (connection_id, user_id, kind, detail, bytes, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ConnectionID, ev.UserID, string(ev.Kind), ev.Detail, ev.Bytes, when.UTC())
	return err
}

// ListByConnection returns the newest events for one connection id,
// newest first, capped at limit.
func (s *Store) ListByConnection(ctx context.Context, connectionID string, limit int) ([]activity.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.sql.QueryContext(ctx, `
SELECT connection_id, user_id, kind, detail, bytes, created_at
FROM activity_events
WHERE connection_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`, connectionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []activity.Event
	for rows.Next() {
		var ev activity.Event
		var kind string
		if err := rows.Scan(&ev.ConnectionID, &ev.UserID, &kind, &ev.Detail, &ev.Bytes, &ev.Time); err != nil {
			return nil, err
		}
		ev.Kind = activity.Kind(kind)
		out = append(out, ev)
	}
	return out, rows.Err()
}
