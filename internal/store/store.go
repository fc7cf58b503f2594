// Package store is the SQLite-backed persistence layer. All balance changes
// run as single-row atomic read-modify-write transactions so concurrent
// callers can never produce a lost update or a negative balance.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientLives = errors.New("insufficient lives")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrUnavailable       = errors.New("storage unavailable")
)

const timeFormat = time.RFC3339Nano

type Store struct {
	db *sql.DB
}

// Open connects to the database at path, applies pragmas and the schema.
// Use ":memory:" only in tests; concurrent access needs a file-backed DB.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, unavailable(fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		full_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		lives_remaining INTEGER NOT NULL DEFAULT 3 CHECK (lives_remaining >= 0),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS lives_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		previous_lives INTEGER NOT NULL CHECK (previous_lives >= 0),
		new_lives INTEGER NOT NULL CHECK (new_lives >= 0),
		action_type TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		admin_user_id INTEGER REFERENCES users(id),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_videos (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		script TEXT NOT NULL,
		video_url TEXT NOT NULL DEFAULT '',
		generation_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		storyboard TEXT NOT NULL,
		video_data TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS refresh_tokens (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		token_hash TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		revoked_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lives_log_user ON lives_log(user_id, id);
	CREATE INDEX IF NOT EXISTS idx_user_videos_user ON user_videos(user_id, created_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return unavailable("apply schema", err)
	}
	return nil
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// withTx runs fn inside a transaction, retrying the whole unit when SQLite
// reports a busy database.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return unavailable("begin tx", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return unavailable("commit tx", err)
		}
		return nil
	})
}

// unavailable wraps a driver error so callers can distinguish connectivity
// failures from business-rule errors via errors.Is(err, ErrUnavailable).
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeFormat, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
