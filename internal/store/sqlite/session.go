// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

// Package sqlite provides a durable SessionStore backend. The in-memory
// default matches the platform's original single-process deployment; this
// backend is the drop-in replacement for deployments that must survive
// restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/anamnesis-dev/aurora/internal/store"
)

// Compile-time interface check.
var _ store.SessionStore = (*SessionStore)(nil)

// SessionStore implements store.SessionStore backed by SQLite.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens (or creates) a SQLite database at dbPath and
// initialises the sessions and turns tables.
func NewSessionStore(dbPath string) (*SessionStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite db: %w", err)
	}

	return &SessionStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

CREATE TABLE IF NOT EXISTS turns (
	session_id   TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL DEFAULT '',
	tool_calls   TEXT NOT NULL DEFAULT '[]',
	tool_results TEXT NOT NULL DEFAULT '[]',
	created_at   TEXT NOT NULL,
	PRIMARY KEY (session_id, seq),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func (s *SessionStore) GetOrCreate(ctx context.Context, id string) (*store.Session, bool, error) {
	if id != "" {
		session, err := s.getSession(ctx, id)
		if err == nil {
			return session, false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, err
		}
	}

	now := time.Now()
	session := &store.Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	const q = `INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, session.ID, formatTime(now), formatTime(now)); err != nil {
		return nil, false, fmt.Errorf("creating session %s: %w", session.ID, err)
	}

	return session, true, nil
}

func (s *SessionStore) getSession(ctx context.Context, id string) (*store.Session, error) {
	const q = `SELECT id, created_at, updated_at FROM sessions WHERE id = ?`

	var session store.Session
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&session.ID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	transcript, err := s.loadTranscript(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Transcript = transcript

	return &session, nil
}

func (s *SessionStore) loadTranscript(ctx context.Context, sessionID string) ([]store.Turn, error) {
	const q = `SELECT role, content, tool_calls, tool_results, created_at
FROM turns WHERE session_id = ? ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading transcript for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var transcript []store.Turn
	for rows.Next() {
		var turn store.Turn
		var role, toolCalls, toolResults, createdAt string
		if err := rows.Scan(&role, &turn.Content, &toolCalls, &toolResults, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turn.Role = store.TurnRole(role)
		if turn.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		if err := json.Unmarshal([]byte(toolCalls), &turn.ToolCalls); err != nil {
			return nil, fmt.Errorf("decoding tool calls: %w", err)
		}
		if err := json.Unmarshal([]byte(toolResults), &turn.ToolResults); err != nil {
			return nil, fmt.Errorf("decoding tool results: %w", err)
		}
		if len(turn.ToolCalls) == 0 {
			turn.ToolCalls = nil
		}
		if len(turn.ToolResults) == 0 {
			turn.ToolResults = nil
		}
		transcript = append(transcript, turn)
	}
	return transcript, rows.Err()
}

// Save replaces the stored session wholesale. The transcript is append-only
// at the caller level, but a full rewrite keeps the store contract simple.
func (s *SessionStore) Save(ctx context.Context, session *store.Session) error {
	if session == nil || session.ID == "" {
		return store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save tx: %w", err)
	}
	defer tx.Rollback()

	updatedAt := time.Now()

	const upsert = `INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, upsert, session.ID, formatTime(session.CreatedAt), formatTime(updatedAt)); err != nil {
		return fmt.Errorf("upserting session %s: %w", session.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("clearing turns for %s: %w", session.ID, err)
	}

	const insertTurn = `INSERT INTO turns (session_id, seq, role, content, tool_calls, tool_results, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	for seq, turn := range session.Transcript {
		toolCalls, err := encodeJSONList(turn.ToolCalls)
		if err != nil {
			return fmt.Errorf("encoding tool calls: %w", err)
		}
		toolResults, err := encodeJSONList(turn.ToolResults)
		if err != nil {
			return fmt.Errorf("encoding tool results: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertTurn,
			session.ID, seq, string(turn.Role), turn.Content, toolCalls, toolResults, formatTime(turn.CreatedAt),
		); err != nil {
			return fmt.Errorf("inserting turn %d for %s: %w", seq, session.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save for %s: %w", session.ID, err)
	}

	session.UpdatedAt = updatedAt
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

func (s *SessionStore) Prune(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	cutoff := now.Add(-ttl)
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned sessions: %w", err)
	}
	return int(removed), nil
}

func (s *SessionStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return count, nil
}

func encodeJSONList(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

// timeLayout keeps fractional seconds fixed-width so stored text sorts
// lexicographically the same as the times it encodes. RFC3339Nano trims
// trailing zeros and breaks that.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime serialises a time for storage as sortable UTC text.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// parseTime deserialises a time string stored in the database. Earlier
// versions stored RFC3339Nano, which the fixed-width layout still parses.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}
