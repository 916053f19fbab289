// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package store

import (
	"context"
	"time"
)

// SessionStore manages conversation sessions. The conversation loop never
// touches a backend directly; everything goes through this interface so the
// in-memory default can be swapped for a durable backend without touching
// the loop.
type SessionStore interface {
	// GetOrCreate returns the session with the given id. An empty or unknown
	// id mints a new empty session under a fresh id. The returned bool is
	// true when a new session was created.
	GetOrCreate(ctx context.Context, id string) (*Session, bool, error)

	// Save replaces the stored session and refreshes its UpdatedAt.
	Save(ctx context.Context, session *Session) error

	// Delete removes the session. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Prune removes every session idle longer than ttl relative to now and
	// returns how many were removed.
	Prune(ctx context.Context, now time.Time, ttl time.Duration) (int, error)

	// Count reports the number of live sessions.
	Count(ctx context.Context) (int, error)

	Close() error
}

// SessionTTL is how long a session may sit idle before a prune sweep
// removes it.
const SessionTTL = time.Hour
