// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time interface check.
var _ SessionStore = (*MemoryStore)(nil)

// MemoryStore is the default in-process SessionStore: a map guarded by a
// RWMutex. Sessions are cloned on the way in and out so callers never share
// memory with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	// now is swapped in tests to control timestamps.
	now func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) GetOrCreate(_ context.Context, id string) (*Session, bool, error) {
	if id != "" {
		m.mu.RLock()
		existing, ok := m.sessions[id]
		m.mu.RUnlock()
		if ok {
			return existing.Clone(), false, nil
		}
	}

	now := m.now()
	session := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.sessions[session.ID] = session.Clone()
	m.mu.Unlock()

	return session, true, nil
}

func (m *MemoryStore) Save(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}

	stored := session.Clone()
	stored.UpdatedAt = m.now()

	m.mu.Lock()
	m.sessions[stored.ID] = stored
	m.mu.Unlock()

	session.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Prune(_ context.Context, now time.Time, ttl time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if now.Sub(session.UpdatedAt) > ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

func (m *MemoryStore) Close() error { return nil }
