// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package agent

import "sync"

// sessionLocks serializes exchanges per session id so concurrent requests
// against the same session never interleave transcript writes. Unrelated
// sessions proceed independently. Entries are reference-counted and removed
// as soon as the last holder releases, so the map never accumulates stale
// session ids.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*sessionLockEntry
}

type sessionLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{
		entries: make(map[string]*sessionLockEntry),
	}
}

// acquire blocks until the session lock is held and returns the release func.
func (l *sessionLocks) acquire(sessionID string) func() {
	l.mu.Lock()
	entry, ok := l.entries[sessionID]
	if !ok {
		entry = &sessionLockEntry{}
		l.entries[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, sessionID)
		}
		l.mu.Unlock()
	}
}
