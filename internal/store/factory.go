// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package store

import (
	"sync"

	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

// StorageConfig selects and configures the session storage backend.
type StorageConfig struct {
	// Backend names the registered backend. Empty means "memory".
	Backend string
	// Path is the database location for file-backed backends.
	Path string
}

// Factory creates a SessionStore for a storage configuration.
type Factory func(cfg StorageConfig) (SessionStore, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). Goroutine-safe.
func RegisterBackend(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

func init() {
	RegisterBackend("memory", func(StorageConfig) (SessionStore, error) {
		return NewMemoryStore(), nil
	})
}

// Open creates a SessionStore for the configured backend, defaulting
// to the in-memory backend.
func Open(cfg StorageConfig) (SessionStore, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "memory"
	}

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, auroraerr.Errorf(auroraerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return factory(cfg)
}
