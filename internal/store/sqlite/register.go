// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package sqlite

import (
	"fmt"

	"github.com/anamnesis-dev/aurora/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", newSessionStore)
}

func newSessionStore(cfg store.StorageConfig) (store.SessionStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite backend requires storage.path")
	}
	return NewSessionStore(cfg.Path)
}
