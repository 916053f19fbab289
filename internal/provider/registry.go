// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package provider

import (
	"strings"
	"sync"

	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

// Registry holds the configured providers and resolves the default
// "provider/model" reference for the conversation loop.
type Registry struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	defaultRef string
}

// NewRegistry creates an empty Registry with the given default model
// reference in "provider/model" form.
func NewRegistry(defaultRef string) *Registry {
	return &Registry{
		providers:  make(map[string]Provider),
		defaultRef: defaultRef,
	}
}

// Register adds a provider under its name. Registering the same name twice
// replaces the earlier provider.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Configured reports whether the default model reference resolves to a
// registered provider. The health endpoint surfaces this so operators can
// distinguish "not set up" from "broken".
func (r *Registry) Configured() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, _, ok := splitRef(r.defaultRef)
	if !ok {
		return false
	}
	_, found := r.providers[name]
	return found
}

// Default returns the provider and model for the default reference.
func (r *Registry) Default() (Provider, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, model, ok := splitRef(r.defaultRef)
	if !ok {
		return nil, "", auroraerr.Errorf(auroraerr.CodeProviderNotConfigured,
			"default model must be in \"provider/model\" form, got %q", r.defaultRef)
	}

	p, found := r.providers[name]
	if !found {
		return nil, "", auroraerr.New(auroraerr.CodeProviderNotConfigured,
			"provider not configured: "+name, auroraerr.FieldProvider(name))
	}

	return p, model, nil
}

// Close closes all registered providers, returning the first error.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.providers = make(map[string]Provider)
	return firstErr
}

func splitRef(ref string) (provider, model string, ok bool) {
	idx := strings.Index(ref, "/")
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", false
	}
	return ref[:idx], ref[idx+1:], true
}
