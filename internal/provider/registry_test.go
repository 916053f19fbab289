// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamnesis-dev/aurora/internal/provider"
	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

type stubProvider struct {
	name   string
	closed bool
}

func (s *stubProvider) Name() string                       { return s.name }
func (s *stubProvider) Available(context.Context) bool     { return true }
func (s *stubProvider) Close() error                       { s.closed = true; return nil }
func (s *stubProvider) Chat(context.Context, provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	ch := make(chan provider.ChatEvent)
	close(ch)
	return ch, nil
}

func TestRegistryDefaultResolution(t *testing.T) {
	reg := provider.NewRegistry("anthropic/claude-sonnet-4-5")
	stub := &stubProvider{name: "anthropic"}
	reg.Register(stub)

	p, model, err := reg.Default()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-sonnet-4-5", model)
	assert.True(t, reg.Configured())
}

func TestRegistryUnconfigured(t *testing.T) {
	tests := []struct {
		name       string
		defaultRef string
		register   string
	}{
		{"no provider registered", "anthropic/claude-sonnet-4-5", ""},
		{"wrong provider registered", "anthropic/claude-sonnet-4-5", "openai"},
		{"malformed reference", "claude-sonnet-4-5", "anthropic"},
		{"empty reference", "", "anthropic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := provider.NewRegistry(tt.defaultRef)
			if tt.register != "" {
				reg.Register(&stubProvider{name: tt.register})
			}

			assert.False(t, reg.Configured())
			_, _, err := reg.Default()
			require.Error(t, err)
			assert.True(t, auroraerr.IsNotConfigured(err))
		})
	}
}

func TestRegistryCloseClosesAll(t *testing.T) {
	reg := provider.NewRegistry("anthropic/claude-sonnet-4-5")
	a := &stubProvider{name: "anthropic"}
	b := &stubProvider{name: "openai"}
	reg.Register(a)
	reg.Register(b)

	require.NoError(t, reg.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.False(t, reg.Configured())
}
