// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamnesis-dev/aurora/internal/store"
)

func TestSessionCloneIsDeep(t *testing.T) {
	original := &store.Session{
		ID:        "sess-1",
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
		Transcript: []store.Turn{
			{
				Role:    store.TurnRoleAssistant,
				Content: "checking the case library",
				ToolCalls: []store.ToolInvocation{
					{ID: "inv-1", Name: "list_medical_cases", Arguments: `{"limit":3}`},
				},
			},
			{
				Role: store.TurnRoleTool,
				ToolResults: []store.ToolResult{
					{InvocationID: "inv-1", Content: `{"cases":[]}`},
				},
			},
		},
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.Transcript[0].ToolCalls[0].Arguments = `{"limit":99}`
	clone.Transcript[1].ToolResults[0].IsError = true
	clone.Transcript = append(clone.Transcript, store.Turn{Role: store.TurnRoleUser})

	assert.Equal(t, `{"limit":3}`, original.Transcript[0].ToolCalls[0].Arguments)
	assert.False(t, original.Transcript[1].ToolResults[0].IsError)
	assert.Len(t, original.Transcript, 2)
}

func TestSessionCloneNil(t *testing.T) {
	var s *store.Session
	assert.Nil(t, s.Clone())
}

func TestOpenDefaultsToMemoryBackend(t *testing.T) {
	st, err := store.Open(store.StorageConfig{})
	require.NoError(t, err)
	defer st.Close()

	_, ok := st.(*store.MemoryStore)
	assert.True(t, ok)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := store.Open(store.StorageConfig{Backend: "etched-stone"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage backend")
}
