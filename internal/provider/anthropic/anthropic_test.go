// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package anthropic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamnesis-dev/aurora/internal/provider"
	"github.com/anamnesis-dev/aurora/internal/provider/anthropic"
	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

// Compile-time interface satisfaction check.
var _ provider.Provider = (*anthropic.Provider)(nil)

func TestProvider_Name(t *testing.T) {
	p := mustNewProvider(t)
	assert.Equal(t, "anthropic", p.Name())
}

func TestProvider_MissingAPIKey(t *testing.T) {
	_, err := anthropic.New(anthropic.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, auroraerr.IsNotConfigured(err))
	assert.True(t, auroraerr.HasCode(err, auroraerr.CodeProviderNotConfigured))
}

func TestProvider_Available(t *testing.T) {
	p := mustNewProvider(t)
	assert.True(t, p.Available(context.Background()))
}

func TestProvider_Close(t *testing.T) {
	p := mustNewProvider(t)
	assert.NoError(t, p.Close())
}

func TestConvertMessages_UserAndAssistantText(t *testing.T) {
	msgs := []provider.Message{
		{Role: provider.MessageRoleUser, Content: "Покажи клинические случаи"},
		{Role: provider.MessageRoleAssistant, Content: "Вот список случаев."},
	}

	out, err := anthropic.ConvertMessages(msgs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, anthropicsdkRoleUser, string(out[0].Role))
	assert.Equal(t, anthropicsdkRoleAssistant, string(out[1].Role))
}

func TestConvertMessages_AssistantToolUseBlocks(t *testing.T) {
	msgs := []provider.Message{
		{Role: provider.MessageRoleUser, Content: "analyze this scan"},
		{
			Role:    provider.MessageRoleAssistant,
			Content: "Looking at the scan now.",
			ToolCalls: []provider.ToolCall{
				{ID: "toolu_01", Name: "analyze_scan", Arguments: `{"scan_type":"MRI"}`},
			},
		},
	}

	out, err := anthropic.ConvertMessages(msgs)
	require.NoError(t, err)
	require.Len(t, out, 2)

	blocks := out[1].Content
	require.Len(t, blocks, 2)
	assert.NotNil(t, blocks[0].OfText)
	require.NotNil(t, blocks[1].OfToolUse)
	assert.Equal(t, "toolu_01", blocks[1].OfToolUse.ID)
	assert.Equal(t, "analyze_scan", blocks[1].OfToolUse.Name)
}

func TestConvertMessages_ToolCarrierBecomesUserResults(t *testing.T) {
	msgs := []provider.Message{
		{
			Role: provider.MessageRoleTool,
			ToolResults: []provider.ToolResultInput{
				{InvocationID: "toolu_01", Content: `{"cases":[]}`},
				{InvocationID: "toolu_02", Content: `{"error":"unknown tool: bogus"}`, IsError: true},
			},
		},
	}

	out, err := anthropic.ConvertMessages(msgs)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, anthropicsdkRoleUser, string(out[0].Role))
	require.Len(t, out[0].Content, 2)
	require.NotNil(t, out[0].Content[0].OfToolResult)
	assert.Equal(t, "toolu_01", out[0].Content[0].OfToolResult.ToolUseID)
	require.NotNil(t, out[0].Content[1].OfToolResult)
	assert.True(t, out[0].Content[1].OfToolResult.IsError.Value)
}

func TestConvertMessages_UnsupportedRole(t *testing.T) {
	_, err := anthropic.ConvertMessages([]provider.Message{
		{Role: provider.MessageRole("system"), Content: "nope"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported message role")
}

func TestBuildParams_Defaults(t *testing.T) {
	params, err := anthropic.BuildParams(provider.ChatRequest{
		Model:        "claude-sonnet-4-20250514",
		SystemPrompt: "You are Aurora.",
		Messages: []provider.Message{
			{Role: provider.MessageRoleUser, Content: "hi"},
		},
		Tools: []provider.ToolDefinition{
			{
				Name:        "list_medical_cases",
				Description: "List published cases",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"difficulty": map[string]any{"type": "string"},
					},
				},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4096), params.MaxTokens, "max tokens should default when unset")
	require.Len(t, params.System, 1)
	assert.Equal(t, "You are Aurora.", params.System[0].Text)
	require.Len(t, params.Tools, 1)
	require.NotNil(t, params.Tools[0].OfTool)
	assert.Equal(t, "list_medical_cases", params.Tools[0].OfTool.Name)
}

func TestExtractSchema(t *testing.T) {
	schema := anthropic.ExtractSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"case_id": map[string]any{"type": "string"},
		},
		"required": []any{"case_id"},
	})

	assert.NotNil(t, schema.Properties)
	assert.Equal(t, []string{"case_id"}, schema.Required)
}

const (
	anthropicsdkRoleUser      = "user"
	anthropicsdkRoleAssistant = "assistant"
)

// mustNewProvider creates a provider with a dummy API key for unit tests.
func mustNewProvider(t *testing.T) *anthropic.Provider {
	t.Helper()
	p, err := anthropic.New(anthropic.Config{
		APIKey: "test-key-not-real",
	})
	require.NoError(t, err)
	return p
}
