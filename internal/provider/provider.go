// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package provider

import (
	"context"
)

// Provider is the core interface for LLM providers.
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Chat(ctx context.Context, req ChatRequest) (<-chan ChatEvent, error)
	Close() error
}

// ChatRequest represents a request to the LLM.
type ChatRequest struct {
	Model        string
	Messages     []Message
	Tools        []ToolDefinition
	SystemPrompt string
	Options      ChatOptions
}

// ChatOptions contains model configuration.
type ChatOptions struct {
	Temperature   float64
	MaxTokens     int
	StopSequences []string
}

// MessageRole defines the role of a message sender.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	// MessageRoleTool carries tool results back to the model after an
	// assistant message requested invocations.
	MessageRoleTool MessageRole = "tool"
)

// Message represents one conversation message on the wire. Assistant
// messages may carry tool calls alongside (or instead of) text; tool
// messages carry the matching results, one entry per invocation, in
// invocation order.
type Message struct {
	Role        MessageRole
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResultInput
}

// ToolResultInput is one tool outcome being sent back to the model.
type ToolResultInput struct {
	InvocationID string
	Content      string // JSON
	IsError      bool
}

// ToolDefinition describes a tool available to the agent.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ChatEvent is a streaming response event.
type ChatEvent struct {
	Type     EventType
	Text     string
	ToolCall *ToolCall
	Usage    *Usage
	Error    string
}

// EventType defines the type of chat event.
type EventType string

const (
	EventTypeTextDelta EventType = "text_delta"
	EventTypeToolCall  EventType = "tool_call"
	EventTypeUsage     EventType = "usage"
	EventTypeDone      EventType = "done"
	EventTypeError     EventType = "error"
)

// ToolCall represents a tool invocation by the LLM.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
