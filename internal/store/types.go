// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package store

import "time"

// TurnRole identifies the author of a transcript turn.
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
	// TurnRoleTool marks the carrier turn that ferries tool results back to
	// the model. It is never surfaced to the end user.
	TurnRoleTool TurnRole = "tool"
)

// ToolInvocation is a tool call the model requested on an assistant turn.
type ToolInvocation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON
}

// ToolResult is the outcome of one invocation, correlated by InvocationID.
type ToolResult struct {
	InvocationID string `json:"invocation_id"`
	Content      string `json:"content"` // JSON payload, or {"error": ...} when IsError
	IsError      bool   `json:"is_error,omitempty"`
}

// Turn is one entry in a session transcript. User and assistant turns carry
// text; assistant turns may additionally carry tool invocations, and tool
// turns carry the matching results.
type Turn struct {
	Role        TurnRole         `json:"role"`
	Content     string           `json:"content,omitempty"`
	ToolCalls   []ToolInvocation `json:"tool_calls,omitempty"`
	ToolResults []ToolResult     `json:"tool_results,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Session is one ongoing conversation. The transcript is append-only and
// kept in conversation order.
type Session struct {
	ID         string    `json:"id"`
	Transcript []Turn    `json:"transcript"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate freely without racing
// the store's own copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	out := &Session{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Transcript != nil {
		out.Transcript = make([]Turn, len(s.Transcript))
		for i, turn := range s.Transcript {
			out.Transcript[i] = turn.clone()
		}
	}
	return out
}

func (t Turn) clone() Turn {
	out := t
	if t.ToolCalls != nil {
		out.ToolCalls = make([]ToolInvocation, len(t.ToolCalls))
		copy(out.ToolCalls, t.ToolCalls)
	}
	if t.ToolResults != nil {
		out.ToolResults = make([]ToolResult, len(t.ToolResults))
		copy(out.ToolResults, t.ToolResults)
	}
	return out
}
