// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/anamnesis-dev/aurora/internal/agent"
	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/api/v1/chat",
		Summary:     "Send a message to the agent",
		Tags:        []string{"chat"},
	}, s.handleChat)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-session",
		Method:      http.MethodDelete,
		Path:        "/api/v1/chat/{session_id}",
		Summary:     "Delete a conversation session",
		Tags:        []string{"chat"},
	}, s.handleDeleteSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)
}

// --- Request/Response types for huma ---

type chatInput struct {
	Body struct {
		// A missing or empty message fails schema validation with 422 before
		// reaching the handler. Whitespace-only input passes the schema and
		// maps to 400 in chatError.
		Message   string `json:"message" minLength:"1" doc:"User message for the agent"`
		SessionID string `json:"session_id,omitempty" doc:"Session to continue; omit to start a new one"`
	}
}

// UsageBody reports token consumption of the final model response.
type UsageBody struct {
	InputTokens  int `json:"input_tokens" doc:"Prompt tokens of the final model call"`
	OutputTokens int `json:"output_tokens" doc:"Completion tokens of the final model call"`
}

// ChatBody is the JSON body of a completed exchange.
type ChatBody struct {
	SessionID string    `json:"session_id" doc:"Session id to send with the next message"`
	Reply     string    `json:"reply" doc:"Agent reply text"`
	Usage     UsageBody `json:"usage"`
}

type chatOutput struct {
	Body ChatBody
}

type deleteSessionInput struct {
	SessionID string `path:"session_id"`
}

// DeleteBody acknowledges a session deletion.
type DeleteBody struct {
	OK bool `json:"ok"`
}

type deleteSessionOutput struct {
	Body DeleteBody
}

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Configured     bool `json:"configured" doc:"Whether a usable model provider is configured"`
	ActiveSessions int  `json:"active_sessions" doc:"Number of live sessions"`
}

type healthOutput struct {
	Body HealthBody
}

// --- Handlers ---

func (s *Server) handleChat(ctx context.Context, input *chatInput) (*chatOutput, error) {
	result, err := s.deps.Loop.Exchange(ctx, agent.ExchangeRequest{
		SessionID: input.Body.SessionID,
		Message:   input.Body.Message,
	})
	if err != nil {
		return nil, s.chatError(err)
	}

	out := &chatOutput{}
	out.Body = ChatBody{
		SessionID: result.SessionID,
		Reply:     result.Reply,
		Usage: UsageBody{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		},
	}
	return out, nil
}

// chatError maps loop errors onto HTTP statuses without leaking internals.
func (s *Server) chatError(err error) error {
	s.deps.Logger.Error("chat exchange failed", "error", err)

	switch {
	case auroraerr.IsInvalidInput(err):
		return huma.Error400BadRequest(err.Error())
	case auroraerr.IsNotConfigured(err):
		return huma.Error503ServiceUnavailable("no model provider is configured")
	case auroraerr.IsUpstreamFailure(err):
		return huma.Error502BadGateway("model provider request failed")
	default:
		return huma.Error500InternalServerError("processing message", err)
	}
}

func (s *Server) handleDeleteSession(ctx context.Context, input *deleteSessionInput) (*deleteSessionOutput, error) {
	// Deleting an unknown session is not an error; the outcome the caller
	// asked for already holds.
	if err := s.deps.Sessions.Delete(ctx, input.SessionID); err != nil {
		return nil, huma.Error500InternalServerError("deleting session", err)
	}
	return &deleteSessionOutput{Body: DeleteBody{OK: true}}, nil
}

func (s *Server) handleHealth(ctx context.Context, _ *struct{}) (*healthOutput, error) {
	count, err := s.deps.Sessions.Count(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("counting sessions", err)
	}

	return &healthOutput{Body: HealthBody{
		Configured:     s.deps.Providers.Configured(),
		ActiveSessions: count,
	}}, nil
}
