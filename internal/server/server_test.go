// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamnesis-dev/aurora/internal/agent"
	"github.com/anamnesis-dev/aurora/internal/cases"
	"github.com/anamnesis-dev/aurora/internal/provider"
	"github.com/anamnesis-dev/aurora/internal/server"
	"github.com/anamnesis-dev/aurora/internal/store"
	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

// replayProvider answers every Chat call with the same scripted events.
type replayProvider struct {
	events []provider.ChatEvent
}

func (p *replayProvider) Name() string                     { return "replay" }
func (p *replayProvider) Available(_ context.Context) bool { return true }
func (p *replayProvider) Close() error                     { return nil }

func (p *replayProvider) Chat(_ context.Context, _ provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	ch := make(chan provider.ChatEvent, len(p.events)+1)
	for _, ev := range p.events {
		ch <- ev
	}
	ch <- provider.ChatEvent{Type: provider.EventTypeDone}
	close(ch)
	return ch, nil
}

type testEnv struct {
	srv      *server.Server
	sessions store.SessionStore
}

func newTestEnv(t *testing.T, events []provider.ChatEvent, configured bool) *testEnv {
	t.Helper()

	registry := provider.NewRegistry("replay/test-model")
	if configured {
		registry.Register(&replayProvider{events: events})
	}

	sessions := store.NewMemoryStore()
	toolRegistry := agent.NewToolRegistry(cases.NewMemoryStore())
	loop := agent.NewLoop(agent.LoopConfig{
		Sessions:   sessions,
		Providers:  registry,
		Registry:   toolRegistry,
		Dispatcher: agent.NewToolDispatcher(toolRegistry, nil, nil),
	})

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, server.Deps{
		Loop:      loop,
		Providers: registry,
		Sessions:  sessions,
	})
	require.NoError(t, err)

	return &testEnv{srv: srv, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func replyEvents(text string) []provider.ChatEvent {
	return []provider.ChatEvent{
		{Type: provider.EventTypeTextDelta, Text: text},
		{Type: provider.EventTypeUsage, Usage: &provider.Usage{InputTokens: 30, OutputTokens: 12}},
	}
}

func TestServer_New_EmptyListenAddr(t *testing.T) {
	_, err := server.New(server.Config{}, server.Deps{})
	require.Error(t, err)
	assert.True(t, auroraerr.HasCode(err, auroraerr.CodeServerStartFailure))
	assert.Contains(t, err.Error(), "listen address is required")
}

func TestChat_NewSession(t *testing.T) {
	env := newTestEnv(t, replyEvents("Здравствуйте!"), true)

	w := env.do(t, http.MethodPost, "/api/v1/chat", `{"message":"привет"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body server.ChatBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.SessionID)
	assert.Equal(t, "Здравствуйте!", body.Reply)
	assert.Equal(t, 30, body.Usage.InputTokens)
	assert.Equal(t, 12, body.Usage.OutputTokens)
}

func TestChat_ResumesSession(t *testing.T) {
	env := newTestEnv(t, replyEvents("ответ"), true)

	w := env.do(t, http.MethodPost, "/api/v1/chat", `{"message":"раз"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var first server.ChatBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	w = env.do(t, http.MethodPost, "/api/v1/chat",
		`{"message":"два","session_id":"`+first.SessionID+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var second server.ChatBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.SessionID, second.SessionID)

	session, _, err := env.sessions.GetOrCreate(context.Background(), first.SessionID)
	require.NoError(t, err)
	assert.Len(t, session.Transcript, 4)
}

func TestChat_EmptyMessageRejected(t *testing.T) {
	env := newTestEnv(t, nil, true)

	w := env.do(t, http.MethodPost, "/api/v1/chat", `{"message":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "schema validation rejects the empty string")
}

func TestChat_BlankMessageRejected(t *testing.T) {
	env := newTestEnv(t, nil, true)

	w := env.do(t, http.MethodPost, "/api/v1/chat", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_NotConfigured(t *testing.T) {
	env := newTestEnv(t, nil, false)

	w := env.do(t, http.MethodPost, "/api/v1/chat", `{"message":"привет"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChat_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t, []provider.ChatEvent{
		{Type: provider.EventTypeError, Error: "model overloaded"},
	}, true)

	w := env.do(t, http.MethodPost, "/api/v1/chat", `{"message":"привет"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "model overloaded", "upstream detail stays out of the response")
}

func TestDeleteSession_Idempotent(t *testing.T) {
	env := newTestEnv(t, replyEvents("ок"), true)

	// Unknown session still acknowledges.
	w := env.do(t, http.MethodDelete, "/api/v1/chat/does-not-exist", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body server.DeleteBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)

	// Existing session is removed.
	w = env.do(t, http.MethodPost, "/api/v1/chat", `{"message":"привет"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var chat server.ChatBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chat))

	w = env.do(t, http.MethodDelete, "/api/v1/chat/"+chat.SessionID, "")
	require.Equal(t, http.StatusOK, w.Code)

	count, err := env.sessions.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestHealth(t *testing.T) {
	t.Run("configured with sessions", func(t *testing.T) {
		env := newTestEnv(t, replyEvents("ок"), true)

		w := env.do(t, http.MethodPost, "/api/v1/chat", `{"message":"привет"}`)
		require.Equal(t, http.StatusOK, w.Code)

		w = env.do(t, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body server.HealthBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Configured)
		assert.Equal(t, 1, body.ActiveSessions)
	})

	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t, nil, false)

		w := env.do(t, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body server.HealthBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Configured)
		assert.Equal(t, 0, body.ActiveSessions)
	})
}

func TestOpenAPISpecIncludesChatRoutes(t *testing.T) {
	env := newTestEnv(t, nil, true)

	w := env.do(t, http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/chat")
	assert.Contains(t, w.Body.String(), "/api/v1/chat/{session_id}")
}
