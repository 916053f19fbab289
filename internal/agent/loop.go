// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/anamnesis-dev/aurora/internal/observability"
	"github.com/anamnesis-dev/aurora/internal/provider"
	"github.com/anamnesis-dev/aurora/internal/store"
	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

// DefaultMaxIterations bounds the model round trips in one exchange. Each
// iteration is one model call plus the dispatch of whatever tools it asked
// for; a model that keeps requesting tools is cut off here.
const DefaultMaxIterations = 8

// iterationLimitReply is returned when the ceiling is hit. The exchange
// completes normally with this text instead of failing.
const iterationLimitReply = "Не удалось завершить обработку запроса за отведённое число шагов. " +
	"Попробуйте переформулировать вопрос."

// ExchangeRequest is one inbound user message.
type ExchangeRequest struct {
	SessionID string // empty means start a new session
	Message   string
}

// ExchangeResult is the completed exchange.
type ExchangeResult struct {
	SessionID string
	Reply     string
	Usage     provider.Usage
}

// LoopConfig holds dependencies for the Loop.
type LoopConfig struct {
	Sessions      store.SessionStore
	Providers     *provider.Registry
	Registry      *ToolRegistry
	Dispatcher    *ToolDispatcher
	Metrics       *observability.Metrics
	Logger        *slog.Logger
	MaxIterations int
	MaxTokens     int
	SessionTTL    time.Duration
}

// Loop drives the conversation: it alternates between calling the model and
// running the tools the model asked for, until the model answers in plain
// text.
type Loop struct {
	sessions      store.SessionStore
	providers     *provider.Registry
	registry      *ToolRegistry
	dispatcher    *ToolDispatcher
	metrics       *observability.Metrics
	logger        *slog.Logger
	locks         *sessionLocks
	maxIterations int
	maxTokens     int
	sessionTTL    time.Duration
}

// NewLoop creates a Loop with the given dependencies.
func NewLoop(cfg LoopConfig) *Loop {
	maxIters := cfg.MaxIterations
	if maxIters <= 0 {
		maxIters = DefaultMaxIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = store.SessionTTL
	}

	return &Loop{
		sessions:      cfg.Sessions,
		providers:     cfg.Providers,
		registry:      cfg.Registry,
		dispatcher:    cfg.Dispatcher,
		metrics:       cfg.Metrics,
		logger:        logger,
		locks:         newSessionLocks(),
		maxIterations: maxIters,
		maxTokens:     cfg.MaxTokens,
		sessionTTL:    ttl,
	}
}

// Exchange processes one user message end to end: resolve the session, run
// the tool loop until the model produces a plain-text reply, persist the
// grown transcript, and return the reply with the final response's usage.
func (l *Loop) Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, auroraerr.New(auroraerr.CodeAgentLoopInvalidInput, "message must not be blank",
			auroraerr.FieldSessionID(req.SessionID))
	}

	// Opportunistic idle-session cleanup, the way the platform prunes on
	// every chat request.
	if pruned, err := l.sessions.Prune(ctx, time.Now(), l.sessionTTL); err != nil {
		l.logger.Warn("session prune failed", "error", err)
	} else if pruned > 0 {
		l.logger.Debug("pruned idle sessions", "count", pruned)
		if l.metrics != nil {
			l.metrics.PrunedSessions.Add(float64(pruned))
		}
	}

	// Resolve the session id first, then serialize on it. The transcript is
	// re-read under the lock so concurrent exchanges never clobber each
	// other's turns.
	session, _, err := l.sessions.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		return nil, auroraerr.Wrap(err, auroraerr.CodeAgentLoopFailure, "resolving session",
			auroraerr.FieldSessionID(req.SessionID))
	}

	release := l.locks.acquire(session.ID)
	defer release()

	session, _, err = l.sessions.GetOrCreate(ctx, session.ID)
	if err != nil {
		return nil, auroraerr.Wrap(err, auroraerr.CodeAgentLoopFailure, "reloading session",
			auroraerr.FieldSessionID(session.ID))
	}

	result, err := l.run(ctx, session, req.Message)
	if l.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		l.metrics.Exchanges.WithLabelValues(outcome).Inc()
	}
	return result, err
}

// run executes the bounded tool loop over a locked session.
func (l *Loop) run(ctx context.Context, session *store.Session, message string) (*ExchangeResult, error) {
	prov, model, err := l.providers.Default()
	if err != nil {
		return nil, err
	}

	session.Transcript = append(session.Transcript, store.Turn{
		Role:      store.TurnRoleUser,
		Content:   message,
		CreatedAt: time.Now(),
	})

	var usage provider.Usage

	for iteration := 0; iteration < l.maxIterations; iteration++ {
		eventCh, err := prov.Chat(ctx, provider.ChatRequest{
			Model:        model,
			Messages:     transcriptMessages(session.Transcript),
			Tools:        l.registry.Definitions(),
			SystemPrompt: systemPrompt,
			Options:      provider.ChatOptions{MaxTokens: l.maxTokens},
		})
		if err != nil {
			return nil, auroraerr.Wrap(err, auroraerr.CodeProviderUpstreamFailure, "chat call",
				auroraerr.FieldProvider(prov.Name()), auroraerr.FieldSessionID(session.ID))
		}

		text, toolCalls, callUsage, streamErr := processEvents(eventCh)
		if streamErr != nil {
			// Abort without saving; the transcript stays at its last
			// consistent state.
			return nil, auroraerr.Wrap(streamErr, auroraerr.CodeProviderUpstreamFailure, "stream error",
				auroraerr.FieldProvider(prov.Name()), auroraerr.FieldSessionID(session.ID))
		}
		if callUsage != nil {
			usage = *callUsage
		}

		if len(toolCalls) == 0 {
			// Terminal: the model answered in plain text.
			session.Transcript = append(session.Transcript, store.Turn{
				Role:      store.TurnRoleAssistant,
				Content:   text,
				CreatedAt: time.Now(),
			})
			if err := l.sessions.Save(ctx, session); err != nil {
				return nil, auroraerr.Wrap(err, auroraerr.CodeAgentLoopFailure, "saving session",
					auroraerr.FieldSessionID(session.ID))
			}
			l.observeIterations(iteration + 1)
			return &ExchangeResult{
				SessionID: session.ID,
				Reply:     text,
				Usage:     usage,
			}, nil
		}

		// The model asked for tools: record its turn with the invocations in
		// response order, dispatch each in order, and ferry every result
		// back in a single carrier turn.
		invocations := make([]store.ToolInvocation, 0, len(toolCalls))
		for _, tc := range toolCalls {
			invocations = append(invocations, store.ToolInvocation{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Arguments,
			})
		}
		session.Transcript = append(session.Transcript, store.Turn{
			Role:      store.TurnRoleAssistant,
			Content:   text,
			ToolCalls: invocations,
			CreatedAt: time.Now(),
		})

		results := make([]store.ToolResult, 0, len(toolCalls))
		for _, tc := range toolCalls {
			results = append(results, l.dispatcher.Dispatch(ctx, *tc))
		}
		session.Transcript = append(session.Transcript, store.Turn{
			Role:        store.TurnRoleTool,
			ToolResults: results,
			CreatedAt:   time.Now(),
		})
	}

	// Ceiling hit: fail closed with a fixed reply instead of erroring.
	l.logger.Warn("tool loop hit iteration ceiling",
		"session_id", session.ID, "max_iterations", l.maxIterations)
	session.Transcript = append(session.Transcript, store.Turn{
		Role:      store.TurnRoleAssistant,
		Content:   iterationLimitReply,
		CreatedAt: time.Now(),
	})
	if err := l.sessions.Save(ctx, session); err != nil {
		return nil, auroraerr.Wrap(err, auroraerr.CodeAgentLoopFailure, "saving session",
			auroraerr.FieldSessionID(session.ID))
	}
	l.observeIterations(l.maxIterations)
	return &ExchangeResult{
		SessionID: session.ID,
		Reply:     iterationLimitReply,
		Usage:     usage,
	}, nil
}

func (l *Loop) observeIterations(n int) {
	if l.metrics != nil {
		l.metrics.LoopIterations.Observe(float64(n))
	}
}

// transcriptMessages converts stored turns into the provider message shape.
func transcriptMessages(turns []store.Turn) []provider.Message {
	msgs := make([]provider.Message, 0, len(turns))
	for _, t := range turns {
		msg := provider.Message{
			Role:    provider.MessageRole(t.Role),
			Content: t.Content,
		}
		for _, inv := range t.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{
				ID:        inv.ID,
				Name:      inv.Name,
				Arguments: inv.Arguments,
			})
		}
		for _, res := range t.ToolResults {
			msg.ToolResults = append(msg.ToolResults, provider.ToolResultInput{
				InvocationID: res.InvocationID,
				Content:      res.Content,
				IsError:      res.IsError,
			})
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// processEvents drains the provider stream, buffering text deltas and
// collecting tool calls and usage. A stream error discards partial output.
func processEvents(eventCh <-chan provider.ChatEvent) (string, []*provider.ToolCall, *provider.Usage, error) {
	var buf strings.Builder
	var toolCalls []*provider.ToolCall
	var usage *provider.Usage
	var streamErr error

	for ev := range eventCh {
		switch ev.Type {
		case provider.EventTypeTextDelta:
			buf.WriteString(ev.Text)
		case provider.EventTypeToolCall:
			if ev.ToolCall != nil {
				toolCalls = append(toolCalls, ev.ToolCall)
			}
		case provider.EventTypeUsage:
			if ev.Usage != nil {
				usage = ev.Usage
			}
		case provider.EventTypeDone:
			if ev.Usage != nil {
				usage = ev.Usage
			}
		case provider.EventTypeError:
			streamErr = auroraerr.New(auroraerr.CodeProviderUpstreamFailure, ev.Error)
		}
	}

	return buf.String(), toolCalls, usage, streamErr
}
