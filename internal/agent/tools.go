// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/anamnesis-dev/aurora/internal/cases"
	"github.com/anamnesis-dev/aurora/internal/observability"
	"github.com/anamnesis-dev/aurora/internal/provider"
	"github.com/anamnesis-dev/aurora/internal/store"
)

// toolHandler executes one tool call. The returned payload is marshaled to
// JSON by the dispatcher; a returned error becomes a structured error payload.
type toolHandler func(ctx context.Context, args json.RawMessage) (any, error)

// ToolRegistry holds the fixed set of tools declared at startup. It is
// immutable after construction, so lookups need no locking.
type ToolRegistry struct {
	definitions []provider.ToolDefinition
	handlers    map[string]toolHandler
}

// NewToolRegistry builds the registry of the five platform tools backed by
// the given case store.
func NewToolRegistry(caseStore cases.Store) *ToolRegistry {
	b := &builtinTools{cases: caseStore}

	return &ToolRegistry{
		definitions: builtinDefinitions(),
		handlers: map[string]toolHandler{
			ToolListMedicalCases:      b.listMedicalCases,
			ToolGetCaseDetail:         b.getCaseDetail,
			ToolAnalyzeScan:           b.analyzeScan,
			ToolAnatomyModel:          b.anatomyModel,
			ToolDifferentialDiagnosis: b.differentialDiagnosis,
		},
	}
}

// Definitions returns the tool declarations in registration order for
// inclusion in ChatRequest.Tools. Callers must not mutate the result.
func (r *ToolRegistry) Definitions() []provider.ToolDefinition {
	return r.definitions
}

// Lookup returns the handler for the given tool name.
func (r *ToolRegistry) Lookup(name string) (toolHandler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// ToolDispatcher executes tool calls against the registry. Every outcome,
// including an unknown tool name, is reported back as a store.ToolResult so
// the model can see what happened; Dispatch never returns an error.
type ToolDispatcher struct {
	registry *ToolRegistry
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewToolDispatcher creates a dispatcher over the given registry.
// Metrics may be nil.
func NewToolDispatcher(registry *ToolRegistry, metrics *observability.Metrics, logger *slog.Logger) *ToolDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolDispatcher{
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Dispatch runs one tool call and returns its result. A single attempt, no
// retries; failures are encoded as {"error": reason} payloads.
func (d *ToolDispatcher) Dispatch(ctx context.Context, call provider.ToolCall) store.ToolResult {
	handler, ok := d.registry.Lookup(call.Name)
	if !ok {
		d.logger.Warn("unknown tool requested", "tool", call.Name)
		d.count(call.Name, "unknown")
		return errorResult(call.ID, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	args := call.Arguments
	if args == "" {
		args = "{}"
	}

	payload, err := handler(ctx, json.RawMessage(args))
	if err != nil {
		d.logger.Warn("tool call failed", "tool", call.Name, "error", err)
		d.count(call.Name, "error")
		return errorResult(call.ID, err.Error())
	}

	content, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("tool payload not serializable", "tool", call.Name, "error", err)
		d.count(call.Name, "error")
		return errorResult(call.ID, fmt.Sprintf("serializing result: %s", err))
	}

	d.count(call.Name, "ok")
	return store.ToolResult{
		InvocationID: call.ID,
		Content:      string(content),
	}
}

func (d *ToolDispatcher) count(tool, outcome string) {
	if d.metrics != nil {
		d.metrics.ToolDispatches.WithLabelValues(tool, outcome).Inc()
	}
}

func errorResult(invocationID, reason string) store.ToolResult {
	content, _ := json.Marshal(map[string]string{"error": reason})
	return store.ToolResult{
		InvocationID: invocationID,
		Content:      string(content),
		IsError:      true,
	}
}
