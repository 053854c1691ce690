package core

import (
	"context"

	"github.com/hupe1980/travelmesh/logging"
)

// ToolContext provides a constrained surface for tool implementations invoked
// by an agent: cancellation, identifiers, logging and session state.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent RunContext
// and unique functionCallID.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		loggerAdapter:  runCtx.loggerAdapter.with("function_call_id", functionCallID),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the agent name associated with the tool invocation.
func (tc *ToolContext) AgentName() string { return tc.runCtx.Agent.Name }

// GetState retrieves the session state associated with the given key.
func (tc *ToolContext) GetState(k string) (any, bool) { return tc.runCtx.GetState(k) }

// SetState records a session state mutation.
func (tc *ToolContext) SetState(k string, v any) {
	tc.runCtx.SetState(k, v)
	tc.LogDebug("tool.state.set", "agent", tc.AgentName(), "key", k)
}

// StateKeys returns the keys currently present in session state.
func (tc *ToolContext) StateKeys() []string {
	snap := tc.runCtx.State()
	keys := make([]string, 0, len(snap))

	for k := range snap {
		keys = append(keys, k)
	}

	return keys
}
