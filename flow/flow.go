// Package flow drives the model turn loop of LLM-backed agents.
//
// A flow builds a model request (instructions, conversation, tools, handoff
// tools), calls the model, executes requested tools and feeds their results
// back until the model answers or asks to hand off. Request processors keep
// each concern separate and pluggable.
package flow

import (
	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/model"
	"github.com/hupe1980/travelmesh/tool"
)

// Flow defines the interface for agent execution flows.
type Flow interface {
	// Run executes one agent invocation and returns its result.
	Run(runCtx *core.RunContext) (core.Result, error)
}

// FlowAgent defines what a flow needs from the agent it drives.
type FlowAgent interface {
	// GetName returns the agent's display name.
	GetName() string

	// GetLLM returns the language model instance.
	GetLLM() model.Model

	// ResolveInstructions returns the raw (unrendered) instructions.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// GetTools returns the registered tools for function calling.
	GetTools() *tool.Registry

	// IsStreamingEnabled returns whether streaming responses are enabled.
	IsStreamingEnabled() bool

	// GetOutputKey returns the session state key for saving answers.
	GetOutputKey() string

	// MaxHistoryMessages returns the maximum number of transcript messages sent to the model.
	MaxHistoryMessages() int

	// MaxModelCalls bounds model round trips per invocation (0 = unlimited).
	MaxModelCalls() int
}

// RequestProcessor processes the request before sending it to the LLM.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request before LLM execution.
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}
