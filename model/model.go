package model

import (
	"context"

	"github.com/hupe1980/travelmesh/core"
)

// ToolDefinition exposes one callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition names a function and its JSON Schema parameters.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewFunctionDefinition builds a function-typed ToolDefinition.
func NewFunctionDefinition(name, description string, parameters map[string]any) ToolDefinition {
	return ToolDefinition{
		Type:     "function",
		Function: FunctionDefinition{Name: name, Description: description, Parameters: parameters},
	}
}

// Request is the provider-neutral input built by a flow for one agent turn.
// Handoff tools appear in Tools like any other function.
type Request struct {
	Agent        string           `json:"agent,omitempty"`
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// ToolNames returns the function names in declaration order.
func (r Request) ToolNames() []string {
	names := make([]string, 0, len(r.Tools))
	for _, td := range r.Tools {
		names = append(names, td.Function.Name)
	}

	return names
}

// HasTool reports whether a function named name is declared.
func (r Request) HasTool(name string) bool {
	for _, td := range r.Tools {
		if td.Function.Name == name {
			return true
		}
	}

	return false
}

// TokenUsage captures token counts of one response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a partial or final chunk emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // stop, length, tool_calls
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info describes a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model drives generation for agents. Generate streams responses until the
// response channel closes; a failure is reported on the error channel.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)
	Info() Info
}
