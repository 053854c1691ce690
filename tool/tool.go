// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, side-effects) with schema
// validated arguments, consistent error handling and metadata for LLM guidance.
package tool

import (
	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/internal/util"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are registered with agents to enable function calling, allowing
// agents to perform actions beyond text generation such as API lookups,
// bookings or calculations.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names)
//   - Define a JSON schema for parameters
//   - Return JSON-serializable results
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the LLM to help it decide when to call the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already decoded arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// NewToolError creates a *core.ToolInvocationError with the specified details.
func NewToolError(tool, message, code string) *core.ToolInvocationError {
	return &core.ToolInvocationError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
