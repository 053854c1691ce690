package tool

import (
	"fmt"
	"strings"

	"github.com/hupe1980/travelmesh/core"
)

// HandoffPrefix prefixes the names of generated handoff tools.
const HandoffPrefix = "handoff_to_"

// handoffTool lets a model request transfer of control to one specific agent.
// The executor, not the tool, performs the transfer; calling the tool only
// records the request.
type handoffTool struct {
	target      string
	description string
}

// NewHandoffTool constructs the handoff tool for target. An empty description
// yields a generic one.
func NewHandoffTool(target, description string) Tool {
	if description == "" {
		description = fmt.Sprintf("Transfer the conversation to the %s agent.", target)
	} else {
		description = fmt.Sprintf("Transfer the conversation to the %s agent: %s", target, description)
	}

	return &handoffTool{target: target, description: description}
}

// HandoffTarget returns the target agent encoded in a handoff tool name.
func HandoffTarget(toolName string) (string, bool) {
	if !strings.HasPrefix(toolName, HandoffPrefix) {
		return "", false
	}

	target := strings.TrimPrefix(toolName, HandoffPrefix)

	return target, target != ""
}

func (t *handoffTool) Name() string { return HandoffPrefix + t.target }

func (t *handoffTool) Description() string { return t.description }

func (t *handoffTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{"type": "string", "description": "Why the other agent is better suited"},
		},
	}
}

func (t *handoffTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	reason, _ := args["reason"].(string)
	tc.LogInfo("tool.handoff.request", "from_agent", tc.AgentName(), "to_agent", t.target, "function_call_id", tc.FunctionCallID())

	return map[string]any{"handoff": true, "agent": t.target, "reason": reason}, nil
}
