package tool

import (
	"fmt"
	"sort"

	"github.com/hupe1980/travelmesh/core"
)

// StateTool lets agents remember facts (destination, dates, traveller name)
// in session state so later agents in the handoff chain can read them.
type StateTool struct{}

// NewStateTool creates the session_state tool.
func NewStateTool() *StateTool { return &StateTool{} }

// Name returns the tool identifier.
func (t *StateTool) Name() string { return "session_state" }

// Description returns the tool description.
func (t *StateTool) Description() string {
	return "Reads and writes shared session facts. Operations: get (key), set (key, value), list."
}

// Parameters returns the JSON schema for tool parameters.
func (t *StateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"enum":        []string{"get", "set", "list"},
				"description": "The state operation to perform",
			},
			"key":   map[string]any{"type": "string", "description": "State key"},
			"value": map[string]any{"type": "string", "description": "Value for set"},
		},
		"required": []string{"operation"},
	}
}

// Call executes the requested operation.
func (t *StateTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	op, _ := args["operation"].(string)
	key, _ := args["key"].(string)

	switch op {
	case "get":
		if key == "" {
			return nil, fmt.Errorf("key is required for get")
		}

		v, ok := tc.GetState(key)

		return map[string]any{"key": key, "value": v, "exists": ok}, nil
	case "set":
		if key == "" {
			return nil, fmt.Errorf("key is required for set")
		}

		tc.SetState(key, args["value"])

		return map[string]any{"key": key, "value": args["value"]}, nil
	case "list":
		return map[string]any{"keys": stateKeys(tc)}, nil
	default:
		return nil, fmt.Errorf("unsupported operation %q", op)
	}
}

func stateKeys(tc *core.ToolContext) []string {
	keys := tc.StateKeys()
	sort.Strings(keys)

	return keys
}
