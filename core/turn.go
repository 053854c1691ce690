package core

import (
	"fmt"
	"time"
)

// Role identifies the conversational role of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// TurnKind distinguishes ordinary messages from bookkeeping turns.
type TurnKind string

const (
	// TurnMessage is a user input or agent answer.
	TurnMessage TurnKind = "message"
	// TurnTransition marks a handoff between two agents.
	TurnTransition TurnKind = "transition"
	// TurnToolCall records a tool call issued by an agent.
	TurnToolCall TurnKind = "tool_call"
	// TurnToolResult records the (JSON) result or error of a tool call.
	TurnToolResult TurnKind = "tool_result"
)

// Speaker used for transition markers.
const RouterSpeaker = "router"

// Metadata keys used on turns.
const (
	MetaHandoffTo = "handoff_to"
	MetaFrom      = "from"
	MetaTo        = "to"
	MetaTool      = "tool"
	MetaCallID    = "call_id"
	MetaError     = "error"
)

// Turn is a single entry of a transcript. Turns are values; the transcript
// hands out copies so a stored turn can never be changed.
type Turn struct {
	Index     int               `json:"index"`
	Speaker   string            `json:"speaker"`
	Role      Role              `json:"role"`
	Kind      TurnKind          `json:"kind"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// UserTurn builds a user message turn.
func UserTurn(content string) Turn {
	return Turn{Speaker: string(RoleUser), Role: RoleUser, Kind: TurnMessage, Content: content}
}

// AgentTurn builds an assistant message turn spoken by agent.
func AgentTurn(agent, content string) Turn {
	return Turn{Speaker: agent, Role: RoleAssistant, Kind: TurnMessage, Content: content}
}

// TransitionTurn builds the marker appended when control moves from one agent to another.
func TransitionTurn(from, to, reason string) Turn {
	content := fmt.Sprintf("handoff: %s -> %s", from, to)
	if reason != "" {
		content += " (" + reason + ")"
	}

	return Turn{
		Speaker:  RouterSpeaker,
		Role:     RoleSystem,
		Kind:     TurnTransition,
		Content:  content,
		Metadata: map[string]string{MetaFrom: from, MetaTo: to},
	}
}

// ToolCallTurn records a tool call issued by agent.
func ToolCallTurn(agent, callID, tool, arguments string) Turn {
	return Turn{
		Speaker:  agent,
		Role:     RoleAssistant,
		Kind:     TurnToolCall,
		Content:  arguments,
		Metadata: map[string]string{MetaTool: tool, MetaCallID: callID},
	}
}

// ToolResultTurn records the result of a tool call. A non-empty errMsg marks
// a failed call.
func ToolResultTurn(agent, callID, tool, result, errMsg string) Turn {
	md := map[string]string{MetaTool: tool, MetaCallID: callID}
	if errMsg != "" {
		md[MetaError] = errMsg
		result = errMsg
	}

	return Turn{Speaker: agent, Role: RoleTool, Kind: TurnToolResult, Content: result, Metadata: md}
}

// IsTransition reports whether the turn is a handoff marker.
func (t Turn) IsTransition() bool { return t.Kind == TurnTransition }

func (t Turn) clone() Turn {
	if t.Metadata != nil {
		md := make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			md[k] = v
		}

		t.Metadata = md
	}

	return t
}
