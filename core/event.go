package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an execution event.
type EventType string

const (
	// EventInvoked is emitted right before an agent runs.
	EventInvoked EventType = "invoked"
	// EventComplete is emitted when an agent invocation returns.
	EventComplete EventType = "complete"
	// EventStreamToken carries a partial model token.
	EventStreamToken EventType = "stream_token"
	// EventOutput is emitted when an agent turn is recorded.
	EventOutput EventType = "output"
	// EventFinal is emitted once per workflow with the final answer.
	EventFinal EventType = "final"
	// EventHandoff records a successful transition between agents.
	EventHandoff EventType = "handoff"
	// EventToolCall records a tool call issued by an agent.
	EventToolCall EventType = "tool_call"
	// EventToolResult records the outcome of a tool call.
	EventToolResult EventType = "tool_result"
	// EventError records a fatal workflow error.
	EventError EventType = "error"
)

// Event is a structured, immutable execution record delivered to a Sink.
// ExecutorID names the agent (or router) that produced it; Branch is set for
// events produced inside a concurrent branch.
type Event struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	ExecutorID string    `json:"executor_id"`
	Branch     string    `json:"branch,omitempty"`
	Type       EventType `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload,omitempty"`
}

// NewEvent creates an event stamped with a fresh id and the current UTC time.
func NewEvent(sessionID, executorID string, typ EventType, payload any) Event {
	return Event{
		ID:         NewID(),
		SessionID:  sessionID,
		ExecutorID: executorID,
		Type:       typ,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// NewID returns a random identifier.
func NewID() string { return uuid.NewString() }

// OutputPayload is attached to EventOutput.
type OutputPayload struct {
	Agent   string `json:"agent"`
	Text    string `json:"text"`
	Handoff string `json:"handoff,omitempty"`
}

// FinalPayload is attached to EventFinal.
type FinalPayload struct {
	Agent  string `json:"agent"`
	Output string `json:"output"`
	Hops   int    `json:"hops"`
}

// HandoffPayload is attached to EventHandoff.
type HandoffPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
	Hop    int    `json:"hop"`
}

// ToolCallPayload is attached to EventToolCall.
type ToolCallPayload struct {
	CallID    string `json:"call_id"`
	Tool      string `json:"tool"`
	Arguments string `json:"arguments"`
}

// ToolResultPayload is attached to EventToolResult.
type ToolResultPayload struct {
	CallID string `json:"call_id"`
	Tool   string `json:"tool"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ErrorPayload is attached to EventError.
type ErrorPayload struct {
	Agent string `json:"agent"`
	Error string `json:"error"`
}

// Sink receives execution events. Emit must not block the caller for long;
// implementations that do I/O should buffer or drop.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev Event)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev Event) { f(ev) }

// NopSink discards all events.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Event) {}
