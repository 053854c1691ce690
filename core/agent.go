package core

import (
	"fmt"
	"time"
)

// Agent defines the contract every participant in a workflow implements.
//
// An agent receives the shared conversation through a RunContext and returns
// either a terminal answer or a HandoffRequest naming the next agent. How the
// decision is made (model call, rules, a human) is opaque to the router.
//
// Implementations must:
//   - Respect context cancellation
//   - Treat the transcript as read-only history (the executor records turns)
//   - Be safe for sequential reuse across sessions
type Agent interface {
	Name() string
	Description() string
	Run(runCtx *RunContext) (Result, error)
}

// Profiler is optionally implemented by agents that can describe their
// instructions and tools for tracing.
type Profiler interface {
	Instructions() string
	ToolNames() []string
}

// AgentInfo carries identifying details about an agent used in contexts & events.
// Name is the external identifier; Type categorizes implementation (e.g. "model", "func").
type AgentInfo struct{ Name, Type string }

// HandoffRequest asks the router to transfer control to Target.
type HandoffRequest struct {
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

// Result is the outcome of a single agent invocation. A nil Handoff marks a
// terminal answer.
type Result struct {
	Output  string          `json:"output"`
	Handoff *HandoffRequest `json:"handoff,omitempty"`
}

// IsHandoff reports whether the result requests a transfer of control.
func (r Result) IsHandoff() bool { return r.Handoff != nil }

// Final returns a terminal result.
func Final(output string) Result { return Result{Output: output} }

// Handoff returns a result requesting transfer to target.
func Handoff(target, reason string) Result {
	return Result{Handoff: &HandoffRequest{Target: target, Reason: reason}}
}

// InvokedPayload is attached to EventInvoked.
type InvokedPayload struct {
	Agent        string   `json:"agent"`
	Input        string   `json:"input"`
	Instructions string   `json:"instructions,omitempty"`
	Tools        []string `json:"tools,omitempty"`
	Targets      []string `json:"targets,omitempty"`
}

// CompletePayload is attached to EventComplete.
type CompletePayload struct {
	Agent    string        `json:"agent"`
	Duration time.Duration `json:"duration"`
	Handoff  string        `json:"handoff,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// InvokeAgent runs a with the given context, emitting invoked and complete
// events around the call. Panics inside the agent are converted to errors.
func InvokeAgent(runCtx *RunContext, a Agent) (res Result, err error) {
	payload := InvokedPayload{Agent: a.Name(), Input: runCtx.Input(), Targets: runCtx.HandoffTargets()}
	if p, ok := a.(Profiler); ok {
		payload.Instructions = p.Instructions()
		payload.Tools = p.ToolNames()
	}

	runCtx.Emit(EventInvoked, payload)

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %s panicked: %v", a.Name(), r)
		}

		done := CompletePayload{Agent: a.Name(), Duration: time.Since(start)}
		if err != nil {
			done.Error = err.Error()
		} else if res.Handoff != nil {
			done.Handoff = res.Handoff.Target
		}

		runCtx.Emit(EventComplete, done)
	}()

	return a.Run(runCtx)
}

// InfoOf returns the AgentInfo for a. Agents may report a type label by
// implementing Type() string.
func InfoOf(a Agent) AgentInfo {
	info := AgentInfo{Name: a.Name(), Type: "agent"}
	if typed, ok := a.(interface{ Type() string }); ok {
		info.Type = typed.Type()
	}

	return info
}
