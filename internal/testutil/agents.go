package testutil

import (
	"sync"

	"github.com/hupe1980/travelmesh/core"
)

// StepFunc computes one scripted agent result.
type StepFunc func(runCtx *core.RunContext) (core.Result, error)

// ScriptedAgent replays a fixed list of steps, repeating the last step once
// the script is exhausted. It records how many turns it saw per invocation.
type ScriptedAgent struct {
	name  string
	steps []StepFunc

	mu   sync.Mutex
	seen []int
}

// NewScriptedAgent creates an agent executing steps in order.
func NewScriptedAgent(name string, steps ...StepFunc) *ScriptedAgent {
	return &ScriptedAgent{name: name, steps: steps}
}

// Answer returns a step producing a terminal answer.
func Answer(text string) StepFunc {
	return func(*core.RunContext) (core.Result, error) { return core.Final(text), nil }
}

// HandoffTo returns a step requesting a handoff.
func HandoffTo(target string) StepFunc {
	return func(*core.RunContext) (core.Result, error) { return core.Handoff(target, ""), nil }
}

// Fail returns a step failing with err.
func Fail(err error) StepFunc {
	return func(*core.RunContext) (core.Result, error) { return core.Result{}, err }
}

// Name implements core.Agent.
func (a *ScriptedAgent) Name() string { return a.name }

// Description implements core.Agent.
func (a *ScriptedAgent) Description() string { return "scripted " + a.name }

// Type reports the agent type label.
func (a *ScriptedAgent) Type() string { return "scripted" }

// Run implements core.Agent.
func (a *ScriptedAgent) Run(runCtx *core.RunContext) (core.Result, error) {
	a.mu.Lock()
	call := len(a.seen)
	a.seen = append(a.seen, runCtx.Transcript().Len())
	a.mu.Unlock()

	if len(a.steps) == 0 {
		return core.Final(""), nil
	}

	if call >= len(a.steps) {
		call = len(a.steps) - 1
	}

	return a.steps[call](runCtx)
}

// Calls returns the number of invocations.
func (a *ScriptedAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.seen)
}

// SeenTurns returns the transcript length observed by each invocation.
func (a *ScriptedAgent) SeenTurns() []int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]int(nil), a.seen...)
}
