package agent

import "github.com/hupe1980/travelmesh/core"

// DecisionFunc decides the outcome of one invocation: an answer or a handoff.
type DecisionFunc func(runCtx *core.RunContext) (core.Result, error)

// FuncAgent adapts a DecisionFunc to core.Agent. It is the vehicle for
// rule-based policies and for human-in-the-loop decisions.
type FuncAgent struct {
	BaseAgent
	decide DecisionFunc
}

// NewFuncAgent creates a FuncAgent.
func NewFuncAgent(name, description string, decide DecisionFunc) *FuncAgent {
	a := &FuncAgent{BaseAgent: NewBaseAgent(name, "func"), decide: decide}
	if description != "" {
		a.SetDescription(description)
	}

	return a
}

// Run implements core.Agent.
func (a *FuncAgent) Run(runCtx *core.RunContext) (core.Result, error) {
	if err := runCtx.Err(); err != nil {
		return core.Result{}, err
	}

	return a.decide(runCtx)
}
