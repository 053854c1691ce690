package flow

import "github.com/hupe1980/travelmesh/core"

// Selector determines which flow to use for an invocation.
type Selector struct {
	descriptions map[string]string
}

// NewSelector creates a new flow selector. descriptions feeds the handoff
// tool descriptions.
func NewSelector(descriptions map[string]string) *Selector {
	return &Selector{descriptions: descriptions}
}

// SelectFlow returns a HandoffFlow when the routing table permits handoffs
// from the running agent and a SingleAgentFlow otherwise.
func (s *Selector) SelectFlow(runCtx *core.RunContext, agent FlowAgent) Flow {
	if len(runCtx.HandoffTargets()) == 0 {
		return NewSingleAgentFlow(agent)
	}

	return NewHandoffFlow(agent, s.descriptions)
}
