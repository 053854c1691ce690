package agent

import "fmt"

// BaseAgent bundles identity helpers. Embed it in concrete agent
// implementations and supply a Run method to satisfy core.Agent.
type BaseAgent struct {
	name        string
	description string
	typ         string
}

// NewBaseAgent constructs a BaseAgent with a generated description
// (customizable via SetDescription).
func NewBaseAgent(name, typ string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
		typ:         typ,
	}
}

// Name returns the agent's unique name.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a short description of the agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// Type returns the implementation label reported in events.
func (b *BaseAgent) Type() string { return b.typ }
