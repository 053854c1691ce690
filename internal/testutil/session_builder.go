package testutil

import (
	"github.com/hupe1980/travelmesh/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").MaxHops(3).State("k", "v").Input("hi").Build()
type SessionBuilder struct {
	id      string
	maxHops int
	state   map[string]any
	inputs  []string
	active  string
}

// NewSessionBuilder creates a new builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, state: map[string]any{}}
}

// MaxHops sets the hop bound (chainable).
func (b *SessionBuilder) MaxHops(n int) *SessionBuilder {
	b.maxHops = n
	return b
}

// State sets or overwrites a state key/value pair on the resulting session (chainable).
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// Input appends a user message (chainable).
func (b *SessionBuilder) Input(text string) *SessionBuilder {
	b.inputs = append(b.inputs, text)
	return b
}

// Active sets the initially active agent (chainable).
func (b *SessionBuilder) Active(name string) *SessionBuilder {
	b.active = name
	return b
}

// Build returns a *core.Session with pre-populated state and user turns.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id, b.maxHops)

	for k, v := range b.state {
		s.SetState(k, v)
	}

	for _, in := range b.inputs {
		s.AddUserInput(in)
	}

	if b.active != "" {
		s.Activate(b.active)
	}

	return s
}
