package core

import (
	"context"
	"maps"
	"sync"

	"github.com/hupe1980/travelmesh/logging"
)

// RunContext carries execution state & helpers for one agent invocation.
// It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (SessionID, Agent info, Branch)
//   - The session and the transcript visible to the agent
//   - The handoff targets the routing table permits for the agent
//   - The event Sink and Logger
//
// Derived contexts (ForAgent, Fork) share the session; Fork additionally
// gives the branch its own copy of the transcript.
type RunContext struct {
	Context   context.Context
	SessionID string
	Agent     AgentInfo
	Branch    string

	session    *Session
	transcript *Transcript
	targets    []string
	sink       Sink
	state      *branchState

	*loggerAdapter
}

// RunOptions configures NewRunContext.
type RunOptions struct {
	Sink           Sink
	Logger         logging.Logger
	HandoffTargets []string
	Branch         string
}

// NewRunContext constructs a RunContext bound to sess.
func NewRunContext(ctx context.Context, sess *Session, agent AgentInfo, optFns ...func(o *RunOptions)) *RunContext {
	opts := RunOptions{
		Sink:   NopSink{},
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}

	return &RunContext{
		Context:       ctx,
		SessionID:     sess.ID,
		Agent:         agent,
		Branch:        opts.Branch,
		session:       sess,
		transcript:    sess.Transcript(),
		targets:       append([]string(nil), opts.HandoffTargets...),
		sink:          opts.Sink,
		loggerAdapter: newLoggerAdapter(opts.Logger, "session_id", sess.ID),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the context error, if any.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// Session returns the session this invocation belongs to.
func (rc *RunContext) Session() *Session { return rc.session }

// Transcript returns the transcript visible to this invocation.
func (rc *RunContext) Transcript() *Transcript { return rc.transcript }

// History returns a copy of all turns visible to this invocation.
func (rc *RunContext) History() []Turn { return rc.transcript.Turns() }

// Input returns the most recent user message.
func (rc *RunContext) Input() string { return rc.transcript.LastUserInput() }

// HandoffTargets returns the agents this invocation may hand off to.
func (rc *RunContext) HandoffTargets() []string {
	return append([]string(nil), rc.targets...)
}

// CanHandoffTo reports whether target is a permitted handoff target.
func (rc *RunContext) CanHandoffTo(target string) bool {
	for _, t := range rc.targets {
		if t == target {
			return true
		}
	}

	return false
}

// Sink returns the event sink.
func (rc *RunContext) Sink() Sink { return rc.sink }

// Emit publishes an event attributed to the current agent.
func (rc *RunContext) Emit(typ EventType, payload any) {
	ev := NewEvent(rc.SessionID, rc.Agent.Name, typ, payload)
	ev.Branch = rc.Branch
	rc.sink.Emit(ev)
}

// StreamToken publishes a partial model token.
func (rc *RunContext) StreamToken(token string) { rc.Emit(EventStreamToken, token) }

// GetState reads a state key. Inside a concurrent branch it sees the state
// at fork time plus the branch's own writes.
func (rc *RunContext) GetState(k string) (any, bool) {
	if rc.state != nil {
		return rc.state.get(k)
	}

	return rc.session.GetState(k)
}

// SetState writes a state key. Inside a concurrent branch the write stays
// local until the fan-out merges it with MergeState.
func (rc *RunContext) SetState(k string, v any) {
	if rc.state != nil {
		rc.state.set(k, v)
		return
	}

	rc.session.SetState(k, v)
}

// State returns a snapshot of the visible state (for instruction templates).
func (rc *RunContext) State() map[string]any {
	if rc.state != nil {
		return rc.state.snapshot()
	}

	return rc.session.StateSnapshot()
}

// StateChanges returns the keys written by this branch since Fork. It is
// empty outside a concurrent branch.
func (rc *RunContext) StateChanges() map[string]any {
	if rc.state == nil {
		return map[string]any{}
	}

	return rc.state.changes()
}

// MergeState applies branch writes to the visible state.
func (rc *RunContext) MergeState(changes map[string]any) {
	for k, v := range changes {
		rc.SetState(k, v)
	}
}

// Record appends a turn to the visible transcript.
func (rc *RunContext) Record(turn Turn) Turn { return rc.transcript.Append(turn) }

// ForAgent derives a context for invoking another agent on the same transcript.
func (rc *RunContext) ForAgent(agent AgentInfo, targets []string) *RunContext {
	c := *rc
	c.Agent = agent
	c.targets = append([]string(nil), targets...)

	return &c
}

// Fork derives a context for a concurrent branch. The branch receives
// independent copies of the transcript and the state so it never writes
// shared data.
func (rc *RunContext) Fork(branch string, agent AgentInfo) *RunContext {
	c := *rc
	c.Agent = agent
	c.Branch = branch
	c.transcript = rc.transcript.Fork()
	c.state = newBranchState(rc.State())
	c.targets = nil
	c.loggerAdapter = rc.loggerAdapter.with("branch", branch)

	return &c
}

// WithContext returns a shallow copy bound to ctx.
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	c := *rc
	c.Context = ctx

	return &c
}

// branchState is the state overlay of one concurrent branch.
type branchState struct {
	mu      sync.RWMutex
	values  map[string]any
	written map[string]any
}

func newBranchState(base map[string]any) *branchState {
	return &branchState{values: base, written: map[string]any{}}
}

func (b *branchState) get(k string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.values[k]

	return v, ok
}

func (b *branchState) set(k string, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[k] = v
	b.written[k] = v
}

func (b *branchState) snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return maps.Clone(b.values)
}

func (b *branchState) changes() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return maps.Clone(b.written)
}
