package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/logging"
	"github.com/hupe1980/travelmesh/routing"
)

var (
	// ErrMissingAgent is returned by New when a table node has no implementation.
	ErrMissingAgent = errors.New("no agent implementation for routing table node")
	// ErrUnroutedAgent is returned by New when an agent is not part of the table.
	ErrUnroutedAgent = errors.New("agent is not registered in the routing table")
	// ErrDuplicateAgent is returned by New when two agents share a name.
	ErrDuplicateAgent = errors.New("duplicate agent name")
)

// TerminationCondition ends a session successfully when it returns true. It is
// evaluated after every agent turn that requested a handoff.
type TerminationCondition func(turns []core.Turn) bool

// MaxTurns returns a TerminationCondition that fires once the transcript holds
// at least n message turns (user and agent messages, markers excluded).
func MaxTurns(n int) TerminationCondition {
	return func(turns []core.Turn) bool {
		count := 0
		for _, t := range turns {
			if t.Kind == core.TurnMessage {
				count++
			}
		}

		return count >= n
	}
}

// Options configure an Executor.
type Options struct {
	// Sink receives execution events (invoked, complete, output, handoff, final, error).
	Sink core.Sink
	// Logger receives structured log lines.
	Logger logging.Logger
	// Terminate optionally ends a session early.
	Terminate TerminationCondition
}

// Executor runs handoff sessions against a routing table.
// It is safe for concurrent use by multiple sessions.
type Executor struct {
	table     *routing.Table
	agents    map[string]core.Agent
	sink      core.Sink
	logger    logging.Logger
	terminate TerminationCondition
}

// Result is returned by a completed session.
type Result struct {
	SessionID  string         `json:"session_id"`
	Output     string         `json:"output"`
	FinalAgent string         `json:"final_agent"`
	Hops       int            `json:"hops"`
	Handoffs   []routing.Edge `json:"handoffs"`
	Transcript []core.Turn    `json:"transcript"`
	Terminated bool           `json:"terminated"`
	Duration   time.Duration  `json:"duration"`
}

// New validates table and binds every table node to its agent.
func New(table *routing.Table, agents []core.Agent, optFns ...func(o *Options)) (*Executor, error) {
	opts := Options{
		Sink:   core.NopSink{},
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Sink == nil {
		opts.Sink = core.NopSink{}
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid routing table: %w", err)
	}

	byName := make(map[string]core.Agent, len(agents))

	for _, a := range agents {
		if _, dup := byName[a.Name()]; dup {
			return nil, fmt.Errorf("%s: %w", a.Name(), ErrDuplicateAgent)
		}

		if !table.Has(a.Name()) {
			return nil, fmt.Errorf("%s: %w", a.Name(), ErrUnroutedAgent)
		}

		byName[a.Name()] = a
	}

	for _, id := range table.Agents() {
		if _, ok := byName[id]; !ok {
			return nil, fmt.Errorf("%s: %w", id, ErrMissingAgent)
		}
	}

	warnUnreachable(table, opts.Logger)

	return &Executor{
		table:     table,
		agents:    byName,
		sink:      opts.Sink,
		logger:    opts.Logger,
		terminate: opts.Terminate,
	}, nil
}

// warnUnreachable logs agents the start agent can never hand off to and
// agents that cannot hand off to anyone else.
func warnUnreachable(table *routing.Table, logger logging.Logger) {
	start := table.Start()
	reach := map[string]struct{}{start: {}}

	for _, id := range table.Reachable(start) {
		reach[id] = struct{}{}
	}

	var unreachable, terminal []string

	for _, id := range table.Agents() {
		if _, ok := reach[id]; !ok {
			unreachable = append(unreachable, id)
		}

		if len(table.Reachable(id)) == 0 {
			terminal = append(terminal, id)
		}
	}

	if len(unreachable) > 0 {
		logger.Warn("handoff.agents.unreachable", "start", start, "agents", unreachable)
	}

	if len(terminal) > 0 {
		logger.Debug("handoff.agents.terminal", "agents", terminal)
	}
}

// Table returns the routing table.
func (e *Executor) Table() *routing.Table { return e.table }

// Agent returns the agent registered under name.
func (e *Executor) Agent(name string) (core.Agent, bool) {
	a, ok := e.agents[name]
	return a, ok
}

// Run drives sess until the active agent answers, the termination condition
// fires, or a fatal error occurs. A session without an active agent starts at
// the table's start agent; a resumed session continues with its active agent.
func (e *Executor) Run(ctx context.Context, sess *core.Session) (*Result, error) {
	e.table.Freeze()

	start := time.Now()

	active := sess.Active()
	if active == "" {
		active = e.table.Start()
		sess.Activate(active)
	}

	if _, ok := e.agents[active]; !ok {
		return nil, e.fail(sess, active, &core.RoutingError{To: active, Reason: "active agent is not registered"})
	}

	e.logger.Info("handoff.run.start", "session_id", sess.ID, "agent", active, "hops", sess.Hops().Count(), "max_hops", sess.Hops().Max())

	var (
		handoffs   []routing.Edge
		lastOutput string
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, e.fail(sess, active, err)
		}

		agent := e.agents[active]
		runCtx := core.NewRunContext(ctx, sess, core.InfoOf(agent), func(o *core.RunOptions) {
			o.Sink = e.sink
			o.Logger = e.logger
			o.HandoffTargets = e.table.Targets(active)
		})

		res, err := core.InvokeAgent(runCtx, agent)
		if err != nil {
			return nil, e.fail(sess, active, fmt.Errorf("agent %s failed: %w", active, err))
		}

		turn := core.AgentTurn(active, res.Output)
		if res.Handoff != nil {
			turn.Metadata = map[string]string{core.MetaHandoffTo: res.Handoff.Target}
		}

		sess.Append(turn)

		out := core.OutputPayload{Agent: active, Text: res.Output}
		if res.Handoff != nil {
			out.Handoff = res.Handoff.Target
		}

		runCtx.Emit(core.EventOutput, out)

		if res.Output != "" {
			lastOutput = res.Output
		}

		if res.Handoff == nil {
			return e.finish(sess, active, res.Output, handoffs, false, start), nil
		}

		target := res.Handoff.Target

		if !e.table.IsAllowed(active, target) {
			reason := "target not permitted"
			if !e.table.Has(target) {
				reason = "target not registered"
			}

			return nil, e.fail(sess, active, &core.RoutingError{From: active, To: target, Reason: reason})
		}

		if e.terminate != nil && e.terminate(sess.Transcript().Turns()) {
			e.logger.Info("handoff.run.terminated", "session_id", sess.ID, "agent", active, "turns", sess.Transcript().Len())
			return e.finish(sess, active, lastOutput, handoffs, true, start), nil
		}

		if err := sess.Hops().Increment(); err != nil {
			var mhe *core.MaxHopsExceededError
			if errors.As(err, &mhe) {
				mhe.From, mhe.To = active, target
			}

			return nil, e.fail(sess, active, err)
		}

		hop := sess.Hops().Count()
		sess.Append(core.TransitionTurn(active, target, res.Handoff.Reason))

		ev := core.NewEvent(sess.ID, core.RouterSpeaker, core.EventHandoff, core.HandoffPayload{
			From:   active,
			To:     target,
			Reason: res.Handoff.Reason,
			Hop:    hop,
		})
		e.sink.Emit(ev)

		e.logger.Info("handoff.transition", "session_id", sess.ID, "from", active, "to", target, "hop", hop)

		handoffs = append(handoffs, routing.Edge{From: active, To: target})

		sess.Activate(target)
		active = target
	}
}

func (e *Executor) finish(sess *core.Session, agent, output string, handoffs []routing.Edge, terminated bool, start time.Time) *Result {
	hops := sess.Hops().Count()

	e.sink.Emit(core.NewEvent(sess.ID, agent, core.EventFinal, core.FinalPayload{Agent: agent, Output: output, Hops: hops}))
	e.logger.Info("handoff.run.complete", "session_id", sess.ID, "agent", agent, "hops", hops, "duration_ms", time.Since(start).Milliseconds())

	return &Result{
		SessionID:  sess.ID,
		Output:     output,
		FinalAgent: agent,
		Hops:       hops,
		Handoffs:   handoffs,
		Transcript: sess.Transcript().Turns(),
		Terminated: terminated,
		Duration:   time.Since(start),
	}
}

func (e *Executor) fail(sess *core.Session, agent string, err error) error {
	e.sink.Emit(core.NewEvent(sess.ID, core.RouterSpeaker, core.EventError, core.ErrorPayload{Agent: agent, Error: err.Error()}))
	e.logger.Error("handoff.run.failed", "session_id", sess.ID, "agent", agent, "hops", sess.Hops().Count(), "error", err.Error())

	return &core.SessionError{
		SessionID:  sess.ID,
		Agent:      agent,
		Err:        err,
		Transcript: sess.Transcript().Turns(),
	}
}
