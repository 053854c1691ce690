package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/travelmesh/agent"
	"github.com/hupe1980/travelmesh/artifact"
	"github.com/hupe1980/travelmesh/config"
	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/handoff"
	"github.com/hupe1980/travelmesh/logging"
	"github.com/hupe1980/travelmesh/metrics"
	"github.com/hupe1980/travelmesh/routing"
	"github.com/hupe1980/travelmesh/session"
	"github.com/hupe1980/travelmesh/trace"
)

// Mode selects the workflow topology.
type Mode string

const (
	ModeHandoff    Mode = "handoff"
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// Names of the composite agents.
const (
	SequentialName = "pipeline"
	ConcurrentName = "overview"
)

var (
	// ErrUnknownMode is returned for modes other than handoff, sequential and concurrent.
	ErrUnknownMode = errors.New("unknown workflow mode")
	// ErrNotResumable is returned by Continue for sessions not run in handoff mode.
	ErrNotResumable = errors.New("session cannot be resumed")
	// ErrRunNotFound is returned by Cancel for unknown session ids.
	ErrRunNotFound = errors.New("run not found")
)

// ParseMode converts a case-insensitive mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeHandoff, ModeSequential, ModeConcurrent:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Options holds dependency overrides passed to New.
type Options struct {
	// Logger receives structured log lines. Defaults to logging.NoOpLogger.
	Logger logging.Logger
	// Sink receives every event next to the per-session tracer.
	Sink core.Sink
	// Metrics derives Prometheus metrics from events when set.
	Metrics *metrics.Collector
	// SessionStore persists sessions. Defaults to session.NewInMemoryStore().
	SessionStore core.SessionStore
	// ArtifactStore receives traces. Defaults to artifact.NewInMemoryStore().
	ArtifactStore core.ArtifactStore
	// SaveTraces toggles trace persistence.
	SaveTraces bool
	// Now is the tracer clock.
	Now func() time.Time
}

// Outcome is the result of one workflow session.
type Outcome struct {
	SessionID  string         `json:"session_id"`
	Mode       Mode           `json:"mode"`
	Output     string         `json:"output"`
	FinalAgent string         `json:"final_agent"`
	Hops       int            `json:"hops"`
	Handoffs   []routing.Edge `json:"handoffs,omitempty"`
	Terminated bool           `json:"terminated"`
	Transcript []core.Turn    `json:"transcript"`
	Trace      trace.Trace    `json:"trace"`
	TraceID    string         `json:"trace_id,omitempty"`
	Duration   time.Duration  `json:"duration"`
}

// Runner runs travel workflow sessions. Public methods are safe for
// concurrent use.
type Runner struct {
	cfg        *config.Config
	table      *routing.Table
	agents     []core.Agent
	sequential *agent.SequentialAgent
	concurrent *agent.ConcurrentAgent

	logger        logging.Logger
	sink          core.Sink
	metrics       *metrics.Collector
	sessionStore  core.SessionStore
	artifactStore core.ArtifactStore
	saveTraces    bool
	now           func() time.Time

	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New validates cfg and binds the agents to the three topologies.
func New(cfg *config.Config, agents []core.Agent, optFns ...func(o *Options)) (*Runner, error) {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		SessionStore:  session.NewInMemoryStore(),
		ArtifactStore: artifact.NewInMemoryStore(),
		Now:           time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	table, err := cfg.RoutingTable()
	if err != nil {
		return nil, err
	}

	// Validates that every table node has an implementation.
	if _, err := handoff.New(table, agents); err != nil {
		return nil, err
	}

	byName := make(map[string]core.Agent, len(agents))
	for _, a := range agents {
		byName[a.Name()] = a
	}

	pick := func(names []string) []core.Agent {
		out := make([]core.Agent, 0, len(names))
		for _, n := range names {
			out = append(out, byName[n])
		}

		return out
	}

	return &Runner{
		cfg:           cfg.Clone(),
		table:         table,
		agents:        append([]core.Agent(nil), agents...),
		sequential:    agent.NewSequentialAgent(SequentialName, pick(cfg.Sequential.Agents)...),
		concurrent:    agent.NewConcurrentAgent(ConcurrentName, pick(cfg.Concurrent.Agents), cfg.ConcurrentOptions()),
		logger:        opts.Logger,
		sink:          opts.Sink,
		metrics:       opts.Metrics,
		sessionStore:  opts.SessionStore,
		artifactStore: opts.ArtifactStore,
		saveTraces:    opts.SaveTraces,
		now:           opts.Now,
		activeRuns:    make(map[string]context.CancelFunc),
	}, nil
}

// Run starts a new session in mode with the given user input.
func (r *Runner) Run(ctx context.Context, mode Mode, input string) (*Outcome, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	sess, err := r.sessionStore.Create(ctx, "", r.cfg.MaxHops)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess.Metadata["mode"] = string(mode)
	sess.AddUserInput(input)

	return r.execute(ctx, mode, sess, input)
}

// Continue appends a follow-up input to a stored handoff session and resumes
// it at its active agent. The hop bound applies to the whole session.
func (r *Runner) Continue(ctx context.Context, sessionID, input string) (*Outcome, error) {
	sess, err := r.sessionStore.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if m := sess.Metadata["mode"]; m != string(ModeHandoff) {
		return nil, fmt.Errorf("%w: %s ran in %q mode", ErrNotResumable, sessionID, m)
	}

	sess.AddUserInput(input)

	return r.execute(ctx, ModeHandoff, sess, input)
}

// Cancel cancels a running session by id.
func (r *Runner) Cancel(sessionID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[sessionID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, sessionID)
	}

	cancel()

	return nil
}

// Active returns the ids of running sessions.
func (r *Runner) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.activeRuns))
	for id := range r.activeRuns {
		ids = append(ids, id)
	}

	return ids
}

func (r *Runner) execute(ctx context.Context, mode Mode, sess *core.Session, input string) (*Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.activeRuns[sess.ID] = cancel
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		delete(r.activeRuns, sess.ID)
		r.mu.Unlock()
	}()

	tracer := trace.NewTracer(string(mode), input, func(o *trace.TracerOptions) {
		o.Now = r.now
		o.SessionID = sess.ID
	})

	sinks := []core.Sink{tracer, r.sink}
	if r.metrics != nil {
		sinks = append(sinks, r.metrics)
	}

	sink := trace.NewMultiSink(sinks...)

	r.logger.Info("runner.run.start", "session_id", sess.ID, "mode", string(mode))

	start := time.Now()
	out := &Outcome{SessionID: sess.ID, Mode: mode}

	var err error

	switch mode {
	case ModeHandoff:
		err = r.runHandoff(ctx, sess, sink, out)
	case ModeSequential:
		err = r.runComposite(ctx, sess, sink, r.sequential, out)
	case ModeConcurrent:
		err = r.runComposite(ctx, sess, sink, r.concurrent, out)
	}

	out.Duration = time.Since(start)
	out.Hops = sess.Hops().Count()
	out.Transcript = sess.Transcript().Turns()

	tracer.Finish(out.Output)
	out.Trace = tracer.Trace()

	r.metrics.ObserveSession(string(mode), metrics.OutcomeOf(err), out.Hops, out.Duration)

	// Persist even when the caller canceled the run.
	persistCtx := context.WithoutCancel(ctx)

	if r.saveTraces && r.artifactStore != nil {
		id, saveErr := tracer.Save(persistCtx, r.artifactStore)
		if saveErr != nil {
			r.logger.Warn("runner.trace.save_failed", "session_id", sess.ID, "error", saveErr.Error())
		} else {
			out.TraceID = id
			r.logger.Info("runner.trace.saved", "session_id", sess.ID, "trace_id", id)
		}
	}

	if saveErr := r.sessionStore.Save(persistCtx, sess); saveErr != nil {
		r.logger.Warn("runner.session.save_failed", "session_id", sess.ID, "error", saveErr.Error())
	}

	r.logger.Info("runner.run.complete",
		"session_id", sess.ID,
		"mode", string(mode),
		"outcome", metrics.OutcomeOf(err),
		"summary", tracer.Summary(),
	)

	if err != nil {
		return out, err
	}

	return out, nil
}

func (r *Runner) runHandoff(ctx context.Context, sess *core.Session, sink core.Sink, out *Outcome) error {
	exec, err := handoff.New(r.table, r.agents, func(o *handoff.Options) {
		o.Sink = sink
		o.Logger = r.logger

		if r.cfg.MaxTurns > 0 {
			o.Terminate = handoff.MaxTurns(r.cfg.MaxTurns)
		}
	})
	if err != nil {
		return err
	}

	res, err := exec.Run(ctx, sess)
	if err != nil {
		return err
	}

	out.Output = res.Output
	out.FinalAgent = res.FinalAgent
	out.Handoffs = res.Handoffs
	out.Terminated = res.Terminated

	return nil
}

func (r *Runner) runComposite(ctx context.Context, sess *core.Session, sink core.Sink, composite core.Agent, out *Outcome) error {
	sess.Activate(composite.Name())

	runCtx := core.NewRunContext(ctx, sess, core.InfoOf(composite), func(o *core.RunOptions) {
		o.Sink = sink
		o.Logger = r.logger
	})

	res, err := core.InvokeAgent(runCtx, composite)
	if err != nil {
		sink.Emit(core.NewEvent(sess.ID, core.RouterSpeaker, core.EventError, core.ErrorPayload{Agent: composite.Name(), Error: err.Error()}))
		r.logger.Error("runner.run.failed", "session_id", sess.ID, "agent", composite.Name(), "error", err.Error())

		return &core.SessionError{
			SessionID:  sess.ID,
			Agent:      composite.Name(),
			Err:        err,
			Transcript: sess.Transcript().Turns(),
		}
	}

	out.Output = res.Output
	out.FinalAgent = composite.Name()

	sink.Emit(core.NewEvent(sess.ID, composite.Name(), core.EventFinal, core.FinalPayload{Agent: composite.Name(), Output: res.Output}))

	return nil
}
