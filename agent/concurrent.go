package agent

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/travelmesh/core"
)

// ConcurrentOptions configures a ConcurrentAgent.
type ConcurrentOptions struct {
	Policy       FailurePolicy
	MinSuccesses int           // BestEffort only; values < 1 mean 1
	Timeout      time.Duration // 0 = no timeout
	MaxParallel  int           // 0 = all branches at once
	Aggregator   Aggregator
}

// ConcurrentAgent fans the same request out to its children in parallel.
//
// Each child runs on a forked copy of the transcript under its own branch
// path ("Parent.Child"), so branches never observe or write each other's
// turns. Results land in fixed slots and are merged by the Aggregator once
// every branch finished; the merged output therefore does not depend on
// completion order. Branch answers are then appended to the shared
// transcript in slot order.
type ConcurrentAgent struct {
	BaseAgent
	children []core.Agent
	opts     ConcurrentOptions
}

// NewConcurrentAgent creates a new parallel execution coordinator.
// Defaults: FailFast, SectionAggregator, no timeout, unlimited parallelism.
func NewConcurrentAgent(name string, children []core.Agent, optFns ...func(o *ConcurrentOptions)) *ConcurrentAgent {
	opts := ConcurrentOptions{
		Policy:       FailFast,
		MinSuccesses: 1,
		Aggregator:   SectionAggregator{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MinSuccesses < 1 {
		opts.MinSuccesses = 1
	}

	if opts.Aggregator == nil {
		opts.Aggregator = SectionAggregator{}
	}

	if opts.Policy == "" {
		opts.Policy = FailFast
	}

	return &ConcurrentAgent{
		BaseAgent: NewBaseAgent(name, "concurrent"),
		children:  children,
		opts:      opts,
	}
}

// Children returns the branches in registration order.
func (p *ConcurrentAgent) Children() []core.Agent {
	return append([]core.Agent(nil), p.children...)
}

// Policy returns the configured failure policy.
func (p *ConcurrentAgent) Policy() FailurePolicy { return p.opts.Policy }

// Run implements core.Agent.
func (p *ConcurrentAgent) Run(runCtx *core.RunContext) (core.Result, error) {
	ctx := runCtx.Context

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	var (
		g    *errgroup.Group
		gctx = ctx
	)

	if p.opts.Policy == FailFast {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = new(errgroup.Group)
	}

	if p.opts.MaxParallel > 0 {
		g.SetLimit(p.opts.MaxParallel)
	}

	slots := make([]BranchResult, len(p.children))
	branchCtx := runCtx.WithContext(gctx)

	for i, child := range p.children {
		g.Go(func() error {
			slots[i] = p.runBranch(branchCtx, i, child)
			return slots[i].Err
		})
	}

	_ = g.Wait()

	if err := runCtx.Err(); err != nil {
		return core.Result{}, err
	}

	if err := p.check(slots); err != nil {
		runCtx.LogWarn("agent.concurrent.failed", "agent", p.Name(), "policy", string(p.opts.Policy), "error", err.Error())
		return core.Result{}, err
	}

	out, err := p.opts.Aggregator.Aggregate(slots)
	if err != nil {
		return core.Result{}, fmt.Errorf("aggregate %s: %w", p.Name(), err)
	}

	for _, s := range slots {
		if s.OK() {
			runCtx.Record(core.AgentTurn(s.Agent, s.Output))
			runCtx.MergeState(s.State)
		}
	}

	runCtx.LogDebug("agent.concurrent.complete", "agent", p.Name(), "branches", len(slots))

	return core.Final(out), nil
}

func (p *ConcurrentAgent) runBranch(parent *core.RunContext, idx int, child core.Agent) BranchResult {
	branch := buildBranchPath(parent.Branch, fmt.Sprintf("%s.%s", p.Name(), child.Name()))
	bctx := parent.Fork(branch, core.InfoOf(child))
	start := time.Now()

	res, err := core.InvokeAgent(bctx, child)
	if err == nil && res.IsHandoff() {
		err = &core.RoutingError{From: child.Name(), To: res.Handoff.Target, Reason: "handoff not supported in a concurrent fan-out"}
	}

	if err == nil {
		bctx.Emit(core.EventOutput, core.OutputPayload{Agent: child.Name(), Text: res.Output})
	}

	return BranchResult{
		Index:    idx,
		Agent:    child.Name(),
		Branch:   branch,
		Output:   res.Output,
		Err:      err,
		Duration: time.Since(start),
		State:    bctx.StateChanges(),
	}
}

// check applies the failure policy to the filled slots.
func (p *ConcurrentAgent) check(slots []BranchResult) error {
	var failures []core.BranchFailure

	for _, s := range slots {
		if !s.OK() {
			failures = append(failures, core.BranchFailure{Index: s.Index, Branch: s.Branch, Err: s.Err})
		}
	}

	succeeded := len(slots) - len(failures)

	switch {
	case len(failures) == 0:
		return nil
	case p.opts.Policy == BestEffort && succeeded >= p.opts.MinSuccesses:
		return nil
	default:
		return &core.AggregationError{Policy: string(p.opts.Policy), Succeeded: succeeded, Failures: failures}
	}
}
