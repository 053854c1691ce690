package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/travelmesh/core"
)

// SequentialAgent runs its children in order over a shared transcript. Each
// child sees every earlier child's answer, so a later agent can build on
// the output of the one before it.
//
// Children get no handoff targets; a child that still requests a handoff
// fails the pipeline with a *core.RoutingError.
type SequentialAgent struct {
	BaseAgent
	children []core.Agent
}

// NewSequentialAgent creates a new sequential execution coordinator.
func NewSequentialAgent(name string, children ...core.Agent) *SequentialAgent {
	return &SequentialAgent{
		BaseAgent: NewBaseAgent(name, "sequential"),
		children:  children,
	}
}

// Children returns the pipeline members in execution order.
func (s *SequentialAgent) Children() []core.Agent {
	return append([]core.Agent(nil), s.children...)
}

// Run implements core.Agent. Child answers are appended to the transcript as
// they are produced; the returned output is the "[name]: text" conversation
// of all children.
func (s *SequentialAgent) Run(runCtx *core.RunContext) (core.Result, error) {
	sections := make([]string, 0, len(s.children))

	for _, child := range s.children {
		if err := runCtx.Err(); err != nil {
			return core.Result{}, err
		}

		childCtx := runCtx.ForAgent(core.InfoOf(child), nil)

		res, err := core.InvokeAgent(childCtx, child)
		if err != nil {
			return core.Result{}, fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}

		if res.IsHandoff() {
			err := &core.RoutingError{From: child.Name(), To: res.Handoff.Target, Reason: "handoff not supported in a sequential pipeline"}
			return core.Result{}, fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}

		runCtx.Record(core.AgentTurn(child.Name(), res.Output))
		childCtx.Emit(core.EventOutput, core.OutputPayload{Agent: child.Name(), Text: res.Output})

		sections = append(sections, fmt.Sprintf("[%s]: %s", child.Name(), res.Output))
	}

	return core.Final(strings.Join(sections, "\n\n")), nil
}
