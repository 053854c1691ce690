package agent

import (
	"fmt"

	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/flow"
	"github.com/hupe1980/travelmesh/model"
	"github.com/hupe1980/travelmesh/tool"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Description         string
	Instruction         Instruction
	EnableStreaming     bool
	OutputKey           string
	MaxHistoryMessages  int
	MaxModelCalls       int
	Tools               []tool.Tool
	HandoffDescriptions map[string]string // target name -> text shown on its handoff tool
}

// ModelAgent is an LLM-driven agent. Each invocation runs a flow: the model
// may call tools any number of times and finishes with an answer or a call
// to one of the injected handoff_to_<target> tools.
type ModelAgent struct {
	BaseAgent
	llm                model.Model
	instruction        Instruction
	tools              *tool.Registry
	enableStreaming    bool
	outputKey          string
	maxHistoryMessages int
	maxModelCalls      int
	selector           *flow.Selector
}

// NewModelAgent creates a new model-based agent.
//
// Defaults: streaming disabled, 20 history messages, 8 model calls per invocation.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful travel assistant.", name)),
		MaxHistoryMessages: 20,
		MaxModelCalls:      8,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		BaseAgent:          NewBaseAgent(name, "model"),
		llm:                llm,
		instruction:        opts.Instruction,
		tools:              tool.NewRegistry(opts.Tools...),
		enableStreaming:    opts.EnableStreaming,
		outputKey:          opts.OutputKey,
		maxHistoryMessages: opts.MaxHistoryMessages,
		maxModelCalls:      opts.MaxModelCalls,
		selector:           flow.NewSelector(opts.HandoffDescriptions),
	}

	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}

	return a
}

// RegisterTool adds a tool to the agent's capability set.
func (a *ModelAgent) RegisterTool(t tool.Tool) { a.tools.Register(t) }

// GetName returns the agent's display name.
func (a *ModelAgent) GetName() string { return a.Name() }

// GetLLM returns the language model instance.
func (a *ModelAgent) GetLLM() model.Model { return a.llm }

// GetTools returns the tool registry.
func (a *ModelAgent) GetTools() *tool.Registry { return a.tools }

// IsStreamingEnabled returns whether streaming responses are enabled.
func (a *ModelAgent) IsStreamingEnabled() bool { return a.enableStreaming }

// GetOutputKey returns the session state key for saving answers.
func (a *ModelAgent) GetOutputKey() string { return a.outputKey }

// MaxHistoryMessages returns the maximum number of transcript messages sent to the model.
func (a *ModelAgent) MaxHistoryMessages() int { return a.maxHistoryMessages }

// MaxModelCalls returns the model call budget per invocation.
func (a *ModelAgent) MaxModelCalls() int { return a.maxModelCalls }

// ResolveInstructions returns the unrendered instruction text.
func (a *ModelAgent) ResolveInstructions(runCtx *core.RunContext) (string, error) {
	return a.instruction.Resolve(runCtx)
}

// Instructions implements core.Profiler.
func (a *ModelAgent) Instructions() string { return a.instruction.Text() }

// ToolNames implements core.Profiler.
func (a *ModelAgent) ToolNames() []string { return a.tools.Names() }

// Run implements core.Agent.
func (a *ModelAgent) Run(runCtx *core.RunContext) (core.Result, error) {
	fl := a.selector.SelectFlow(runCtx, a)

	runCtx.LogDebug("agent.flow.selected", "agent", a.Name(), "flow", fmt.Sprintf("%T", fl), "targets", len(runCtx.HandoffTargets()))

	res, err := fl.Run(runCtx)
	if err != nil {
		runCtx.LogError("agent.flow.execute.error", "agent", a.Name(), "error", err.Error())
		return core.Result{}, fmt.Errorf("flow execution failed: %w", err)
	}

	return res, nil
}
