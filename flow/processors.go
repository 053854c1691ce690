package flow

import (
	"fmt"

	"github.com/hupe1980/travelmesh/core"
	internalutil "github.com/hupe1980/travelmesh/internal/util"
	"github.com/hupe1980/travelmesh/model"
	"github.com/hupe1980/travelmesh/tool"
)

// InstructionsProcessor renders the agent instructions against session state.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets req.Instructions.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(runCtx)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	req.Instructions, err = internalutil.RenderTemplate(instructions, runCtx.State())
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	runCtx.LogDebug("agent.instruction.resolved", "agent", agent.GetName(), "length", len(req.Instructions))

	return nil
}

// ContentsProcessor converts the visible transcript into model contents.
// Messages of other agents are prefixed with their name; tool turns of
// earlier invocations are omitted.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest sets req.Contents from the transcript.
func (p *ContentsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	turns := make([]core.Turn, 0, runCtx.Transcript().Len())

	for _, t := range runCtx.History() {
		if t.Kind == core.TurnMessage || t.Kind == core.TurnTransition {
			turns = append(turns, t)
		}
	}

	if limit := agent.MaxHistoryMessages(); limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	contents := make([]core.Content, 0, len(turns))

	for _, t := range turns {
		switch {
		case t.Role == core.RoleUser:
			contents = append(contents, core.NewTextContent(string(core.RoleUser), t.Content))
		case t.IsTransition():
			contents = append(contents, core.NewTextContent(string(core.RoleAssistant), t.Content))
		case t.Content == "":
			continue
		case t.Speaker == agent.GetName():
			contents = append(contents, core.NewTextContent(string(core.RoleAssistant), t.Content))
		default:
			contents = append(contents, core.NewTextContent(string(core.RoleAssistant), fmt.Sprintf("[%s]: %s", t.Speaker, t.Content)))
		}
	}

	req.Contents = contents

	return nil
}

// ToolsProcessor exposes the agent's registered tools to the model.
type ToolsProcessor struct{}

// NewToolsProcessor creates a new tools processor.
func NewToolsProcessor() *ToolsProcessor { return &ToolsProcessor{} }

// Name returns the processor's identifier.
func (p *ToolsProcessor) Name() string { return "tools" }

// ProcessRequest appends a definition per registered tool.
func (p *ToolsProcessor) ProcessRequest(_ *core.RunContext, req *model.Request, agent FlowAgent) error {
	if reg := agent.GetTools(); reg != nil {
		for _, t := range reg.Tools() {
			req.Tools = append(req.Tools, definitionOf(t))
		}
	}

	return nil
}

// HandoffToolInjector adds one handoff_to_<target> tool per target the
// routing table permits for the running agent.
type HandoffToolInjector struct {
	descriptions map[string]string
}

// NewHandoffToolInjector creates an injector. descriptions maps agent names to
// the text shown to the model; missing entries get a generic description.
func NewHandoffToolInjector(descriptions map[string]string) *HandoffToolInjector {
	return &HandoffToolInjector{descriptions: descriptions}
}

// Name returns the processor's identifier.
func (p *HandoffToolInjector) Name() string { return "handoff_tools" }

// ProcessRequest appends missing handoff tool definitions.
func (p *HandoffToolInjector) ProcessRequest(runCtx *core.RunContext, req *model.Request, _ FlowAgent) error {
	for _, target := range runCtx.HandoffTargets() {
		t := tool.NewHandoffTool(target, p.descriptions[target])
		if req.HasTool(t.Name()) {
			continue
		}

		req.Tools = append(req.Tools, definitionOf(t))
	}

	return nil
}

func definitionOf(t tool.Tool) model.ToolDefinition {
	return model.NewFunctionDefinition(t.Name(), t.Description(), t.Parameters())
}
