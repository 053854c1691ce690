package flow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/model"
	"github.com/hupe1980/travelmesh/tool"
)

// ErrNoResponse is returned when a model closes its stream without a final response.
var ErrNoResponse = errors.New("model returned no final response")

// BaseFlow implements the request -> LLM -> (tool loop) cycle with pluggable
// request processors.
type BaseFlow struct {
	agent             FlowAgent
	requestProcessors []RequestProcessor
	executor          FunctionExecutor
}

// NewBaseFlow creates a flow without processors.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:    agent,
		executor: NewParallelFunctionExecutor(FunctionExecutorConfig{}),
	}
}

// AddRequestProcessor appends a request processor; order of registration defines execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// SetFunctionExecutor replaces the tool executor.
func (f *BaseFlow) SetFunctionExecutor(executor FunctionExecutor) {
	f.executor = executor
}

// Run performs model turns until the model answers without tool calls or
// calls a handoff tool. Tool failures are returned to the model as error
// responses; model failures and an exhausted call budget end the invocation.
func (f *BaseFlow) Run(runCtx *core.RunContext) (core.Result, error) {
	name := f.agent.GetName()
	limiter := core.NewCallLimiter(f.agent.MaxModelCalls())

	var scratch []core.Content

	for {
		if err := runCtx.Err(); err != nil {
			return core.Result{}, err
		}

		if err := limiter.Increment(); err != nil {
			return core.Result{}, fmt.Errorf("agent %s: %w", name, err)
		}

		req := &model.Request{Agent: f.agent.GetName(), Stream: f.agent.IsStreamingEnabled()}

		for _, processor := range f.requestProcessors {
			if err := processor.ProcessRequest(runCtx, req, f.agent); err != nil {
				return core.Result{}, fmt.Errorf("request processor %s failed: %w", processor.Name(), err)
			}
		}

		req.Contents = append(req.Contents, scratch...)

		resp, err := f.generate(runCtx, *req)
		if err != nil {
			return core.Result{}, fmt.Errorf("model call %d failed: %w", limiter.Count(), err)
		}

		text := resp.Content.Text()
		calls := resp.Content.FunctionCalls()

		if len(calls) == 0 {
			if key := f.agent.GetOutputKey(); key != "" {
				runCtx.SetState(key, text)
			}

			return core.Final(text), nil
		}

		handoff, regular := splitHandoff(calls)

		if handoff != nil {
			// Sibling tool calls run before control passes on.
			if len(regular) > 0 {
				f.runTools(runCtx, regular)
			}

			return handoffResult(runCtx, *handoff, text), nil
		}

		scratch = append(scratch, resp.Content)
		parts := f.runTools(runCtx, calls)

		scratch = append(scratch, core.Content{Role: string(core.RoleTool), Parts: parts})
	}
}

// generate drains the model stream, forwarding partial text as stream tokens.
func (f *BaseFlow) generate(runCtx *core.RunContext, req model.Request) (model.Response, error) {
	respCh, errCh := f.agent.GetLLM().Generate(runCtx.Context, req)

	var final *model.Response

	for resp := range respCh {
		if resp.Partial {
			if token := resp.Content.Text(); token != "" {
				runCtx.StreamToken(token)
			}

			continue
		}

		r := resp
		final = &r
	}

	if err := <-errCh; err != nil {
		return model.Response{}, err
	}

	if final == nil {
		return model.Response{}, ErrNoResponse
	}

	return *final, nil
}

// runTools executes calls, records their turns and returns the response parts
// for the next model request.
func (f *BaseFlow) runTools(runCtx *core.RunContext, calls []core.FunctionCall) []core.Part {
	name := f.agent.GetName()
	responses := f.executor.Execute(runCtx, f.agent, calls)
	parts := make([]core.Part, 0, len(responses))

	for i, fr := range responses {
		runCtx.Record(core.ToolCallTurn(name, calls[i].ID, calls[i].Name, calls[i].Arguments))
		runCtx.Record(core.ToolResultTurn(name, fr.ID, fr.Name, fr.Response, fr.Error))

		parts = append(parts, core.FunctionResponsePart{FunctionResponse: fr})
	}

	return parts
}

// splitHandoff separates the first handoff call from the regular tool calls.
// Additional handoff calls are ignored.
func splitHandoff(calls []core.FunctionCall) (*core.FunctionCall, []core.FunctionCall) {
	var (
		handoff *core.FunctionCall
		regular []core.FunctionCall
	)

	for i := range calls {
		if _, ok := tool.HandoffTarget(calls[i].Name); !ok {
			regular = append(regular, calls[i])
			continue
		}

		if handoff == nil {
			handoff = &calls[i]
		}
	}

	return handoff, regular
}

// handoffResult turns a handoff tool call into a handoff result.
// Permission is not checked here; the executor validates every handoff.
func handoffResult(runCtx *core.RunContext, fc core.FunctionCall, text string) core.Result {
	target, _ := tool.HandoffTarget(fc.Name)

	var args struct {
		Reason string `json:"reason"`
	}

	if fc.Arguments != "" {
		if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
			runCtx.LogDebug("agent.handoff.bad_arguments", "agent", runCtx.Agent.Name, "target", target, "error", err)
		}
	}

	runCtx.LogDebug("agent.handoff.requested", "agent", runCtx.Agent.Name, "target", target, "function_call_id", fc.ID)
	runCtx.Emit(core.EventToolCall, core.ToolCallPayload{CallID: fc.ID, Tool: fc.Name, Arguments: fc.Arguments})
	runCtx.Emit(core.EventToolResult, core.ToolResultPayload{CallID: fc.ID, Tool: fc.Name, Result: fmt.Sprintf(`{"handoff":true,"agent":%q}`, target)})

	res := core.Handoff(target, args.Reason)
	res.Output = text

	return res
}
