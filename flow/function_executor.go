package flow

import (
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/travelmesh/core"
)

// FunctionExecutor executes a batch of function calls and returns exactly one
// FunctionResponse per call, in call order. Implementations must respect
// cancellation and never panic.
type FunctionExecutor interface {
	Execute(runCtx *core.RunContext, agent FlowAgent, fnCalls []core.FunctionCall) []core.FunctionResponse
}

// FunctionExecutorConfig configures the default parallel executor.
type FunctionExecutorConfig struct {
	MaxParallel    int  // 0 or <1 => no explicit limit (len(fnCalls))
	LogStartEvents bool // log a start line per function
}

type parallelFunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewParallelFunctionExecutor constructs a new executor with the given config.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &parallelFunctionExecutor{cfg: cfg}
}

func (e *parallelFunctionExecutor) Execute(runCtx *core.RunContext, agent FlowAgent, fnCalls []core.FunctionCall) []core.FunctionResponse {
	n := len(fnCalls)
	results := make([]core.FunctionResponse, n)

	if n == 0 {
		return results
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	batchStart := time.Now()

	// Errors are carried inside FunctionResponse, so the group never fails.
	var g errgroup.Group

	g.SetLimit(maxPar)

	for i, fc := range fnCalls {
		g.Go(func() error {
			results[i] = e.executeOne(runCtx, agent, fc)
			return nil
		})
	}

	_ = g.Wait()

	runCtx.LogDebug(
		"agent.functions.batch.complete",
		"agent", agent.GetName(),
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

func (e *parallelFunctionExecutor) executeOne(runCtx *core.RunContext, agent FlowAgent, fc core.FunctionCall) core.FunctionResponse {
	fr := core.FunctionResponse{ID: fc.ID, Name: fc.Name}

	if e.cfg.LogStartEvents {
		runCtx.LogInfo("agent.function.start", "agent", agent.GetName(), "function", fc.Name, "function_call_id", fc.ID)
	}

	runCtx.Emit(core.EventToolCall, core.ToolCallPayload{CallID: fc.ID, Tool: fc.Name, Arguments: fc.Arguments})

	if err := runCtx.Err(); err != nil {
		fr.Error = err.Error()
	} else {
		start := time.Now()

		raw, err := agent.GetTools().Invoke(core.NewToolContext(runCtx, fc.ID), fc.Name, fc.Arguments)
		if err != nil {
			fr.Error = err.Error()

			var te *core.ToolInvocationError
			if errors.As(err, &te) {
				runCtx.LogWarn("agent.function.failed", "agent", agent.GetName(), "function", fc.Name, "code", te.Code)
			}
		} else {
			fr.Response = string(raw)
		}

		runCtx.LogInfo(
			"agent.function.executed",
			"agent", agent.GetName(),
			"function", fc.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", fr.Error != "",
		)
	}

	runCtx.Emit(core.EventToolResult, core.ToolResultPayload{CallID: fc.ID, Tool: fc.Name, Result: fr.Response, Error: fr.Error})

	return fr
}
