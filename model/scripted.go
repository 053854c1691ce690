package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/travelmesh/core"
)

// ErrScriptExhausted is returned when a ScriptedModel is asked for more
// responses than it was given.
var ErrScriptExhausted = errors.New("model script exhausted")

// Step produces one model response from a request.
type Step func(req Request) (core.Content, error)

// Say returns a step answering with text.
func Say(text string) Step {
	return func(Request) (core.Content, error) {
		return core.NewTextContent("assistant", text), nil
	}
}

// CallTool returns a step requesting a single function call.
func CallTool(name string, args map[string]any) Step {
	return func(Request) (core.Content, error) {
		raw, err := json.Marshal(args)
		if err != nil {
			return core.Content{}, err
		}

		return core.Content{
			Role: "assistant",
			Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        "call_" + uuid.NewString()[:8],
				Name:      name,
				Arguments: string(raw),
			}}},
		}, nil
	}
}

// HandoffTo returns a step calling the handoff tool for target.
func HandoffTo(target, reason string) Step {
	return CallTool("handoff_to_"+target, map[string]any{"reason": reason})
}

// Fail returns a step that makes Generate report err.
func Fail(err error) Step {
	return func(Request) (core.Content, error) { return core.Content{}, err }
}

// ScriptedModel is a deterministic Model replaying a fixed list of steps.
// It records every request so tests can inspect what the flow sent.
type ScriptedModel struct {
	info Info

	mu       sync.Mutex
	steps    []Step
	requests []Request
}

// NewScriptedModel constructs a ScriptedModel.
func NewScriptedModel(name string, steps ...Step) *ScriptedModel {
	return &ScriptedModel{
		info:  Info{Name: name, Provider: "scripted", SupportsTools: true},
		steps: steps,
	}
}

// Requests returns the requests received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.requests...)
}

// Remaining returns the number of unused steps.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.steps) - len(m.requests)
}

// Generate implements Model. Streaming requests receive the text word by word
// as partial responses before the final one.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	idx := len(m.requests)
	m.requests = append(m.requests, req)

	var step Step
	if idx < len(m.steps) {
		step = m.steps[idx]
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if step == nil {
			errCh <- fmt.Errorf("%w: %s received request %d", ErrScriptExhausted, m.info.Name, idx+1)
			return
		}

		content, err := step(req)
		if err != nil {
			errCh <- err
			return
		}

		if req.Stream {
			for _, word := range strings.SplitAfter(content.Text(), " ") {
				if word == "" {
					continue
				}

				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Content: core.NewTextContent("assistant", word)}:
				}
			}
		}

		finish := "stop"
		if len(content.FunctionCalls()) > 0 {
			finish = "tool_calls"
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{ID: uuid.NewString(), Content: content, FinishReason: finish}:
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }
