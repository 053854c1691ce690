package tool

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/travelmesh/core"
)

// Registry resolves tools by name and implements the JSON tool-invocation
// interface: (name, JSON arguments) -> JSON result.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns a registry holding tools. Later tools with the same
// name replace earlier ones.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}

	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[t.Name()] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]

	return t, ok
}

// Names returns the registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	names := r.Names()
	out := make([]Tool, 0, len(names))

	for _, n := range names {
		t, _ := r.Get(n)
		out = append(out, t)
	}

	return out
}

// Invoke decodes args, calls the named tool and encodes its result. Every
// failure is returned as a *core.ToolInvocationError; panics are recovered.
func (r *Registry) Invoke(toolCtx *core.ToolContext, name string, args string) (result json.RawMessage, err error) {
	impl, ok := r.Get(name)
	if !ok {
		return nil, &core.ToolInvocationError{Tool: name, Code: core.ToolCodeNotFound, Message: fmt.Sprintf("tool %s not found", name)}
	}

	argMap := map[string]any{}
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argMap); err != nil {
			return nil, &core.ToolInvocationError{Tool: name, Code: core.ToolCodeArguments, Message: "failed to unmarshal args", Err: err}
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			toolCtx.LogError("tool.call.panic", "tool", name, "recover", rec)
			result = nil
			err = &core.ToolInvocationError{Tool: name, Code: core.ToolCodePanic, Message: fmt.Sprintf("panic: %v", rec)}
		}
	}()

	out, err := impl.Call(toolCtx, argMap)
	if err != nil {
		if te, ok := err.(*core.ToolInvocationError); ok {
			return nil, te
		}

		return nil, &core.ToolInvocationError{Tool: name, Code: core.ToolCodeExecution, Message: err.Error(), Err: err}
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, &core.ToolInvocationError{Tool: name, Code: core.ToolCodeExecution, Message: "result is not JSON serializable", Err: err}
	}

	return encoded, nil
}
