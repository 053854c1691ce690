package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/travelmesh/core"
)

// Namespace is the artifact namespace traces are saved under.
const Namespace = "traces"

// ToolCallRecord is one tool invocation as seen in the event stream.
type ToolCallRecord struct {
	CallID    string          `json:"call_id"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result"`
	Error     string          `json:"error,omitempty"`
}

// AgentTrace aggregates what one agent did during a run.
type AgentTrace struct {
	Instructions   string           `json:"instructions"`
	ToolsAvailable []string         `json:"tools_available"`
	ToolCalls      []ToolCallRecord `json:"tool_calls"`
	Output         string           `json:"output"`
	DurationMS     int64            `json:"duration_ms,omitempty"`
}

// Handoff is one transition of the handoff chain.
type Handoff struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Trace is the saved document.
type Trace struct {
	Timestamp      time.Time              `json:"timestamp"`
	SessionID      string                 `json:"session_id,omitempty"`
	Mode           string                 `json:"mode"`
	Input          string                 `json:"input"`
	Agents         map[string]*AgentTrace `json:"agents"`
	ExecutionOrder []string               `json:"execution_order"`
	Handoffs       []Handoff              `json:"handoffs"`
	FinalOutput    string                 `json:"final_output"`
	Error          string                 `json:"error,omitempty"`
	DurationMS     int64                  `json:"duration_ms"`
	EventCount     int                    `json:"event_count"`
}

// TracerOptions configure a Tracer.
type TracerOptions struct {
	// Now returns the current time; tests pin it.
	Now func() time.Time
	// SessionID identifies the traced session and keeps file names unique.
	SessionID string
}

// Tracer is a core.Sink that builds a Trace from the events of one run.
type Tracer struct {
	mu      sync.Mutex
	now     func() time.Time
	start   time.Time
	trace   Trace
	buffers map[string]*strings.Builder
	seen    map[string]struct{}
}

// NewTracer starts a trace for one run.
func NewTracer(mode, input string, optFns ...func(o *TracerOptions)) *Tracer {
	opts := TracerOptions{Now: time.Now}

	for _, fn := range optFns {
		fn(&opts)
	}

	start := opts.Now()

	return &Tracer{
		now:   opts.Now,
		start: start,
		trace: Trace{
			Timestamp:      start,
			SessionID:      opts.SessionID,
			Mode:           mode,
			Input:          input,
			Agents:         map[string]*AgentTrace{},
			ExecutionOrder: []string{},
			Handoffs:       []Handoff{},
		},
		buffers: map[string]*strings.Builder{},
		seen:    map[string]struct{}{},
	}
}

// Emit implements core.Sink.
func (t *Tracer) Emit(ev core.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.trace.EventCount++

	switch p := ev.Payload.(type) {
	case core.InvokedPayload:
		a := t.ensureAgent(p.Agent)
		if a.Instructions == "" {
			a.Instructions = p.Instructions
		}

		if len(a.ToolsAvailable) == 0 && len(p.Tools) > 0 {
			a.ToolsAvailable = append([]string(nil), p.Tools...)
		}

		if !contains(t.trace.ExecutionOrder, p.Agent) {
			t.trace.ExecutionOrder = append(t.trace.ExecutionOrder, p.Agent)
		}
	case core.CompletePayload:
		a := t.ensureAgent(p.Agent)
		a.DurationMS += p.Duration.Milliseconds()

		if buf, ok := t.buffers[p.Agent]; ok {
			if a.Output == "" && strings.TrimSpace(buf.String()) != "" {
				a.Output = buf.String()
			}

			delete(t.buffers, p.Agent)
		}
	case core.OutputPayload:
		if p.Text != "" {
			t.ensureAgent(p.Agent).Output = p.Text
		}
	case core.HandoffPayload:
		t.trace.Handoffs = append(t.trace.Handoffs, Handoff{From: p.From, To: p.To})
	case core.ToolCallPayload:
		key := ev.ExecutorID + ":" + p.CallID
		if _, dup := t.seen[key]; dup {
			return
		}

		t.seen[key] = struct{}{}

		a := t.ensureAgent(ev.ExecutorID)
		a.ToolCalls = append(a.ToolCalls, ToolCallRecord{CallID: p.CallID, Tool: p.Tool, Arguments: rawJSON(p.Arguments)})
	case core.ToolResultPayload:
		a, ok := t.trace.Agents[ev.ExecutorID]
		if !ok {
			return
		}

		for i := range a.ToolCalls {
			if a.ToolCalls[i].CallID == p.CallID && a.ToolCalls[i].Result == nil && a.ToolCalls[i].Error == "" {
				a.ToolCalls[i].Result = rawJSON(p.Result)
				a.ToolCalls[i].Error = p.Error

				break
			}
		}
	case core.FinalPayload:
		t.trace.FinalOutput = p.Output
	case core.ErrorPayload:
		t.trace.Error = p.Error
	case string:
		if ev.Type == core.EventStreamToken {
			buf, ok := t.buffers[ev.ExecutorID]
			if !ok {
				buf = &strings.Builder{}
				t.buffers[ev.ExecutorID] = buf
			}

			buf.WriteString(p)
		}
	}
}

// Finish records the final output and duration and removes agents that
// produced neither output nor tool calls.
func (t *Tracer) Finish(output string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if output != "" {
		t.trace.FinalOutput = output
	}

	t.trace.DurationMS = t.now().Sub(t.start).Milliseconds()

	for name, buf := range t.buffers {
		if a, ok := t.trace.Agents[name]; ok && a.Output == "" && strings.TrimSpace(buf.String()) != "" {
			a.Output = buf.String()
		}
	}

	t.buffers = map[string]*strings.Builder{}

	order := t.trace.ExecutionOrder[:0]

	for _, name := range t.trace.ExecutionOrder {
		a := t.trace.Agents[name]
		if a == nil || (a.Output == "" && len(a.ToolCalls) == 0) {
			delete(t.trace.Agents, name)
			continue
		}

		order = append(order, name)
	}

	t.trace.ExecutionOrder = order
}

// Trace returns a deep copy of the current trace.
func (t *Tracer) Trace() Trace {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.trace
	out.Agents = make(map[string]*AgentTrace, len(t.trace.Agents))

	for name, a := range t.trace.Agents {
		cp := *a
		cp.ToolCalls = append([]ToolCallRecord(nil), a.ToolCalls...)
		cp.ToolsAvailable = append([]string(nil), a.ToolsAvailable...)
		out.Agents[name] = &cp
	}

	out.ExecutionOrder = append([]string(nil), t.trace.ExecutionOrder...)
	out.Handoffs = append([]Handoff(nil), t.trace.Handoffs...)

	return out
}

// Summary returns a one-line digest: "Events: N | Agents: a → b | Duration: Xms".
func (t *Tracer) Summary() string {
	tr := t.Trace()

	return fmt.Sprintf("Events: %d | Agents: %s | Duration: %dms", tr.EventCount, strings.Join(tr.ExecutionOrder, " → "), tr.DurationMS)
}

// FileName returns trace_<mode>_<YYYYMMDD_HHMMSS>_<session>.json, where
// session is the first eight characters of the session id. Without a session
// id the suffix is omitted.
func (t *Tracer) FileName() string {
	name := "trace_" + t.trace.Mode + "_" + t.start.Format("20060102_150405")

	if sid := t.trace.SessionID; sid != "" {
		if len(sid) > 8 {
			sid = sid[:8]
		}

		name += "_" + sid
	}

	return name + ".json"
}

// Save writes the indented JSON trace to store under Namespace and returns
// the artifact id.
func (t *Tracer) Save(ctx context.Context, store core.ArtifactStore) (string, error) {
	data, err := json.MarshalIndent(t.Trace(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode trace: %w", err)
	}

	id := t.FileName()
	if err := store.Save(ctx, Namespace, id, data); err != nil {
		return "", fmt.Errorf("save trace %s: %w", id, err)
	}

	return id, nil
}

func (t *Tracer) ensureAgent(name string) *AgentTrace {
	a, ok := t.trace.Agents[name]
	if !ok {
		a = &AgentTrace{ToolsAvailable: []string{}, ToolCalls: []ToolCallRecord{}}
		t.trace.Agents[name] = a
	}

	return a
}

// rawJSON keeps valid JSON as-is and quotes anything else.
func rawJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}

	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}

	quoted, _ := json.Marshal(s)

	return quoted
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}
