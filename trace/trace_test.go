package trace

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/travelmesh/artifact"
	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/logging"
)

func ev(executor string, typ core.EventType, payload any) core.Event {
	return core.NewEvent("s1", executor, typ, payload)
}

func TestChannelSink(t *testing.T) {
	s := NewChannelSink(2)

	for i := 0; i < 5; i++ {
		s.Emit(ev("A", core.EventOutput, nil))
	}

	assert.Equal(t, int64(3), s.Dropped())
	assert.Len(t, s.Events(), 2)

	s.Close()
	s.Close()
	s.Emit(ev("A", core.EventOutput, nil))
	assert.Equal(t, int64(4), s.Dropped())

	var n int
	for range s.Events() {
		n++
	}

	assert.Equal(t, 2, n)
}

type capturingLogger struct {
	logging.NoOpLogger
	infos, errors, debugs []string
}

func (c *capturingLogger) Info(msg string, _ ...any)  { c.infos = append(c.infos, msg) }
func (c *capturingLogger) Error(msg string, _ ...any) { c.errors = append(c.errors, msg) }
func (c *capturingLogger) Debug(msg string, _ ...any) { c.debugs = append(c.debugs, msg) }

func TestLogSinkAndMultiSink(t *testing.T) {
	logger := &capturingLogger{}
	ch := NewChannelSink(10)
	multi := NewMultiSink(NewLogSink(logger), nil, ch)

	multi.Emit(ev("router", core.EventHandoff, core.HandoffPayload{From: "A", To: "B", Hop: 1}))
	multi.Emit(ev("A", core.EventStreamToken, "tok"))
	multi.Emit(ev("router", core.EventError, core.ErrorPayload{Agent: "A", Error: "boom"}))

	assert.Equal(t, []string{"event.handoff"}, logger.infos)
	assert.Equal(t, []string{"event.stream_token"}, logger.debugs)
	assert.Equal(t, []string{"event.error"}, logger.errors)
	assert.Len(t, ch.Events(), 3)
	assert.Len(t, multi, 2)
}

func fixedClock(start time.Time) func() time.Time {
	calls := 0
	return func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(1500 * time.Millisecond)
	}
}

func TestTracer(t *testing.T) {
	start := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	tr := NewTracer("handoff", "weather in Oslo?", func(o *TracerOptions) { o.Now = fixedClock(start) })

	tr.Emit(ev("Triage", core.EventInvoked, core.InvokedPayload{Agent: "Triage", Instructions: "route"}))
	tr.Emit(ev("Triage", core.EventComplete, core.CompletePayload{Agent: "Triage", Handoff: "Weather"}))
	tr.Emit(ev("router", core.EventHandoff, core.HandoffPayload{From: "Triage", To: "Weather", Hop: 1}))
	tr.Emit(ev("Weather", core.EventInvoked, core.InvokedPayload{Agent: "Weather", Instructions: "forecast", Tools: []string{"get_weather"}}))
	tr.Emit(ev("Weather", core.EventToolCall, core.ToolCallPayload{CallID: "c1", Tool: "get_weather", Arguments: `{"destination":"Oslo"}`}))
	tr.Emit(ev("Weather", core.EventToolCall, core.ToolCallPayload{CallID: "c1", Tool: "get_weather", Arguments: `{"destination":"Oslo"}`}))
	tr.Emit(ev("Weather", core.EventToolResult, core.ToolResultPayload{CallID: "c1", Tool: "get_weather", Result: `{"temp":3}`}))
	tr.Emit(ev("Weather", core.EventStreamToken, "Cold "))
	tr.Emit(ev("Weather", core.EventStreamToken, "and dry"))
	tr.Emit(ev("Weather", core.EventComplete, core.CompletePayload{Agent: "Weather", Duration: 40 * time.Millisecond}))
	tr.Emit(ev("Weather", core.EventFinal, core.FinalPayload{Agent: "Weather", Output: "Cold and dry"}))

	tr.Finish("")

	got := tr.Trace()
	assert.Equal(t, []string{"Weather"}, got.ExecutionOrder, "triage produced nothing and is dropped")
	assert.NotContains(t, got.Agents, "Triage")
	assert.Equal(t, []Handoff{{From: "Triage", To: "Weather"}}, got.Handoffs)

	w := got.Agents["Weather"]
	require.Len(t, w.ToolCalls, 1)
	assert.JSONEq(t, `{"temp":3}`, string(w.ToolCalls[0].Result))
	assert.Equal(t, "Cold and dry", w.Output)
	assert.Equal(t, int64(40), w.DurationMS)
	assert.Equal(t, "Cold and dry", got.FinalOutput)
	assert.Equal(t, 11, got.EventCount)

	assert.Equal(t, "Events: 11 | Agents: Weather | Duration: 1500ms", tr.Summary())
	assert.Equal(t, "trace_handoff_20250314_092653.json", tr.FileName())

	withSession := NewTracer("handoff", "q", func(o *TracerOptions) {
		o.Now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
		o.SessionID = "3f2a9c1e-77aa-4f00-9b1d-0c1e2f3a4b5c"
	})
	assert.Equal(t, "trace_handoff_20250314_092653_3f2a9c1e.json", withSession.FileName())
	assert.Equal(t, "3f2a9c1e-77aa-4f00-9b1d-0c1e2f3a4b5c", withSession.Trace().SessionID)

	store := artifact.NewInMemoryStore()
	id, err := tr.Save(context.Background(), store)
	require.NoError(t, err)

	data, err := store.Get(context.Background(), Namespace, id)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "weather in Oslo?", decoded["input"])
	assert.Contains(t, decoded, "execution_order")
	assert.Contains(t, decoded, "final_output")
}

func TestTracer_NonJSONToolValues(t *testing.T) {
	tr := NewTracer("sequential", "x")
	tr.Emit(ev("A", core.EventToolCall, core.ToolCallPayload{CallID: "1", Tool: "t", Arguments: "not json"}))
	tr.Emit(ev("A", core.EventToolResult, core.ToolResultPayload{CallID: "1", Tool: "t", Error: "boom"}))

	a := tr.Trace().Agents["A"]
	assert.Equal(t, `"not json"`, string(a.ToolCalls[0].Arguments))
	assert.Equal(t, "boom", a.ToolCalls[0].Error)
}
