package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/travelmesh/logging"
)

type stubAgent struct {
	name string
	run  func(*RunContext) (Result, error)
}

func (s *stubAgent) Name() string                       { return s.name }
func (s *stubAgent) Description() string                { return "stub" }
func (s *stubAgent) Run(rc *RunContext) (Result, error) { return s.run(rc) }
func (s *stubAgent) Instructions() string               { return "be brief" }
func (s *stubAgent) ToolNames() []string                { return []string{"get_weather"} }

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestInvokeAgent_EmitsLifecycleEvents(t *testing.T) {
	sink := &recordingSink{}
	sess := NewSession("s1", 0)
	sess.AddUserInput("weather?")

	rc := NewRunContext(context.Background(), sess, AgentInfo{Name: "weather", Type: "stub"}, func(o *RunOptions) {
		o.Sink = sink
		o.HandoffTargets = []string{"packing"}
	})

	a := &stubAgent{name: "weather", run: func(rc *RunContext) (Result, error) {
		assert.Equal(t, "weather?", rc.Input())
		assert.True(t, rc.CanHandoffTo("packing"))
		return Handoff("packing", "needs a list"), nil
	}}

	res, err := InvokeAgent(rc, a)
	require.NoError(t, err)
	assert.True(t, res.IsHandoff())

	require.Len(t, sink.events, 2)
	assert.Equal(t, EventInvoked, sink.events[0].Type)
	invoked := sink.events[0].Payload.(InvokedPayload)
	assert.Equal(t, "be brief", invoked.Instructions)
	assert.Equal(t, []string{"get_weather"}, invoked.Tools)

	assert.Equal(t, EventComplete, sink.events[1].Type)
	assert.Equal(t, "packing", sink.events[1].Payload.(CompletePayload).Handoff)
}

func TestInvokeAgent_RecoversPanic(t *testing.T) {
	sess := NewSession("s1", 0)
	rc := NewRunContext(context.Background(), sess, AgentInfo{Name: "x"})

	_, err := InvokeAgent(rc, &stubAgent{name: "x", run: func(*RunContext) (Result, error) {
		panic("kaboom")
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRunContext_ForkIsolatesTranscript(t *testing.T) {
	sess := NewSession("s1", 0)
	sess.AddUserInput("q")
	rc := NewRunContext(context.Background(), sess, AgentInfo{Name: "fanout"})

	branch := rc.Fork("fanout.weather", AgentInfo{Name: "weather"})
	branch.Record(AgentTurn("weather", "sunny"))

	assert.Equal(t, 1, sess.Transcript().Len())
	assert.Equal(t, 2, branch.Transcript().Len())
	assert.Empty(t, branch.HandoffTargets())
	assert.Equal(t, "fanout.weather", branch.Branch)
}

func TestRunContext_ForkIsolatesState(t *testing.T) {
	sess := NewSession("s1", 0)
	sess.SetState("destination", "Tokyo")
	rc := NewRunContext(context.Background(), sess, AgentInfo{Name: "fanout"})

	branch := rc.Fork("fanout.weather", AgentInfo{Name: "weather"})
	branch.SetState("weather_summary", "Sunny, 22°C")

	v, ok := branch.GetState("destination")
	require.True(t, ok)
	assert.Equal(t, "Tokyo", v)

	_, ok = sess.GetState("weather_summary")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"weather_summary": "Sunny, 22°C"}, branch.StateChanges())
	assert.Equal(t, map[string]any{"destination": "Tokyo", "weather_summary": "Sunny, 22°C"}, branch.State())

	tc := NewToolContext(branch, "c1")
	tc.SetState("origin", "Dublin")
	_, ok = sess.GetState("origin")
	assert.False(t, ok)

	rc.MergeState(branch.StateChanges())
	v, _ = sess.GetState("weather_summary")
	assert.Equal(t, "Sunny, 22°C", v)
	v, _ = sess.GetState("origin")
	assert.Equal(t, "Dublin", v)
	assert.Empty(t, rc.StateChanges())
}

func TestRunContext_LogAttributes(t *testing.T) {
	var buf bytes.Buffer

	logger := logging.NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	sess := NewSession("s1", 0)
	rc := NewRunContext(context.Background(), sess, AgentInfo{Name: "fanout"}, func(o *RunOptions) { o.Logger = logger })

	rc.LogInfo("agent.start", "agent", "fanout")
	rc.Fork("fanout.weather", AgentInfo{Name: "weather"}).LogWarn("agent.branch", "agent", "weather")
	NewToolContext(rc, "call_1").LogDebug("tool.run")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	decode := func(line string) map[string]any {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))

		return m
	}

	first := decode(lines[0])
	assert.Equal(t, "s1", first["session_id"])
	assert.NotContains(t, first, "branch")

	second := decode(lines[1])
	assert.Equal(t, "s1", second["session_id"])
	assert.Equal(t, "fanout.weather", second["branch"])

	third := decode(lines[2])
	assert.Equal(t, "call_1", third["function_call_id"])
	assert.NotContains(t, third, "branch")
}
