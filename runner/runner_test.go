package runner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/travelmesh/agent"
	"github.com/hupe1980/travelmesh/artifact"
	"github.com/hupe1980/travelmesh/config"
	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/internal/testutil"
	"github.com/hupe1980/travelmesh/metrics"
	"github.com/hupe1980/travelmesh/session"
	"github.com/hupe1980/travelmesh/trace"
	"github.com/hupe1980/travelmesh/travel"
)

type fixture struct {
	runner    *Runner
	sessions  *session.InMemoryStore
	artifacts *artifact.InMemoryStore
	sink      *testutil.RecordingSink
	registry  *prometheus.Registry
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	agents, err := travel.NewRuleAgents(cfg)
	require.NoError(t, err)

	return newFixtureWith(t, cfg, agents)
}

func newFixtureWith(t *testing.T, cfg *config.Config, agents []core.Agent) *fixture {
	t.Helper()

	f := &fixture{
		sessions:  session.NewInMemoryStore(),
		artifacts: artifact.NewInMemoryStore(),
		sink:      testutil.NewRecordingSink(),
		registry:  prometheus.NewRegistry(),
	}

	r, err := New(cfg, agents, func(o *Options) {
		o.Sink = f.sink
		o.Metrics = metrics.NewCollector("travelmesh", f.registry)
		o.SessionStore = f.sessions
		o.ArtifactStore = f.artifacts
		o.SaveTraces = true
		o.Now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	})
	require.NoError(t, err)

	f.runner = r

	return f
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"handoff", "Sequential", " concurrent "} {
		_, err := ParseMode(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseMode("swarm")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestRunner_Handoff(t *testing.T) {
	f := newFixture(t, config.Default())

	out, err := f.runner.Run(context.Background(), ModeHandoff, "What's the weather in Reykjavik and what should I pack for hiking?")
	require.NoError(t, err)

	assert.Equal(t, ModeHandoff, out.Mode)
	assert.Equal(t, "packing", out.FinalAgent)
	assert.Equal(t, 2, out.Hops)
	assert.Len(t, out.Handoffs, 2)
	assert.Contains(t, out.Output, "Packing list for a hiking trip")
	assert.Equal(t, "handoff", out.Trace.Mode)
	assert.Contains(t, out.Trace.ExecutionOrder, "weather")

	finals := f.sink.OfType(core.EventFinal)
	require.Len(t, finals, 1)
	assert.Equal(t, "packing", finals[0].Payload.(core.FinalPayload).Agent)

	// Trace persisted under its file name.
	ids, err := f.artifacts.List(context.Background(), trace.Namespace)
	require.NoError(t, err)
	require.Equal(t, []string{out.TraceID}, ids)

	data, err := f.artifacts.Get(context.Background(), trace.Namespace, out.TraceID)
	require.NoError(t, err)

	var saved trace.Trace
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, out.Output, saved.FinalOutput)

	// Session persisted with the full transcript.
	sess, err := f.sessions.Get(context.Background(), out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "packing", sess.Active())
	assert.Equal(t, 2, sess.Hops().Count())
	assert.Equal(t, "handoff", sess.Metadata["mode"])
	assert.Len(t, sess.Transcript().Turns(), len(out.Transcript))

	n, err := promtest.GatherAndCount(f.registry, "travelmesh_sessions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.runner.Active())
}

func TestRunner_Sequential(t *testing.T) {
	f := newFixture(t, config.Default())

	out, err := f.runner.Run(context.Background(), ModeSequential, "What should I pack for a beach trip to Bali?")
	require.NoError(t, err)

	assert.Equal(t, SequentialName, out.FinalAgent)
	assert.Equal(t, 0, out.Hops)
	assert.Empty(t, out.Handoffs)
	assert.Contains(t, out.Output, "[weather]: Current weather in Bali: Sunny")
	assert.Contains(t, out.Output, "\n\n[packing]: Packing list for a beach trip (Sunny")

	finals := f.sink.OfType(core.EventFinal)
	require.Len(t, finals, 1)
	assert.Equal(t, SequentialName, finals[0].Payload.(core.FinalPayload).Agent)
}

func TestRunner_Concurrent(t *testing.T) {
	f := newFixture(t, config.Default())

	out, err := f.runner.Run(context.Background(), ModeConcurrent,
		"Tell me everything about travelling to Galway, Ireland. Check the weather, find flights from Dublin, and suggest activities.")
	require.NoError(t, err)

	assert.Equal(t, ConcurrentName, out.FinalAgent)
	assert.Contains(t, out.Output, "━━━ WEATHER ━━━")
	assert.Contains(t, out.Output, "━━━ ACTIVITIES ━━━")
	assert.Contains(t, out.Output, "━━━ BOOKING ━━━")
	assert.Contains(t, out.Output, "Flights Dublin → Galway")
	assert.Empty(t, f.sink.OfType(core.EventError))
}

func TestRunner_TracesDoNotCollide(t *testing.T) {
	cfg := config.Default()
	cfg.Trace.Dir = t.TempDir()

	agents, err := travel.NewRuleAgents(cfg)
	require.NoError(t, err)

	store := artifact.NewFileStore(cfg.Trace.Dir)

	// The pinned clock gives every run the same timestamp.
	r, err := New(cfg, agents, func(o *Options) {
		o.ArtifactStore = store
		o.SaveTraces = true
		o.Now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	})
	require.NoError(t, err)

	var ids []string

	for _, input := range []string{"What's the weather like in Tokyo?", "Find me flights from Dublin to Barcelona"} {
		out, err := r.Run(context.Background(), ModeHandoff, input)
		require.NoError(t, err)
		assert.Contains(t, out.TraceID, out.SessionID[:8])
		ids = append(ids, out.TraceID)
	}

	assert.NotEqual(t, ids[0], ids[1])

	files, err := store.List(context.Background(), trace.Namespace)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, files)
}

func TestRunner_MaxHopsExceeded(t *testing.T) {
	cfg := config.Default()
	cfg.MaxHops = 1

	f := newFixture(t, cfg)

	out, err := f.runner.Run(context.Background(), ModeHandoff, "What's the weather in Reykjavik and what should I pack for hiking?")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMaxHopsExceeded)

	var se *core.SessionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, out.SessionID, se.SessionID)
	assert.Equal(t, 1, out.Hops)

	require.NotEmpty(t, f.sink.OfType(core.EventError))

	// Failed sessions are still persisted and traced.
	_, err = f.sessions.Get(context.Background(), out.SessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, out.TraceID)
	assert.NotEmpty(t, out.Trace.Error)
}

func TestRunner_Continue(t *testing.T) {
	f := newFixture(t, config.Default())
	ctx := context.Background()

	first, err := f.runner.Run(ctx, ModeHandoff, "What's the weather like in Tokyo?")
	require.NoError(t, err)
	require.Equal(t, "weather", first.FinalAgent)

	second, err := f.runner.Continue(ctx, first.SessionID, "What should I pack for a city trip?")
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "packing", second.FinalAgent)
	assert.Equal(t, 2, second.Hops)
	assert.Contains(t, second.Output, "Packing list for a city trip (Overcast with Rain, 8°C)")
	assert.Greater(t, len(second.Transcript), len(first.Transcript))
}

func TestRunner_ContinueErrors(t *testing.T) {
	f := newFixture(t, config.Default())
	ctx := context.Background()

	_, err := f.runner.Continue(ctx, "missing", "hello")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	out, err := f.runner.Run(ctx, ModeSequential, "What should I pack for a beach trip to Bali?")
	require.NoError(t, err)

	_, err = f.runner.Continue(ctx, out.SessionID, "and for a city trip?")
	assert.ErrorIs(t, err, ErrNotResumable)
}

func TestRunner_Cancel(t *testing.T) {
	cfg := config.Default()

	agents, err := travel.NewRuleAgents(cfg)
	require.NoError(t, err)

	started := make(chan struct{})
	agents[0] = agent.NewFuncAgent("triage", "blocks until canceled", func(runCtx *core.RunContext) (core.Result, error) {
		close(started)
		<-runCtx.Done()

		return core.Result{}, runCtx.Err()
	})

	f := newFixtureWith(t, cfg, agents)

	errCh := make(chan error, 1)

	go func() {
		_, err := f.runner.Run(context.Background(), ModeHandoff, "hello")
		errCh <- err
	}()

	<-started

	active := f.runner.Active()
	require.Len(t, active, 1)
	require.NoError(t, f.runner.Cancel(active[0]))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run was not canceled")
	}

	assert.ErrorIs(t, f.runner.Cancel(active[0]), ErrRunNotFound)

	// Canceled runs are still persisted.
	_, err = f.sessions.Get(context.Background(), active[0])
	assert.NoError(t, err)
}

func TestNew_Validation(t *testing.T) {
	cfg := config.Default()

	agents, err := travel.NewRuleAgents(cfg)
	require.NoError(t, err)

	_, err = New(cfg, agents[:3])
	assert.Error(t, err)

	bad := config.Default()
	bad.StartAgent = "nowhere"

	_, err = New(bad, agents)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestRunner_UnknownMode(t *testing.T) {
	f := newFixture(t, config.Default())

	_, err := f.runner.Run(context.Background(), Mode("swarm"), "hello")
	assert.ErrorIs(t, err, ErrUnknownMode)
	assert.Empty(t, f.sessions.IDs())
}
