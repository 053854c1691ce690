package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_AppendAssignsIndexAndTimestamp(t *testing.T) {
	tr := NewTranscript()

	first := tr.Append(UserTurn("hello"))
	second := tr.Append(AgentTurn("triage", "hi there"))

	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 1, second.Index)
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, 2, tr.Len())

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, "triage", last.Speaker)
}

func TestTranscript_TurnsAreCopies(t *testing.T) {
	tr := NewTranscript()
	tr.Append(TransitionTurn("a", "b", ""))

	turns := tr.Turns()
	turns[0].Content = "changed"
	turns[0].Metadata[MetaTo] = "z"

	again := tr.Turns()
	assert.Equal(t, "handoff: a -> b", again[0].Content)
	assert.Equal(t, "b", again[0].Metadata[MetaTo])
}

func TestTranscript_AppendCopiesMetadata(t *testing.T) {
	tr := NewTranscript()
	md := map[string]string{MetaTool: "get_weather"}
	tr.Append(Turn{Speaker: "weather", Role: RoleTool, Kind: TurnToolResult, Metadata: md})

	md[MetaTool] = "mutated"

	turns := tr.Turns()
	assert.Equal(t, "get_weather", turns[0].Metadata[MetaTool])
}

func TestTranscript_ForkIsIndependent(t *testing.T) {
	tr := NewTranscript(UserTurn("q"))
	fork := tr.Fork()

	fork.Append(AgentTurn("weather", "sunny"))

	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, 2, fork.Len())

	diff := cmp.Diff(tr.Turns(), fork.Since(0)[:1], cmpopts.EquateEmpty())
	assert.Empty(t, diff)
}

func TestTranscript_Since(t *testing.T) {
	tr := NewTranscript(UserTurn("a"), AgentTurn("x", "b"), AgentTurn("y", "c"))

	assert.Len(t, tr.Since(1), 2)
	assert.Empty(t, tr.Since(5))
	assert.Len(t, tr.Since(-1), 3)
}

func TestTranscript_LastUserInput(t *testing.T) {
	tr := NewTranscript(UserTurn("first"), AgentTurn("x", "answer"), UserTurn("second"), AgentTurn("x", "again"))
	assert.Equal(t, "second", tr.LastUserInput())
	assert.Equal(t, "", NewTranscript().LastUserInput())
}

func TestTranscript_ConcurrentAppendKeepsDenseIndexes(t *testing.T) {
	tr := NewTranscript()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tr.Append(AgentTurn(fmt.Sprintf("agent-%d", n), "x"))
		}(i)
	}
	wg.Wait()

	turns := tr.Turns()
	require.Len(t, turns, 50)
	for i, turn := range turns {
		assert.Equal(t, i, turn.Index)
	}
}
