package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds_MatchSentinels(t *testing.T) {
	routing := fmt.Errorf("wrapped: %w", &RoutingError{From: "a", To: "z", Reason: "unknown target"})
	assert.True(t, errors.Is(routing, ErrRouting))
	assert.False(t, errors.Is(routing, ErrMaxHopsExceeded))

	toolErr := &ToolInvocationError{Tool: "get_weather", Code: ToolCodeExecution, Message: "boom", Err: errors.New("boom")}
	assert.True(t, errors.Is(toolErr, ErrToolInvocation))
	assert.Contains(t, toolErr.Error(), "EXECUTION_ERROR")

	cause := errors.New("branch exploded")
	agg := &AggregationError{Policy: "fail_fast", Failures: []BranchFailure{{Index: 1, Branch: "p.weather", Err: cause}}}
	assert.True(t, errors.Is(agg, ErrAggregation))
	assert.True(t, errors.Is(agg, cause))
	assert.Contains(t, agg.Error(), "p.weather")
}

func TestSessionError_CarriesTranscript(t *testing.T) {
	turns := []Turn{AgentTurn("a", "")}
	err := fmt.Errorf("run: %w", &SessionError{
		SessionID:  "s1",
		Agent:      "a",
		Err:        &RoutingError{From: "a", To: "z", Reason: "not permitted"},
		Transcript: turns,
	})

	assert.True(t, errors.Is(err, ErrRouting))

	partial, ok := PartialTranscript(err)
	require.True(t, ok)
	assert.Len(t, partial, 1)

	_, ok = PartialTranscript(errors.New("plain"))
	assert.False(t, ok)
}
