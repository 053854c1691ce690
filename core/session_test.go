package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SnapshotRestore(t *testing.T) {
	s := NewSession("s1", 4)
	s.SetState("destination", "Tokyo")
	s.Metadata["mode"] = "handoff"
	s.AddUserInput("What's the weather like in Tokyo?")
	s.Activate("weather")
	require.NoError(t, s.Hops().Increment())

	restored := RestoreSession(s.Snapshot())

	assert.Equal(t, "s1", restored.ID)
	assert.Equal(t, "weather", restored.Active())
	assert.Equal(t, 1, restored.Hops().Count())
	assert.Equal(t, 4, restored.Hops().Max())
	assert.Equal(t, s.Transcript().Turns(), restored.Transcript().Turns())

	v, ok := restored.GetState("destination")
	require.True(t, ok)
	assert.Equal(t, "Tokyo", v)
	assert.Equal(t, "handoff", restored.Metadata["mode"])
}

func TestSession_CloneDiverges(t *testing.T) {
	s := NewSession("s2", 0)
	s.AddUserInput("hi")

	clone := s.Clone()
	clone.SetState("k", 1)
	clone.AddUserInput("more")

	_, exists := s.GetState("k")
	assert.False(t, exists)
	assert.Equal(t, 1, s.Transcript().Len())
	assert.Equal(t, 2, clone.Transcript().Len())
}
