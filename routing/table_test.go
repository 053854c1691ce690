package routing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func travelTable(t *testing.T) *Table {
	t.Helper()

	tbl := NewTable()
	require.NoError(t, tbl.Register("triage", []string{"weather", "packing", "activities", "booking"}))
	require.NoError(t, tbl.Register("weather", []string{"packing", "activities"}))
	require.NoError(t, tbl.Register("packing", nil))
	require.NoError(t, tbl.Register("activities", []string{"booking"}))
	require.NoError(t, tbl.Register("booking", []string{"weather"}))
	require.NoError(t, tbl.Validate())

	return tbl
}

func TestTable_IsAllowed(t *testing.T) {
	tbl := travelTable(t)

	assert.True(t, tbl.IsAllowed("triage", "weather"))
	assert.True(t, tbl.IsAllowed("booking", "weather"))
	assert.False(t, tbl.IsAllowed("weather", "triage"))
	assert.False(t, tbl.IsAllowed("packing", "weather"))
	assert.False(t, tbl.IsAllowed("ghost", "weather"))
	assert.Equal(t, "triage", tbl.Start())
	assert.Equal(t, []string{"packing", "activities"}, tbl.Targets("weather"))
}

func TestTable_RegisterRejectsSelfLoop(t *testing.T) {
	tbl := NewTable()

	err := tbl.Register("a", []string{"a"})
	assert.True(t, errors.Is(err, ErrSelfLoop))
	assert.False(t, tbl.Has("a"))

	require.NoError(t, tbl.Register("b", []string{"b"}, AllowSelfLoop()))
	assert.True(t, tbl.IsAllowed("b", "b"))
}

func TestTable_RegisterRejectsDuplicatesAndEmpty(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register("a", nil))

	assert.ErrorIs(t, tbl.Register("a", nil), ErrDuplicateAgent)
	assert.ErrorIs(t, tbl.Register("", nil), ErrEmptyAgentID)
	assert.ErrorIs(t, tbl.Register("c", []string{""}), ErrEmptyAgentID)
}

func TestTable_ValidateReportsUnknownTargets(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register("a", []string{"b", "z"}))
	require.NoError(t, tbl.Register("b", []string{"y"}))

	err := tbl.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTarget)
	assert.Contains(t, err.Error(), "a -> z")
	assert.Contains(t, err.Error(), "b -> y")

	assert.ErrorIs(t, NewTable().Validate(), ErrEmptyTable)
}

func TestTable_ValidateUnknownStart(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register("a", nil))
	require.NoError(t, tbl.SetStart("nobody"))

	assert.ErrorIs(t, tbl.Validate(), ErrUnknownAgent)
}

func TestTable_Freeze(t *testing.T) {
	tbl := travelTable(t)
	tbl.Freeze()

	assert.True(t, tbl.Frozen())
	assert.ErrorIs(t, tbl.Register("late", nil), ErrFrozen)
	assert.ErrorIs(t, tbl.SetStart("weather"), ErrFrozen)
	assert.True(t, tbl.IsAllowed("triage", "booking"))
}

func TestTable_Reachable(t *testing.T) {
	tbl := travelTable(t)

	assert.Equal(t, []string{"activities", "booking", "packing", "weather"}, tbl.Reachable("triage"))
	assert.Equal(t, []string{"activities", "booking", "packing", "weather"}, tbl.Reachable("booking"))
	assert.Empty(t, tbl.Reachable("packing"))
}

// IsAllowed(a, b) holds iff b was registered as a target of a.
func TestTable_IsAllowedMatchesRegistration(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "agents")
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("agent-%d", i)
		}

		allowed := map[string]map[string]bool{}
		tbl := NewTable()

		for _, from := range names {
			allowed[from] = map[string]bool{}
			var targets []string
			for _, to := range names {
				if to == from {
					continue
				}
				if rapid.Bool().Draw(rt, from+"->"+to) {
					targets = append(targets, to)
					allowed[from][to] = true
				}
			}
			if err := tbl.Register(from, targets); err != nil {
				rt.Fatalf("register %s: %v", from, err)
			}
		}

		if err := tbl.Validate(); err != nil {
			rt.Fatalf("validate: %v", err)
		}

		for _, from := range names {
			for _, to := range names {
				if got := tbl.IsAllowed(from, to); got != allowed[from][to] {
					rt.Fatalf("IsAllowed(%s, %s) = %v, want %v", from, to, got, allowed[from][to])
				}
			}
		}
	})
}
