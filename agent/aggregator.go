package agent

import (
	"fmt"
	"strings"
	"time"
)

// FailurePolicy decides how a ConcurrentAgent reacts to failed branches.
type FailurePolicy string

const (
	// FailFast cancels the remaining branches on the first failure and fails
	// the fan-out.
	FailFast FailurePolicy = "fail_fast"
	// BestEffort lets every branch finish and aggregates the successful ones
	// as long as at least MinSuccesses succeeded.
	BestEffort FailurePolicy = "best_effort"
)

// ParseFailurePolicy converts a configuration value into a FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailFast:
		return FailFast, nil
	case BestEffort:
		return BestEffort, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

// BranchResult is the slot filled by one concurrent branch. Slots are indexed
// by registration order, never by completion order.
type BranchResult struct {
	Index    int
	Agent    string
	Branch   string
	Output   string
	Err      error
	Duration time.Duration
	// State holds the keys the branch wrote; merged into the session in slot order.
	State map[string]any
}

// OK reports whether the branch succeeded.
func (r BranchResult) OK() bool { return r.Err == nil }

// Aggregator merges the slots of a completed fan-out into one answer.
// Implementations must be pure functions of the slots.
type Aggregator interface {
	Aggregate(slots []BranchResult) (string, error)
}

// AggregatorFunc adapts a function to Aggregator.
type AggregatorFunc func(slots []BranchResult) (string, error)

// Aggregate implements Aggregator.
func (f AggregatorFunc) Aggregate(slots []BranchResult) (string, error) { return f(slots) }

// NoResponse is rendered for a successful branch with empty output.
const NoResponse = "(no response)"

// SectionAggregator renders one "━━━ NAME ━━━" section per successful branch
// in slot order, separated by blank lines.
type SectionAggregator struct{}

// Aggregate implements Aggregator.
func (SectionAggregator) Aggregate(slots []BranchResult) (string, error) {
	sections := make([]string, 0, len(slots))

	for _, s := range slots {
		if !s.OK() {
			continue
		}

		text := s.Output
		if strings.TrimSpace(text) == "" {
			text = NoResponse
		}

		sections = append(sections, fmt.Sprintf("━━━ %s ━━━\n%s", strings.ToUpper(s.Agent), text))
	}

	return strings.Join(sections, "\n\n"), nil
}
