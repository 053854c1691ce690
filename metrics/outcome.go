package metrics

import (
	"context"
	"errors"

	"github.com/hupe1980/travelmesh/core"
)

// OutcomeOf maps a workflow error to a session outcome label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, core.ErrRouting):
		return OutcomeRouting
	case errors.Is(err, core.ErrMaxHopsExceeded):
		return OutcomeMaxHops
	case errors.Is(err, core.ErrAggregation):
		return OutcomeAggregation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
