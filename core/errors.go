package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRouting matches any *RoutingError.
	ErrRouting = errors.New("routing error")
	// ErrMaxHopsExceeded matches any *MaxHopsExceededError.
	ErrMaxHopsExceeded = errors.New("max hops exceeded")
	// ErrToolInvocation matches any *ToolInvocationError.
	ErrToolInvocation = errors.New("tool invocation failed")
	// ErrAggregation matches any *AggregationError.
	ErrAggregation = errors.New("aggregation failed")
	// ErrSessionNotFound is returned by session stores for unknown ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrModelCallLimit is returned when an agent exceeds its model call budget.
	ErrModelCallLimit = errors.New("exceeded max model calls")
)

// RoutingError reports a handoff to a target the routing table does not permit.
type RoutingError struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing error: %s -> %s: %s", e.From, e.To, e.Reason)
}

// Is makes errors.Is(err, ErrRouting) succeed.
func (e *RoutingError) Is(target error) bool { return target == ErrRouting }

// MaxHopsExceededError reports that the cycle guard tripped.
type MaxHopsExceededError struct {
	Max  int    `json:"max"`
	Hops int    `json:"hops"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

func (e *MaxHopsExceededError) Error() string {
	if e.From != "" {
		return fmt.Sprintf("max hops exceeded: %d transitions performed, limit %d (rejected %s -> %s)", e.Hops, e.Max, e.From, e.To)
	}

	return fmt.Sprintf("max hops exceeded: %d transitions performed, limit %d", e.Hops, e.Max)
}

// Is makes errors.Is(err, ErrMaxHopsExceeded) succeed.
func (e *MaxHopsExceededError) Is(target error) bool { return target == ErrMaxHopsExceeded }

// Tool error codes.
const (
	ToolCodeNotFound   = "NOT_FOUND"
	ToolCodeArguments  = "INVALID_ARGUMENTS"
	ToolCodeValidation = "VALIDATION_ERROR"
	ToolCodeExecution  = "EXECUTION_ERROR"
	ToolCodePanic      = "PANIC"
)

// ToolInvocationError reports a failed tool call. It is surfaced to the
// calling agent and is not fatal to the session.
type ToolInvocationError struct {
	Tool    string `json:"tool"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *ToolInvocationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}

	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ToolInvocationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrToolInvocation) succeed.
func (e *ToolInvocationError) Is(target error) bool { return target == ErrToolInvocation }

// BranchFailure describes one failed branch of a concurrent fan-out.
type BranchFailure struct {
	Index  int    `json:"index"`
	Branch string `json:"branch"`
	Err    error  `json:"-"`
}

// AggregationError reports that the concurrent failure policy was violated.
type AggregationError struct {
	Policy    string          `json:"policy"`
	Succeeded int             `json:"succeeded"`
	Failures  []BranchFailure `json:"failures"`
}

func (e *AggregationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Branch, f.Err))
	}

	return fmt.Sprintf("aggregation failed (policy %s, %d succeeded): %s", e.Policy, e.Succeeded, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrAggregation) succeed.
func (e *AggregationError) Is(target error) bool { return target == ErrAggregation }

// Unwrap exposes the branch errors to errors.Is / errors.As.
func (e *AggregationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}

	return errs
}

// SessionError wraps a fatal session failure together with the transcript as
// it stood when the session stopped.
type SessionError struct {
	SessionID  string `json:"session_id"`
	Agent      string `json:"agent"`
	Err        error  `json:"-"`
	Transcript []Turn `json:"transcript"`
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s failed at agent %s: %v", e.SessionID, e.Agent, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SessionError) Unwrap() error { return e.Err }

// PartialTranscript extracts the transcript attached to a *SessionError in err's chain.
func PartialTranscript(err error) ([]Turn, bool) {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Transcript, true
	}

	return nil, false
}
