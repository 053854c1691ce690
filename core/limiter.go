package core

import (
	"fmt"
	"sync"
)

// DefaultMaxHops bounds handoffs for sessions created without an explicit limit.
const DefaultMaxHops = 10

// HopCounter counts handoff transitions of a session and enforces an upper
// bound. The count never decreases and always equals the number of
// transitions actually performed.
type HopCounter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewHopCounter creates a counter allowing at most max transitions.
// If max <= 0, DefaultMaxHops is used.
func NewHopCounter(max int) *HopCounter {
	if max <= 0 {
		max = DefaultMaxHops
	}

	return &HopCounter{max: max}
}

// Increment records one transition. It returns a *MaxHopsExceededError and
// leaves the count unchanged if the transition would exceed the bound.
func (hc *HopCounter) Increment() error {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if hc.count+1 > hc.max {
		return &MaxHopsExceededError{Max: hc.max, Hops: hc.count}
	}

	hc.count++

	return nil
}

// Count returns the number of transitions performed.
func (hc *HopCounter) Count() int {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	return hc.count
}

// Max returns the configured bound.
func (hc *HopCounter) Max() int { return hc.max }

// Remaining returns how many transitions are left before hitting the bound.
func (hc *HopCounter) Remaining() int {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	return hc.max - hc.count
}

// restore sets the count when rehydrating a persisted session.
func (hc *HopCounter) restore(count int) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if count > hc.count {
		hc.count = count
	}
}

// CallLimiter enforces a maximum number of model calls per agent invocation.
type CallLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewCallLimiter creates a new limiter with a max number of calls.
// If max == 0, unlimited calls are allowed.
func NewCallLimiter(max int) *CallLimiter {
	return &CallLimiter{max: max}
}

// Increment increases the call counter and returns an error if the limit is exceeded.
func (cl *CallLimiter) Increment() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.count++
	if cl.max > 0 && cl.count > cl.max {
		return fmt.Errorf("%w: %d", ErrModelCallLimit, cl.max)
	}

	return nil
}

// Count returns the current number of calls made.
func (cl *CallLimiter) Count() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	return cl.count
}
