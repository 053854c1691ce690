package core

import (
	"sync"
	"time"
)

// Transcript is the append-only conversation log shared by every agent of a
// session. It is safe for concurrent use.
//
// Contract:
//   - Append assigns a monotonically increasing Index (and Timestamp if unset)
//   - Stored turns are never mutated or removed
//   - Readers always receive copies
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewTranscript creates a transcript pre-populated with turns (re-indexed in order).
func NewTranscript(turns ...Turn) *Transcript {
	t := &Transcript{turns: make([]Turn, 0, len(turns))}
	for _, turn := range turns {
		t.Append(turn)
	}

	return t
}

// Append stores a copy of turn and returns the stored value.
func (t *Transcript) Append(turn Turn) Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	turn = turn.clone()
	turn.Index = len(t.turns)

	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	t.turns = append(t.turns, turn)

	return turn.clone()
}

// Turns returns a copy of all turns in append order.
func (t *Transcript) Turns() []Turn {
	return t.Since(0)
}

// Since returns a copy of the turns with Index >= from.
func (t *Transcript) Since(from int) []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if from < 0 {
		from = 0
	}

	if from >= len(t.turns) {
		return []Turn{}
	}

	out := make([]Turn, 0, len(t.turns)-from)
	for _, turn := range t.turns[from:] {
		out = append(out, turn.clone())
	}

	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.turns)
}

// Last returns the most recent turn.
func (t *Transcript) Last() (Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.turns) == 0 {
		return Turn{}, false
	}

	return t.turns[len(t.turns)-1].clone(), true
}

// LastUserInput returns the content of the most recent user message.
func (t *Transcript) LastUserInput() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Role == RoleUser && t.turns[i].Kind == TurnMessage {
			return t.turns[i].Content
		}
	}

	return ""
}

// Fork returns an independent transcript starting with a copy of the current
// turns. Used to give concurrent branches an isolated view.
func (t *Transcript) Fork() *Transcript {
	t.mu.RLock()
	defer t.mu.RUnlock()

	turns := make([]Turn, len(t.turns))
	for i, turn := range t.turns {
		turns[i] = turn.clone()
	}

	return &Transcript{turns: turns}
}
