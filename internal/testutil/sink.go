package testutil

import (
	"sync"

	"github.com/hupe1980/travelmesh/core"
)

// RecordingSink collects every emitted event. It is safe for concurrent use.
type RecordingSink struct {
	mu     sync.Mutex
	events []core.Event
}

// NewRecordingSink returns an empty sink.
func NewRecordingSink() *RecordingSink { return &RecordingSink{} }

// Emit implements core.Sink.
func (s *RecordingSink) Emit(ev core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
}

// Events returns a copy of the recorded events.
func (s *RecordingSink) Events() []core.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]core.Event(nil), s.events...)
}

// OfType returns the recorded events of type typ.
func (s *RecordingSink) OfType(typ core.EventType) []core.Event {
	var out []core.Event
	for _, ev := range s.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}

	return out
}
