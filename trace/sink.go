package trace

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/logging"
)

// ChannelSink delivers events over a bounded channel. When the consumer falls
// behind, new events are dropped instead of blocking the emitter.
type ChannelSink struct {
	mu      sync.RWMutex
	ch      chan core.Event
	closed  bool
	dropped atomic.Int64
}

// NewChannelSink creates a sink with the given buffer size (minimum 1).
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}

	return &ChannelSink{ch: make(chan core.Event, buffer)}
}

// Emit implements core.Sink.
func (s *ChannelSink) Emit(ev core.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		return
	}

	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Events returns the receive side of the channel.
func (s *ChannelSink) Events() <-chan core.Event { return s.ch }

// Dropped returns the number of events discarded so far.
func (s *ChannelSink) Dropped() int64 { return s.dropped.Load() }

// Close closes the channel. Later events are counted as dropped.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// LogSink writes every event as a structured log line. Stream tokens are
// logged at debug level, errors at error level, everything else at info.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a LogSink. A nil logger discards everything.
func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &LogSink{logger: logger}
}

// Emit implements core.Sink.
func (s *LogSink) Emit(ev core.Event) {
	msg := "event." + string(ev.Type)
	args := []any{"session_id", ev.SessionID, "executor", ev.ExecutorID}

	if ev.Branch != "" {
		args = append(args, "branch", ev.Branch)
	}

	switch p := ev.Payload.(type) {
	case core.HandoffPayload:
		args = append(args, "from", p.From, "to", p.To, "hop", p.Hop)
	case core.ToolCallPayload:
		args = append(args, "tool", p.Tool, "call_id", p.CallID)
	case core.ToolResultPayload:
		args = append(args, "tool", p.Tool, "call_id", p.CallID, "failed", p.Error != "")
	case core.CompletePayload:
		args = append(args, "duration_ms", p.Duration.Milliseconds())
		if p.Error != "" {
			args = append(args, "error", p.Error)
		}
	case core.OutputPayload:
		args = append(args, "chars", len(p.Text))
	case core.ErrorPayload:
		args = append(args, "error", p.Error)
	}

	switch ev.Type {
	case core.EventStreamToken:
		s.logger.Debug(msg, args...)
	case core.EventError:
		s.logger.Error(msg, args...)
	default:
		s.logger.Info(msg, args...)
	}
}

// MultiSink forwards each event to every sink in order.
type MultiSink []core.Sink

// NewMultiSink creates a MultiSink ignoring nil entries.
func NewMultiSink(sinks ...core.Sink) MultiSink {
	out := make(MultiSink, 0, len(sinks))

	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}

	return out
}

// Emit implements core.Sink.
func (m MultiSink) Emit(ev core.Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}
