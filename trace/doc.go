// Package trace provides event sinks and the workflow tracer.
//
// Sinks receive core.Event values from executors and agents. They are
// append-only and must not block the emitter: ChannelSink drops (and counts)
// events when its buffer is full, LogSink writes structured log lines, and
// MultiSink fans events out to several sinks.
//
// Tracer folds the event stream of one workflow run into a JSON document
// (input, per-agent instructions, tool calls and outputs, handoff chain,
// final output, timing) that can be saved through a core.ArtifactStore.
package trace
