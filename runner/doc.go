// Package runner is the orchestration entry point of travelmesh.
//
// A Runner owns the configured agents and runs one workflow session per
// call in one of three modes:
//   - handoff: the routing state machine driven by handoff.Executor
//   - sequential: the configured pipeline as an agent.SequentialAgent
//   - concurrent: the configured fan-out as an agent.ConcurrentAgent
//
// Every session gets its own trace.Tracer next to the shared sinks (metrics,
// logs, caller supplied). After the run the trace is saved to the artifact
// store, the session to the session store, and the trace summary is logged.
// Handoff sessions can be resumed with Continue.
package runner
