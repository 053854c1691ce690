// Package core provides the foundational domain types and interfaces used by
// travelmesh. It defines the core abstractions for:
//
//   - Agents (units of conversational work returning an answer or a handoff)
//   - Transcripts (append-only conversation history shared across hops)
//   - Sessions (active agent, hop counter and state around one transcript)
//   - Events and Sinks (structured, non-blocking execution telemetry)
//   - RunContext / ToolContext (scoped execution and tool sandboxing)
//   - Error kinds surfaced by routing, tools and aggregation
//
// Implementation concerns (routing tables, executors, persistence, concrete
// agents) live in sibling packages and depend on the small interfaces here.
package core
