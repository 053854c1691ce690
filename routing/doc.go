// Package routing holds the handoff routing table: the directed graph of
// which agent may transfer control to which other agent.
//
// Tables are built by registering every agent with its permitted targets,
// validated once registration is complete and frozen when the first session
// starts. Lookups are safe for concurrent use.
package routing
