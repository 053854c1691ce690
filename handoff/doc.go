// Package handoff implements the turn-taking executor of the handoff routing
// state machine.
//
// An Executor owns a validated routing.Table and one core.Agent per table
// node. Run drives a core.Session: it repeatedly invokes the active agent with
// the shared transcript and either ends the session on a terminal answer or
// validates the requested handoff against the table, appends a transition
// marker, switches the active agent and increments the session hop counter.
//
// Routing and hop-limit failures are fatal and returned as *core.SessionError
// carrying the partial transcript. Cyclic routes are supported; the session
// hop bound guards against endless ping-pong.
package handoff
