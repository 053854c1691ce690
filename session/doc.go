// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the Session struct) live in the core package so
// higher level packages (agents, runner) never depend on concrete storage.
//
// InMemoryStore keeps snapshots in a process local map. The redis
// sub-package persists transcripts in Redis.
package session
