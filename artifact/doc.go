// Package artifact contains implementations of core.ArtifactStore.
//
// The interface lives in the core package to avoid dependency cycles.
// InMemoryStore serves tests and single-process runs; FileStore keeps
// artifacts (workflow traces) on disk as <dir>/<namespace>/<id>.
package artifact
