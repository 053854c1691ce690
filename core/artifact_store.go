package core

import "context"

// ArtifactStore defines the interface for artifact persistence (workflow
// traces, exported transcripts). Implementations should be thread-safe and
// scope artifacts by namespace.
type ArtifactStore interface {
	Save(ctx context.Context, namespace, artifactID string, data []byte) error
	Get(ctx context.Context, namespace, artifactID string) ([]byte, error)
	List(ctx context.Context, namespace string) ([]string, error)
	Delete(ctx context.Context, namespace, artifactID string) error
}
