package artifact

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is an in-process ArtifactStore. Data is copied on save and
// retrieval so callers can never mutate stored bytes.
//
// Layout: namespace -> artifactID -> raw bytes
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][]byte
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the artifact bytes.
func (a *InMemoryStore) Save(_ context.Context, namespace, artifactID string, data []byte) error {
	if err := validateID(namespace, artifactID); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.artifacts[namespace]; !exists {
		a.artifacts[namespace] = make(map[string][]byte)
	}

	a.artifacts[namespace][artifactID] = append([]byte(nil), data...)

	return nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (a *InMemoryStore) Get(_ context.Context, namespace, artifactID string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, ok := a.artifacts[namespace][artifactID]
	if !ok {
		return nil, ErrNotFound
	}

	return append([]byte(nil), data...), nil
}

// List returns the sorted artifact ids of a namespace.
func (a *InMemoryStore) List(_ context.Context, namespace string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.artifacts[namespace]))
	for id := range a.artifacts[namespace] {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(_ context.Context, namespace, artifactID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.artifacts[namespace]
	if !ok {
		return ErrNotFound
	}

	if _, ok := m[artifactID]; !ok {
		return ErrNotFound
	}

	delete(m, artifactID)

	return nil
}
