package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/travelmesh/core"
)

// InMemoryStore is a volatile SessionStore implementation storing session
// snapshots in a process local map. It is safe for concurrent access and best
// suited for tests or single-process demos. Each returned session is restored
// from a snapshot to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]core.SessionSnapshot
}

// NewInMemoryStore constructs an empty in‑memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]core.SessionSnapshot)}
}

// Create allocates (or overwrites) a session with the given id. An empty id
// is replaced by a generated one.
func (s *InMemoryStore) Create(ctx context.Context, id string, maxHops int) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if id == "" {
		id = core.NewID()
	}

	sess := core.NewSession(id, maxHops)

	s.mu.Lock()
	s.sessions[id] = sess.Snapshot()
	s.mu.Unlock()

	return sess, nil
}

// Get returns a copy of a stored session or core.ErrSessionNotFound.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	snap, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}

	return core.RestoreSession(snap), nil
}

// Save stores a snapshot of the provided session.
func (s *InMemoryStore) Save(ctx context.Context, sess *core.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if sess == nil {
		return fmt.Errorf("save session: nil session")
	}

	snap := sess.Snapshot()

	s.mu.Lock()
	s.sessions[snap.ID] = snap
	s.mu.Unlock()

	return nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	return nil
}

// IDs returns the ids of all stored sessions (unordered).
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}

	return ids
}
