package core

import (
	"context"
	"sync"
	"time"
)

// Session owns one transcript, tracks the currently active agent and bounds
// the number of handoffs with a HopCounter. It is safe for concurrent access.
//
// Contract:
//   - Exactly one agent is active at a time (empty before the first run)
//   - The transcript is shared by reference with every agent invocation
//   - State mutations update the Updated timestamp
type Session struct {
	ID       string            `json:"id"`
	State    map[string]any    `json:"state"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
	Metadata map[string]string `json:"metadata"`

	transcript *Transcript
	hops       *HopCounter
	active     string
	mu         sync.RWMutex
}

// NewSession creates a new session allowing at most maxHops handoffs.
// If maxHops <= 0, DefaultMaxHops is used.
func NewSession(id string, maxHops int) *Session {
	now := time.Now().UTC()

	return &Session{
		ID:         id,
		State:      map[string]any{},
		Created:    now,
		Updated:    now,
		Metadata:   map[string]string{},
		transcript: NewTranscript(),
		hops:       NewHopCounter(maxHops),
	}
}

// Transcript returns the shared conversation log.
func (s *Session) Transcript() *Transcript { return s.transcript }

// Hops returns the session hop counter.
func (s *Session) Hops() *HopCounter { return s.hops }

// Active returns the name of the currently active agent.
func (s *Session) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.active
}

// Activate makes name the active agent.
func (s *Session) Activate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = name
	s.Updated = time.Now().UTC()
}

// AddUserInput appends a user message turn.
func (s *Session) AddUserInput(text string) Turn {
	turn := s.transcript.Append(UserTurn(text))
	s.touch()

	return turn
}

// Append records a turn and bumps Updated.
func (s *Session) Append(turn Turn) Turn {
	stored := s.transcript.Append(turn)
	s.touch()

	return stored
}

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.State[key]

	return v, ok
}

// SetState sets a key/value pair in session state updating the Updated timestamp.
func (s *Session) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.State[key] = value
	s.Updated = time.Now().UTC()
}

// StateSnapshot returns a shallow copy of the state map.
func (s *Session) StateSnapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.State))
	for k, v := range s.State {
		out[k] = v
	}

	return out
}

func (s *Session) touch() {
	s.mu.Lock()
	s.Updated = time.Now().UTC()
	s.mu.Unlock()
}

// SessionSnapshot is the serializable form of a Session used by stores.
type SessionSnapshot struct {
	ID       string            `json:"id"`
	Active   string            `json:"active"`
	Hops     int               `json:"hops"`
	MaxHops  int               `json:"max_hops"`
	State    map[string]any    `json:"state"`
	Metadata map[string]string `json:"metadata"`
	Turns    []Turn            `json:"turns"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
}

// Snapshot captures a deep copy of the session.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := SessionSnapshot{
		ID:       s.ID,
		Active:   s.active,
		Hops:     s.hops.Count(),
		MaxHops:  s.hops.Max(),
		State:    make(map[string]any, len(s.State)),
		Metadata: make(map[string]string, len(s.Metadata)),
		Turns:    s.transcript.Turns(),
		Created:  s.Created,
		Updated:  s.Updated,
	}

	for k, v := range s.State {
		snap.State[k] = v
	}

	for k, v := range s.Metadata {
		snap.Metadata[k] = v
	}

	return snap
}

// RestoreSession rebuilds a Session from a snapshot.
func RestoreSession(snap SessionSnapshot) *Session {
	s := NewSession(snap.ID, snap.MaxHops)
	s.active = snap.Active
	s.hops.restore(snap.Hops)
	s.transcript = NewTranscript(snap.Turns...)

	if !snap.Created.IsZero() {
		s.Created = snap.Created
	}

	if !snap.Updated.IsZero() {
		s.Updated = snap.Updated
	}

	for k, v := range snap.State {
		s.State[k] = v
	}

	for k, v := range snap.Metadata {
		s.Metadata[k] = v
	}

	return s
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	return RestoreSession(s.Snapshot())
}

// SessionStore persists sessions and their transcripts.
type SessionStore interface {
	Create(ctx context.Context, id string, maxHops int) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
