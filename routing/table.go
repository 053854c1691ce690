package routing

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrEmptyAgentID is returned when registering an agent without a name.
	ErrEmptyAgentID = errors.New("agent id must not be empty")
	// ErrDuplicateAgent is returned when an agent is registered twice.
	ErrDuplicateAgent = errors.New("agent already registered")
	// ErrSelfLoop is returned when an agent lists itself as a target without AllowSelfLoop.
	ErrSelfLoop = errors.New("self-loop not allowed")
	// ErrUnknownTarget is returned by Validate for edges to unregistered agents.
	ErrUnknownTarget = errors.New("unknown handoff target")
	// ErrUnknownAgent is returned for lookups of unregistered agents.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrFrozen is returned when mutating a frozen table.
	ErrFrozen = errors.New("routing table is frozen")
	// ErrEmptyTable is returned by Validate when nothing is registered.
	ErrEmptyTable = errors.New("routing table has no agents")
)

// RegisterOptions configures a single registration.
type RegisterOptions struct {
	AllowSelfLoop bool
}

// AllowSelfLoop permits an agent to hand off to itself.
func AllowSelfLoop() func(o *RegisterOptions) {
	return func(o *RegisterOptions) { o.AllowSelfLoop = true }
}

type node struct {
	targets  map[string]struct{}
	ordered  []string
	selfLoop bool
}

// Table is the routing table. The zero value is not usable; call NewTable.
type Table struct {
	mu     sync.RWMutex
	nodes  map[string]*node
	order  []string
	start  string
	frozen bool
}

// NewTable returns an empty routing table.
func NewTable() *Table {
	return &Table{nodes: make(map[string]*node)}
}

// Register adds agentID with its permitted handoff targets. Targets do not
// need to exist yet; Validate checks them once every agent is registered.
// The first registered agent becomes the start agent unless SetStart is used.
func (t *Table) Register(agentID string, targets []string, optFns ...func(o *RegisterOptions)) error {
	opts := RegisterOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if agentID == "" {
		return ErrEmptyAgentID
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return fmt.Errorf("register %s: %w", agentID, ErrFrozen)
	}

	if _, exists := t.nodes[agentID]; exists {
		return fmt.Errorf("register %s: %w", agentID, ErrDuplicateAgent)
	}

	n := &node{targets: make(map[string]struct{}, len(targets)), selfLoop: opts.AllowSelfLoop}

	for _, target := range targets {
		if target == "" {
			return fmt.Errorf("register %s: %w", agentID, ErrEmptyAgentID)
		}

		if target == agentID && !opts.AllowSelfLoop {
			return fmt.Errorf("register %s: %w", agentID, ErrSelfLoop)
		}

		if _, dup := n.targets[target]; dup {
			continue
		}

		n.targets[target] = struct{}{}
		n.ordered = append(n.ordered, target)
	}

	t.nodes[agentID] = n
	t.order = append(t.order, agentID)

	if t.start == "" {
		t.start = agentID
	}

	return nil
}

// SetStart chooses the entry agent of handoff sessions.
func (t *Table) SetStart(agentID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrFrozen
	}

	t.start = agentID

	return nil
}

// Start returns the entry agent.
func (t *Table) Start() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.start
}

// Validate checks that the table is non-empty, that the start agent exists and
// that every referenced target is registered. All problems are reported.
func (t *Table) Validate() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.nodes) == 0 {
		return ErrEmptyTable
	}

	var errs []error

	if _, ok := t.nodes[t.start]; !ok {
		errs = append(errs, fmt.Errorf("start agent %q: %w", t.start, ErrUnknownAgent))
	}

	for _, id := range t.order {
		for _, target := range t.nodes[id].ordered {
			if _, ok := t.nodes[target]; !ok {
				errs = append(errs, fmt.Errorf("%s -> %s: %w", id, target, ErrUnknownTarget))
			}
		}
	}

	return errors.Join(errs...)
}

// Freeze makes the table read-only.
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.frozen = true
}

// Frozen reports whether Freeze was called.
func (t *Table) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.frozen
}

// IsAllowed reports whether from may hand off to to.
func (t *Table) IsAllowed(from, to string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[from]
	if !ok {
		return false
	}

	_, ok = n.targets[to]

	return ok
}

// Has reports whether agentID is registered.
func (t *Table) Has(agentID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.nodes[agentID]

	return ok
}

// Targets returns the permitted targets of agentID in registration order.
func (t *Table) Targets(agentID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[agentID]
	if !ok {
		return nil
	}

	return append([]string(nil), n.ordered...)
}

// Agents returns all registered agents in registration order.
func (t *Table) Agents() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]string(nil), t.order...)
}

// Reachable returns every agent reachable from agentID through one or more
// handoffs, sorted by name. agentID itself is included only if a cycle leads back to it.
func (t *Table) Reachable(agentID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := map[string]struct{}{}
	queue := []string{agentID}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		n, ok := t.nodes[cur]
		if !ok {
			continue
		}

		for _, next := range n.ordered {
			if _, done := seen[next]; done {
				continue
			}

			seen[next] = struct{}{}
			queue = append(queue, next)
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}

	sort.Strings(out)

	return out
}

// Edge is a directed handoff edge.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}
