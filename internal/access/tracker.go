package access

import (
	"context"
	"sync"

	"finadmin.org/internal/roles"
	"finadmin.org/internal/session"
)

// State of the decision layer across one session lifetime.
type State int

const (
	// StateUninitialized: no session user yet; checks fail closed.
	StateUninitialized State = iota
	// StateResolving: user present, catalog fetch in flight.
	StateResolving
	// StateReady: queries answer deterministically from the catalog.
	StateReady
	// StateCleared: the user went away; equivalent to uninitialized.
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolving:
		return "resolving"
	case StateReady:
		return "ready"
	case StateCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Tracker drives the decision-layer state machine. Transitions are caused
// solely by session snapshots; every new login re-enters Resolving so a
// changed role never answers from a stale catalog.
type Tracker struct {
	resolver *roles.Resolver

	mu       sync.Mutex
	state    State
	decision Decision
}

// NewTracker starts in Uninitialized with a loading, fail-closed decision.
func NewTracker(resolver *roles.Resolver) *Tracker {
	return &Tracker{
		resolver: resolver,
		state:    StateUninitialized,
		decision: NewDecision(nil, nil, true),
	}
}

// Bind subscribes the tracker to a session store.
func (t *Tracker) Bind(ctx context.Context, store *session.Store) {
	store.Subscribe(func(snap session.Snapshot) {
		t.Apply(ctx, snap)
	})
}

// Apply advances the state machine for one session snapshot.
func (t *Tracker) Apply(ctx context.Context, snap session.Snapshot) {
	if snap.User == nil {
		if snap.Loading {
			t.set(StateUninitialized, NewDecision(nil, nil, true))
			return
		}
		t.mu.Lock()
		prior := t.state
		t.mu.Unlock()
		if prior == StateReady || prior == StateResolving {
			// Logout or failed refresh: drop the cached catalog so the
			// next login resolves permissions freshly.
			t.resolver.Clear(ctx)
			t.set(StateCleared, Denied())
			return
		}
		t.set(StateUninitialized, Denied())
		return
	}

	t.set(StateResolving, NewDecision(snap.User, nil, true))
	if snap.Loading {
		// A session operation is still in flight; resolve once it settles.
		return
	}
	catalog := t.resolver.Ensure(ctx, snap.Token)
	t.set(StateReady, NewDecision(snap.User, catalog.Permissions(snap.User.Role), false))
}

// State returns the current machine state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Decision returns the current decision value.
func (t *Tracker) Decision() Decision {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decision
}

func (t *Tracker) set(state State, decision Decision) {
	t.mu.Lock()
	t.state = state
	t.decision = decision
	t.mu.Unlock()
}
