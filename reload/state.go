package reload

import "sync"

// Phase is the lifecycle position of a Poller.
type Phase int

const (
	// PhaseWaiting means no token has been observed yet.
	PhaseWaiting Phase = iota
	// PhaseArmed means a token was observed and later tokens are compared to it.
	PhaseArmed
	// PhaseReloading is terminal: a restart was detected and the reload fired.
	PhaseReloading
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseArmed:
		return "armed"
	case PhaseReloading:
		return "reloading"
	}
	return "unknown"
}

// State holds the previous token slot. The slot only ever takes non-empty
// values. The mutex only guards concurrent readers (Snapshot); cycles
// themselves are strictly sequential.
type State struct {
	mu        sync.Mutex
	previous  string
	reloading bool
}

// Snapshot is a copy of State for callers outside the poll loop.
type Snapshot struct {
	Previous string
	Phase    Phase
}

// Previous returns the last observed token, or "" before the first one.
func (s *State) Previous() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous
}

// Phase derives the lifecycle phase from the slot.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

// Snapshot returns a consistent copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Previous: s.previous, Phase: s.phaseLocked()}
}

func (s *State) phaseLocked() Phase {
	switch {
	case s.reloading:
		return PhaseReloading
	case s.previous != "":
		return PhaseArmed
	}
	return PhaseWaiting
}

// observe applies one poll result and reports whether it signals a restart.
// A non-empty token is stored even when a restart is reported.
func (s *State) observe(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.previous != "" && token != "" && token != s.previous
	if changed {
		s.reloading = true
	}
	if token != "" {
		s.previous = token
	}
	return changed
}
