package realtime

import "sync"

// Supervisor guards the single in-flight-or-established session a
// client instance owns. Begin grants ownership to exactly one caller;
// re-entrant connect attempts while a session is live or still being
// established collapse into no-ops. Each client carries its own
// Supervisor instance; there is no process-wide state.
type Supervisor struct {
	mu     sync.Mutex
	active bool
	done   chan struct{}
}

// NewSupervisor creates an idle supervisor
func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Begin claims session ownership. It returns true for the single caller
// that should establish the session and false for everyone arriving
// while one is in flight or established.
func (s *Supervisor) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	s.done = make(chan struct{})
	return true
}

// Active reports whether a session is in flight or established
func (s *Supervisor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Release ends the current ownership and wakes all Done waiters.
// Safe to call when already released.
func (s *Supervisor) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	close(s.done)
}

// Done returns a channel closed when the current ownership is released.
// When no session was ever started the returned channel is already
// closed.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}
