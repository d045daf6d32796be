// Package runner supervises the single worker process run by the host.
package runner

import "sync"

// State is the shared (handle, running) pair. Both fields are guarded by one
// mutex and are only reachable through Acquire.
type State struct {
	mu      sync.Mutex
	handle  Handle
	running bool
}

// NewState returns an empty state: no handle, not running.
func NewState() *State {
	return &State{}
}

// Acquire runs fn with exclusive access to the state. The lock is released on
// every exit path of fn, including panics.
func (s *State) Acquire(fn func(g *Guard) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := &Guard{state: s}
	defer g.release()

	return fn(g)
}

// Guard is the view of State handed to an Acquire callback. It must not be
// retained after the callback returns.
type Guard struct {
	state    *State
	released bool
}

func (g *Guard) release() {
	g.released = true
}

func (g *Guard) check() {
	if g.released {
		panic("runner: guard used after Acquire returned")
	}
}

// Handle returns the stored handle, or nil.
func (g *Guard) Handle() Handle {
	g.check()
	return g.state.handle
}

// Take removes and returns the stored handle.
func (g *Guard) Take() Handle {
	g.check()
	h := g.state.handle
	g.state.handle = nil
	return h
}

// Set stores h as the current handle.
func (g *Guard) Set(h Handle) {
	g.check()
	g.state.handle = h
}

// Running reports the running flag.
func (g *Guard) Running() bool {
	g.check()
	return g.state.running
}

// SetRunning updates the running flag.
func (g *Guard) SetRunning(v bool) {
	g.check()
	g.state.running = v
}
