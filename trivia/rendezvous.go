package trivia

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TeamRendezvous releases exactly once, either when a fixed number of
// parties have arrived or when its deadline elapses while a waiter is
// blocked in Await. The release action never runs twice, no matter how
// many of the three triggers (last arrival, deadline, external Release)
// fire.
//
// Arrive registers a party without blocking the caller; the deadline-aware
// blocking wait lives in Await and is meant for the single coordination
// goroutine driving the round.
type TeamRendezvous struct {
	clock     clockwork.Clock
	parties   int
	deadline  time.Time
	onRelease func()

	mu       sync.Mutex
	arrived  int
	released bool
	done     chan struct{}
}

// NewTeamRendezvous builds a rendezvous for parties arrivals before
// deadline. onRelease may be nil.
func NewTeamRendezvous(clock clockwork.Clock, parties int, deadline time.Time, onRelease func()) *TeamRendezvous {
	if parties < 1 {
		parties = 1
	}
	return &TeamRendezvous{
		clock:     clock,
		parties:   parties,
		deadline:  deadline,
		onRelease: onRelease,
		done:      make(chan struct{}),
	}
}

// Arrive registers one party. The arrival that completes the party count
// fires the release action before returning. Arrivals after release are
// no-ops.
func (r *TeamRendezvous) Arrive() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}

	r.arrived++
	if r.arrived < r.parties {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.Release()
}

// Await blocks until the rendezvous releases or its deadline elapses; on
// deadline it forces the release itself, so the caller always returns with
// the release action already run.
func (r *TeamRendezvous) Await() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	done := r.done
	r.mu.Unlock()

	wait := r.clock.Until(r.deadline)
	if wait <= 0 {
		r.Release()
		return
	}

	select {
	case <-done:
	case <-r.clock.After(wait):
		r.Release()
	}
}

// Release forces the rendezvous open, running the release action if it has
// not run yet. Safe to call from a timeout sweep; a no-op once released.
func (r *TeamRendezvous) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	close(r.done)
	action := r.onRelease
	r.mu.Unlock()

	// Run outside the lock: the action typically re-enters round state.
	if action != nil {
		action()
	}
}

// Released reports whether the rendezvous has already fired.
func (r *TeamRendezvous) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.released
}
