package trivia

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SyncGate counts down a fixed number of expected completions against a
// deadline, handing a bonus multiplier to the earliest completions.
//
// Each accepted completion consumes one expected arrival; the first
// bonusSlots completions receive bonusFactor, everyone after that gets 1.
// A single waiter (the match driver) blocks in WaitForAll until the count
// is exhausted or the deadline passes.
type SyncGate struct {
	clock    clockwork.Clock
	deadline time.Time

	mu          sync.Mutex
	bonusFactor int
	bonusLeft   int
	remaining   int
	timedOut    bool
	released    bool
	done        chan struct{}
}

// NewSyncGate builds a gate expecting expected completions before deadline.
// bonusFactor is the multiplier handed to the first bonusSlots completions.
func NewSyncGate(clock clockwork.Clock, bonusFactor, bonusSlots int, deadline time.Time, expected int) *SyncGate {
	if expected < 1 {
		expected = 1
	}
	return &SyncGate{
		clock:       clock,
		deadline:    deadline,
		bonusFactor: bonusFactor,
		bonusLeft:   bonusSlots,
		remaining:   expected,
		done:        make(chan struct{}),
	}
}

// Complete consumes one expected arrival and returns the score multiplier
// for it. Calls after the count is exhausted return 1 and leave the counter
// untouched. Slot order is the order in which callers win the gate's lock.
func (g *SyncGate) Complete() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.remaining == 0 {
		return 1
	}

	factor := 1
	if g.bonusLeft > 0 {
		factor = g.bonusFactor
		g.bonusLeft--
	}

	g.remaining--
	if g.remaining == 0 {
		g.releaseLocked()
	}

	return factor
}

// WaitForAll blocks until every expected completion has arrived or the
// deadline elapses, whichever comes first. It reports whether the gate
// resolved by timeout rather than exhaustion.
func (g *SyncGate) WaitForAll() bool {
	g.mu.Lock()
	if g.released {
		timedOut := g.timedOut
		g.mu.Unlock()
		return timedOut
	}
	done := g.done
	g.mu.Unlock()

	wait := g.clock.Until(g.deadline)
	if wait <= 0 {
		g.ForceExpire()
		return g.TimedOut()
	}

	select {
	case <-done:
	case <-g.clock.After(wait):
		g.ForceExpire()
	}

	return g.TimedOut()
}

// ForceExpire unblocks all waiters immediately and marks the gate timed
// out. It is idempotent, and a no-op once the gate has resolved.
func (g *SyncGate) ForceExpire() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released {
		return
	}

	g.timedOut = true
	g.remaining = 0
	g.releaseLocked()
}

// TimedOut reports whether the gate resolved by deadline rather than by
// counting down to zero.
func (g *SyncGate) TimedOut() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.timedOut
}

func (g *SyncGate) releaseLocked() {
	if g.released {
		return
	}
	g.released = true
	close(g.done)
}
