package trivia

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestSyncGateBonusSlotsGoToEarliestCompletions(t *testing.T) {
	clock := clockwork.NewRealClock()
	gate := NewSyncGate(clock, 2, 2, clock.Now().Add(time.Minute), 3)

	if factor := gate.Complete(); factor != 2 {
		t.Fatalf("first completion: expected factor 2, got %d", factor)
	}
	if factor := gate.Complete(); factor != 2 {
		t.Fatalf("second completion: expected factor 2, got %d", factor)
	}
	if factor := gate.Complete(); factor != 1 {
		t.Fatalf("third completion: expected factor 1, got %d", factor)
	}

	// The count is exhausted, so the wait resolves immediately.
	if timedOut := gate.WaitForAll(); timedOut {
		t.Fatal("expected exhaustion, got timeout")
	}

	// Extra completions are no-ops on the counter and earn no bonus.
	if factor := gate.Complete(); factor != 1 {
		t.Fatalf("post-exhaustion completion: expected factor 1, got %d", factor)
	}
}

func TestSyncGateDeadlineUnblocksWaiter(t *testing.T) {
	clock := clockwork.NewFakeClock()
	gate := NewSyncGate(clock, 2, 2, clock.Now().Add(30*time.Second), 2)

	gate.Complete()

	result := make(chan bool, 1)
	go func() {
		result <- gate.WaitForAll()
	}()

	clock.BlockUntil(1)
	clock.Advance(31 * time.Second)

	select {
	case timedOut := <-result:
		if !timedOut {
			t.Fatal("expected timeout, got exhaustion")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForAll did not return after deadline")
	}

	if !gate.TimedOut() {
		t.Fatal("expected gate to report timed out")
	}
}

func TestSyncGateForceExpireIsIdempotent(t *testing.T) {
	clock := clockwork.NewRealClock()
	gate := NewSyncGate(clock, 2, 2, clock.Now().Add(time.Minute), 3)

	gate.ForceExpire()
	gate.ForceExpire()

	if !gate.TimedOut() {
		t.Fatal("expected gate to report timed out")
	}
	if timedOut := gate.WaitForAll(); !timedOut {
		t.Fatal("expected WaitForAll to report timeout after ForceExpire")
	}
	if factor := gate.Complete(); factor != 1 {
		t.Fatalf("completion after expiry: expected factor 1, got %d", factor)
	}
}

func TestSyncGateForceExpireAfterExhaustionIsNoOp(t *testing.T) {
	clock := clockwork.NewRealClock()
	gate := NewSyncGate(clock, 2, 1, clock.Now().Add(time.Minute), 1)

	gate.Complete()
	gate.ForceExpire()

	if gate.TimedOut() {
		t.Fatal("gate resolved by exhaustion, must not flip to timed out")
	}
}
