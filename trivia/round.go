package trivia

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RoundKind selects the scoring protocol for a round.
type RoundKind int

const (
	// RoundIndividual scores every submission independently as it arrives.
	RoundIndividual RoundKind = iota
	// RoundTeam scores each team once, from its members' joint answers.
	RoundTeam
)

// KindForIndex derives the round type from its position: odd rounds are
// team rounds, even rounds individual.
func KindForIndex(index int) RoundKind {
	if index%2 == 1 {
		return RoundTeam
	}
	return RoundIndividual
}

// RoundConfig is everything a coordinator needs for one question.
type RoundConfig struct {
	Clock          clockwork.Clock
	Index          int
	Question       Question
	Deadline       time.Time
	Roster         []TeamRoster
	PlayersPerTeam int
	Ledger         *ScoreLedger
	BonusFactor    int
	BonusSlots     int
}

// RoundCoordinator orchestrates one question's lifecycle: it ingests
// concurrent answer submissions, applies the individual or team scoring
// protocol, and closes when everyone is accounted for or the deadline
// passes, whichever comes first.
//
// Submit is safe to call from every client goroutine at once; AwaitClose
// is meant for the single match driver.
type RoundCoordinator struct {
	kind           RoundKind
	index          int
	question       Question
	deadline       time.Time
	clock          clockwork.Clock
	ledger         *ScoreLedger
	playersPerTeam int
	teamOrder      []string

	gate       *SyncGate                  // individual rounds
	rendezvous map[string]*TeamRendezvous // team rounds

	mu          sync.Mutex
	closed      bool
	answered    map[string]struct{}
	teamAnswers map[string][]AnswerSubmission
	claimed     map[string]struct{} // teams evaluated, one-shot guard
	doneClosed  bool
	done        chan struct{} // team rounds: closed once every team is claimed
}

// NewRoundCoordinator builds the coordinator for one round. The roster
// snapshot must not change for the round's lifetime.
func NewRoundCoordinator(cfg RoundConfig) *RoundCoordinator {
	r := &RoundCoordinator{
		kind:           KindForIndex(cfg.Index),
		index:          cfg.Index,
		question:       cfg.Question,
		deadline:       cfg.Deadline,
		clock:          cfg.Clock,
		ledger:         cfg.Ledger,
		playersPerTeam: cfg.PlayersPerTeam,
		answered:       make(map[string]struct{}),
		teamAnswers:    make(map[string][]AnswerSubmission, len(cfg.Roster)),
		claimed:        make(map[string]struct{}, len(cfg.Roster)),
		done:           make(chan struct{}),
	}

	totalPlayers := 0
	for _, team := range cfg.Roster {
		r.teamOrder = append(r.teamOrder, team.ID)
		r.teamAnswers[team.ID] = nil
		totalPlayers += len(team.Players)
	}

	switch r.kind {
	case RoundIndividual:
		r.gate = NewSyncGate(cfg.Clock, cfg.BonusFactor, cfg.BonusSlots, cfg.Deadline, totalPlayers)
	case RoundTeam:
		r.rendezvous = make(map[string]*TeamRendezvous, len(cfg.Roster))
		for _, team := range cfg.Roster {
			id := team.ID
			r.rendezvous[id] = NewTeamRendezvous(cfg.Clock, cfg.PlayersPerTeam, cfg.Deadline, func() {
				r.evaluateTeam(id)
			})
		}
	}

	return r
}

// Index returns the round's position in the match sequence.
func (r *RoundCoordinator) Index() int { return r.index }

// Kind returns the round's scoring protocol.
func (r *RoundCoordinator) Kind() RoundKind { return r.kind }

// Submit ingests one answer. Stale rounds, unknown teams, duplicates and
// anything arriving after close are dropped silently; none of these are
// errors under network jitter.
func (r *RoundCoordinator) Submit(sub AnswerSubmission) {
	r.mu.Lock()

	if r.closed || sub.RoundIndex != r.index {
		r.mu.Unlock()
		return
	}
	if _, ok := r.teamAnswers[sub.TeamID]; !ok {
		r.mu.Unlock()
		return
	}
	if _, dup := r.answered[sub.Username]; dup {
		r.mu.Unlock()
		return
	}
	r.answered[sub.Username] = struct{}{}

	switch r.kind {
	case RoundIndividual:
		// Bonus slots go to the earliest submissions overall, correct or
		// not; the factor only pays out on a correct answer.
		factor := r.gate.Complete()
		if sub.Option == r.question.Correct {
			r.ledger.AddPoints(sub.TeamID, r.question.Points*factor)
		}
		r.mu.Unlock()

	case RoundTeam:
		r.teamAnswers[sub.TeamID] = append(r.teamAnswers[sub.TeamID], sub)
		rv := r.rendezvous[sub.TeamID]
		r.mu.Unlock()

		// Outside the round lock: the last arrival runs the team
		// evaluation, which takes the lock again.
		rv.Arrive()
	}
}

// AwaitClose blocks the match driver until the round resolves, then closes
// the round. On deadline it force-releases every pending gate and
// rendezvous so each team is evaluated with whatever answers exist. It
// reports whether the round resolved by timeout.
func (r *RoundCoordinator) AwaitClose() bool {
	timedOut := false

	switch r.kind {
	case RoundIndividual:
		timedOut = r.gate.WaitForAll()

	case RoundTeam:
		r.mu.Lock()
		finished := r.doneClosed
		done := r.done
		r.mu.Unlock()

		if !finished {
			wait := r.clock.Until(r.deadline)
			if wait <= 0 {
				timedOut = true
			} else {
				select {
				case <-done:
				case <-r.clock.After(wait):
					timedOut = true
				}
			}
		}

		if timedOut {
			for _, team := range r.teamOrder {
				r.rendezvous[team].Release()
			}
		}
	}

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	return timedOut
}

// Closed reports whether the round has stopped accepting submissions.
func (r *RoundCoordinator) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// evaluateTeam scores one team exactly once. Both the rendezvous release
// and the deadline sweep can race here, so the claimed set is the
// authoritative one-shot guard per (round, team).
func (r *RoundCoordinator) evaluateTeam(team string) {
	r.mu.Lock()

	if _, done := r.claimed[team]; done {
		r.mu.Unlock()
		return
	}
	r.claimed[team] = struct{}{}

	answers := r.teamAnswers[team]
	gained := 0
	if len(answers) > 0 {
		allCorrect := len(answers) >= r.playersPerTeam
		best := 0
		for _, a := range answers {
			if a.Option == r.question.Correct {
				best = r.question.Points
			} else {
				allCorrect = false
			}
		}
		if allCorrect {
			gained = r.question.Points * 2
		} else {
			gained = best
		}
	}
	if gained > 0 {
		r.ledger.AddPoints(team, gained)
	}

	if len(r.claimed) == len(r.teamOrder) && !r.doneClosed {
		r.doneClosed = true
		close(r.done)
	}
	r.mu.Unlock()
}
