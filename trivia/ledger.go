package trivia

import (
	"sort"
	"sync"
)

// ScoreLedger keeps cumulative totals and the current round's deltas per
// team. Totals only ever grow; a round's deltas are frozen once the round
// closes and the next one begins. Ranking order is stable: teams on equal
// totals keep their relative order from the previous snapshot, seeded by
// team creation order.
type ScoreLedger struct {
	mu     sync.RWMutex
	totals map[string]int
	deltas map[string]int
	order  []string
}

// NewScoreLedger starts every listed team at zero. The slice order seeds
// the initial ranking.
func NewScoreLedger(teams []string) *ScoreLedger {
	l := &ScoreLedger{
		totals: make(map[string]int, len(teams)),
		deltas: make(map[string]int, len(teams)),
		order:  make([]string, 0, len(teams)),
	}
	for _, team := range teams {
		if _, ok := l.totals[team]; ok {
			continue
		}
		l.totals[team] = 0
		l.deltas[team] = 0
		l.order = append(l.order, team)
	}
	return l
}

// BeginRound resets every team's delta for a fresh round.
func (l *ScoreLedger) BeginRound() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for team := range l.deltas {
		l.deltas[team] = 0
	}
}

// AddPoints credits a team for the current round. Negative points are
// ignored so cumulative totals stay monotonic.
func (l *ScoreLedger) AddPoints(team string, points int) {
	if points <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.totals[team]; !ok {
		return
	}
	l.totals[team] += points
	l.deltas[team] += points
}

// Totals returns a copy of the cumulative scores.
func (l *ScoreLedger) Totals() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]int, len(l.totals))
	for team, pts := range l.totals {
		out[team] = pts
	}
	return out
}

// RoundDeltas returns a copy of the current round's per-team deltas.
func (l *ScoreLedger) RoundDeltas() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]int, len(l.deltas))
	for team, pts := range l.deltas {
		out[team] = pts
	}
	return out
}

// Ranking returns the teams sorted by cumulative score, descending. The
// sort is stable against the previous ranking, so ties keep their prior
// relative order across successive rounds.
func (l *ScoreLedger) Ranking() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	sort.SliceStable(l.order, func(i, j int) bool {
		return l.totals[l.order[i]] > l.totals[l.order[j]]
	})

	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}
