package trivia

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TeamRoster is one team's fixed seat assignment: the id and the players
// occupying its seats, in join order.
type TeamRoster struct {
	ID      string   `json:"id"`
	Players []string `json:"players"`
}

// MatchInfo is a point-in-time snapshot of a match, for operator listings.
type MatchInfo struct {
	Code            string         `json:"code"`
	State           string         `json:"state"` // waiting, running, finished
	Teams           int            `json:"teams"`
	MaxTeams        int            `json:"max_teams"`
	PlayersPerTeam  int            `json:"players_per_team"`
	Players         int            `json:"players"`
	ExpectedPlayers int            `json:"expected_players"`
	Rounds          int            `json:"rounds"`
	Scoreboard      map[string]int `json:"scoreboard,omitempty"`
	Ranking         []string       `json:"ranking,omitempty"`
}

// Match owns one quiz session: the question sequence, the team roster
// built up during admission and frozen at start, the score ledger, and the
// driver goroutine that runs rounds strictly in sequence.
type Match struct {
	code           string
	registry       *Registry
	clock          clockwork.Clock
	questions      []Question
	maxTeams       int
	playersPerTeam int
	roundDeadline  time.Duration
	bonusFactor    int
	bonusSlots     int

	mu        sync.Mutex
	teams     []*TeamRoster
	endpoints map[Endpoint]string // endpoint -> username
	started   bool
	finished  bool
	ledger    *ScoreLedger
	round     *RoundCoordinator
}

// Code returns the match's join code.
func (m *Match) Code() string { return m.code }

// PlayersPerTeam returns the fixed seat count per team.
func (m *Match) PlayersPerTeam() int { return m.playersPerTeam }

// Started reports whether the round loop is (or was) running.
func (m *Match) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.started
}

// Finished reports whether the last round has closed.
func (m *Match) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.finished
}

// Info snapshots the match state for listings.
func (m *Match) Info() MatchInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := MatchInfo{
		Code:            m.code,
		State:           "waiting",
		Teams:           len(m.teams),
		MaxTeams:        m.maxTeams,
		PlayersPerTeam:  m.playersPerTeam,
		Players:         m.totalPlayersLocked(),
		ExpectedPlayers: m.maxTeams * m.playersPerTeam,
		Rounds:          len(m.questions),
	}
	switch {
	case m.finished:
		info.State = "finished"
	case m.started:
		info.State = "running"
	}
	if m.ledger != nil {
		info.Scoreboard = m.ledger.Totals()
		info.Ranking = m.ledger.Ranking()
	}
	return info
}

// Submit routes an answer to the current round, if any. Answers for a
// match that is not running are dropped silently.
func (m *Match) Submit(sub AnswerSubmission) {
	m.mu.Lock()
	rc := m.round
	ok := m.started && !m.finished
	m.mu.Unlock()

	if !ok || rc == nil {
		return
	}
	rc.Submit(sub)
}

// tryJoin seats a player and registers their endpoint. The caller (the
// registry) holds username uniqueness; this validates capacity only. When
// the last seat fills, the round loop starts.
func (m *Match) tryJoin(teamID, username string, ep Endpoint) JoinResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return JoinResult{Reason: "match already started"}
	}
	if m.totalPlayersLocked() >= m.maxTeams*m.playersPerTeam {
		return JoinResult{Reason: "match is full"}
	}

	var team *TeamRoster
	for _, t := range m.teams {
		if t.ID == teamID {
			team = t
			break
		}
	}
	if team == nil {
		if len(m.teams) >= m.maxTeams {
			return JoinResult{Reason: "too many teams"}
		}
		team = &TeamRoster{ID: teamID}
		m.teams = append(m.teams, team)
	}
	if len(team.Players) >= m.playersPerTeam {
		return JoinResult{Reason: "team is full"}
	}

	team.Players = append(team.Players, username)
	m.endpoints[ep] = username

	log.Info().
		Str("code", m.code).
		Str("team", teamID).
		Str("username", username).
		Int("players", m.totalPlayersLocked()).
		Int("expected", m.maxTeams*m.playersPerTeam).
		Msg("player joined")

	if m.totalPlayersLocked() == m.maxTeams*m.playersPerTeam {
		m.startLocked()
	}

	return JoinResult{OK: true, Reason: fmt.Sprintf("welcome %s to team %s", username, teamID)}
}

// leave drops an endpoint. Before start the player's seat is freed; once
// the match is running the roster is frozen and the player is simply
// scored as absent for remaining rounds.
func (m *Match) leave(username string, ep Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.endpoints, ep)

	if m.started {
		return
	}
	remaining := m.teams[:0]
	for _, team := range m.teams {
		dst := team.Players[:0]
		for _, p := range team.Players {
			if p != username {
				dst = append(dst, p)
			}
		}
		team.Players = dst

		// An emptied team gives its slot back, so a fresh team id can
		// still claim it.
		if len(team.Players) > 0 {
			remaining = append(remaining, team)
		}
	}
	m.teams = remaining
}

func (m *Match) totalPlayersLocked() int {
	total := 0
	for _, team := range m.teams {
		total += len(team.Players)
	}
	return total
}

// startLocked freezes the roster snapshot and hands it to the driver.
func (m *Match) startLocked() {
	m.started = true

	roster := make([]TeamRoster, 0, len(m.teams))
	ids := make([]string, 0, len(m.teams))
	for _, team := range m.teams {
		players := make([]string, len(team.Players))
		copy(players, team.Players)
		roster = append(roster, TeamRoster{ID: team.ID, Players: players})
		ids = append(ids, team.ID)
	}
	m.ledger = NewScoreLedger(ids)

	log.Info().
		Str("code", m.code).
		Int("teams", len(roster)).
		Int("rounds", len(m.questions)).
		Msg("full roster connected, match starting")

	go m.run(roster)
}

// run is the per-match driver: strictly sequential rounds, each opened
// with a broadcast, awaited to closure, and reported with a scoreboard
// snapshot. Round N+1 never opens before round N closes.
func (m *Match) run(roster []TeamRoster) {
	total := len(m.questions)

	for i, q := range m.questions {
		m.ledger.BeginRound()
		rc := NewRoundCoordinator(RoundConfig{
			Clock:          m.clock,
			Index:          i,
			Question:       q,
			Deadline:       m.clock.Now().Add(m.roundDeadline),
			Roster:         roster,
			PlayersPerTeam: m.playersPerTeam,
			Ledger:         m.ledger,
			BonusFactor:    m.bonusFactor,
			BonusSlots:     m.bonusSlots,
		})

		m.mu.Lock()
		m.round = rc
		m.mu.Unlock()

		m.broadcast(RoundOpened{
			MatchCode:       m.code,
			RoundIndex:      i,
			TotalRounds:     total,
			Question:        q.Text,
			Options:         q.Options,
			Points:          q.Points,
			DeadlineSeconds: int(m.roundDeadline / time.Second),
		})

		timedOut := rc.AwaitClose()

		m.broadcast(RoundClosed{
			MatchCode:  m.code,
			RoundIndex: i,
			Cumulative: m.ledger.Totals(),
			Deltas:     m.ledger.RoundDeltas(),
			Ranking:    m.ledger.Ranking(),
		})

		log.Info().
			Str("code", m.code).
			Int("round", i).
			Bool("timed_out", timedOut).
			Msg("round closed")
	}

	m.mu.Lock()
	m.finished = true
	m.round = nil
	m.mu.Unlock()

	m.broadcast(MatchOver{
		MatchCode: m.code,
		Summary:   m.summary(),
		Final:     m.ledger.Totals(),
		Ranking:   m.ledger.Ranking(),
	})

	log.Info().Str("code", m.code).Msg("match over")

	m.registry.endMatch(m.code)
}

func (m *Match) summary() string {
	ranking := m.ledger.Ranking()
	if len(ranking) == 0 {
		return "game over"
	}
	totals := m.ledger.Totals()
	return fmt.Sprintf("game over, %s wins with %d points", ranking[0], totals[ranking[0]])
}

// broadcast fans an event out to every connected endpoint. Send contracts
// never to block, so one dead client cannot stall the driver or starve the
// others.
func (m *Match) broadcast(ev Event) {
	m.mu.Lock()
	targets := make([]Endpoint, 0, len(m.endpoints))
	for ep := range m.endpoints {
		targets = append(targets, ep)
	}
	m.mu.Unlock()

	for _, ep := range targets {
		ep.Send(ev)
	}
}
