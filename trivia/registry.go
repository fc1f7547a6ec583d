package trivia

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// codeAlphabet omits easily-confused characters (I, O, 0, 1).
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 4
)

// Options tunes match behavior registry-wide. Zero values fall back to the
// defaults the original game shipped with.
type Options struct {
	Clock         clockwork.Clock
	RoundDeadline time.Duration // per-question answering window
	BonusFactor   int           // multiplier for the earliest submissions
	BonusSlots    int           // how many submissions earn the bonus
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.RoundDeadline <= 0 {
		o.RoundDeadline = 30 * time.Second
	}
	if o.BonusFactor < 1 {
		o.BonusFactor = 2
	}
	if o.BonusSlots < 0 {
		o.BonusSlots = 2
	}
	return o
}

// MatchSetup is everything a new match needs, supplied once at creation.
// The question list is already selected and ordered; RoundDeadline zero
// falls back to the registry default.
type MatchSetup struct {
	MaxTeams       int
	PlayersPerTeam int
	Questions      []Question
	RoundDeadline  time.Duration
}

// JoinResult is the registry's answer to a join request. Rejections carry
// a human-readable reason and are never errors; they are expected under
// normal operation.
type JoinResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// Registry is the process-wide table of active matches. It allocates
// match codes, arbitrates join admission (capacity and global username
// uniqueness) and owns match creation and teardown. All mutating
// operations are serialized behind its lock; there is no ambient global
// state.
type Registry struct {
	opts Options

	mu        sync.Mutex
	matches   map[string]*Match
	usernames map[string]struct{}
}

// NewRegistry builds an empty registry.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:      opts.withDefaults(),
		matches:   make(map[string]*Match),
		usernames: make(map[string]struct{}),
	}
}

// CreateMatch allocates a code and registers a new match.
func (g *Registry) CreateMatch(setup MatchSetup) (*Match, error) {
	if setup.MaxTeams < 1 {
		return nil, errors.New("at least one team required")
	}
	if setup.PlayersPerTeam < 1 {
		return nil, errors.New("at least one player per team required")
	}
	if len(setup.Questions) == 0 {
		return nil, errors.New("at least one question required")
	}
	if setup.RoundDeadline <= 0 {
		setup.RoundDeadline = g.opts.RoundDeadline
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	code := g.newCodeLocked()
	m := &Match{
		code:           code,
		registry:       g,
		clock:          g.opts.Clock,
		questions:      setup.Questions,
		maxTeams:       setup.MaxTeams,
		playersPerTeam: setup.PlayersPerTeam,
		roundDeadline:  setup.RoundDeadline,
		bonusFactor:    g.opts.BonusFactor,
		bonusSlots:     g.opts.BonusSlots,
		endpoints:      make(map[Endpoint]string),
	}
	g.matches[code] = m

	log.Info().
		Str("code", code).
		Int("max_teams", setup.MaxTeams).
		Int("players_per_team", setup.PlayersPerTeam).
		Int("questions", len(setup.Questions)).
		Msg("match created")

	return m, nil
}

// Join validates a join request and, if admitted, seats the player and
// registers their endpoint with the match. Every rejection reason is
// user-facing.
func (g *Registry) Join(code, teamID, username string, ep Endpoint) (*Match, JoinResult) {
	if username == "" {
		return nil, JoinResult{Reason: "blank username"}
	}
	if teamID == "" {
		return nil, JoinResult{Reason: "blank team id"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, taken := g.usernames[username]; taken {
		return nil, JoinResult{Reason: "username already in use"}
	}
	m, ok := g.matches[code]
	if !ok {
		return nil, JoinResult{Reason: "no such match"}
	}

	res := m.tryJoin(teamID, username, ep)
	if !res.OK {
		return nil, res
	}

	g.usernames[username] = struct{}{}
	return m, res
}

// Leave releases a username and detaches the endpoint from its match, if
// the match still exists. A player leaving before start frees their seat;
// after start the roster stays frozen.
func (g *Registry) Leave(code, username string, ep Endpoint) {
	if username == "" {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.usernames, username)
	if m, ok := g.matches[code]; ok {
		m.leave(username, ep)
	}
}

// Match looks up an active match by code.
func (g *Registry) Match(code string) (*Match, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.matches[code]
	return m, ok
}

// List snapshots every active match, for the operator API.
func (g *Registry) List() []MatchInfo {
	g.mu.Lock()
	matches := make([]*Match, 0, len(g.matches))
	for _, m := range g.matches {
		matches = append(matches, m)
	}
	g.mu.Unlock()

	infos := make([]MatchInfo, 0, len(matches))
	for _, m := range matches {
		infos = append(infos, m.Info())
	}
	return infos
}

// endMatch tears a finished match out of the table. Usernames are freed
// individually as their clients disconnect.
func (g *Registry) endMatch(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.matches, code)
	log.Info().Str("code", code).Msg("match removed")
}

// newCodeLocked generates a short crypto-random join code, retrying on the
// (unlikely) collision with an active match.
func (g *Registry) newCodeLocked() string {
	for {
		buf := make([]byte, codeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, codeLength)
		for i := range out {
			out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
		}
		code := string(out)

		if _, exists := g.matches[code]; !exists {
			return code
		}
	}
}
