package trivia

// Event is the closed set of round-lifecycle events a match emits to its
// connected clients. The transport layer switches over the concrete types
// exhaustively; the core never touches wire encoding.
type Event interface {
	event()
}

// RoundOpened announces a question to every connected client.
type RoundOpened struct {
	MatchCode       string   `json:"code"`
	RoundIndex      int      `json:"round"`
	TotalRounds     int      `json:"total_rounds"`
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	Points          int      `json:"points"`
	DeadlineSeconds int      `json:"deadline_seconds"`
}

// RoundClosed carries the immutable result of one round: per-team deltas,
// cumulative totals and the updated ranking.
type RoundClosed struct {
	MatchCode  string         `json:"code"`
	RoundIndex int            `json:"round"`
	Cumulative map[string]int `json:"scoreboard"`
	Deltas     map[string]int `json:"round_points"`
	Ranking    []string       `json:"ranking"`
}

// MatchOver is the terminal event after the last round.
type MatchOver struct {
	MatchCode string         `json:"code"`
	Summary   string         `json:"summary"`
	Final     map[string]int `json:"scoreboard"`
	Ranking   []string       `json:"ranking"`
}

func (RoundOpened) event() {}
func (RoundClosed) event() {}
func (MatchOver) event()   {}

// Endpoint is one connected client as the core sees it. Send must never
// block and must isolate delivery failures to its own client.
type Endpoint interface {
	Send(Event)
}
