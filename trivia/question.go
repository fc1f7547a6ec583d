package trivia

// Question is one multiple-choice question. Immutable for the lifetime of
// the match that owns it. JSON tags match the question-file format.
type Question struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Correct int      `json:"correct"` // 0-based index into Options
	Points  int      `json:"points"`
}

// AnswerSubmission is one player's answer to one round, as delivered by the
// transport layer. Only the first submission per player per round counts.
type AnswerSubmission struct {
	Username   string
	TeamID     string
	RoundIndex int
	Option     int // 0-based chosen option
}
