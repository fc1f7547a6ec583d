/*
Copyright © 2026 LEI-122713
*/

package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/LEI-122713/kahoot/trivia"
)

//go:embed questions.json
var embeddedQuestions []byte

// questionsFile mirrors the on-disk question format: either a list of
// named quizzes (the first is used) or a bare question list.
type questionsFile struct {
	Quizzes []struct {
		Name      string            `json:"name"`
		Questions []trivia.Question `json:"questions"`
	} `json:"quizzes"`
	Questions []trivia.Question `json:"questions"`
}

// loadQuestions parses the question pool from path, or from the embedded
// default set when path is empty.
func loadQuestions(path string) ([]trivia.Question, error) {
	data := embeddedQuestions
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read question file: %w", err)
		}
	}

	var qf questionsFile
	if err := json.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("failed to parse question file: %w", err)
	}

	pool := qf.Questions
	if len(qf.Quizzes) > 0 {
		pool = qf.Quizzes[0].Questions
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("no questions found in question file")
	}

	for i, q := range pool {
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("question %d needs at least two options", i)
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return nil, fmt.Errorf("question %d has an out-of-range correct index", i)
		}
		if q.Points <= 0 {
			return nil, fmt.Errorf("question %d needs a positive point value", i)
		}
	}

	return pool, nil
}

// selectQuestions shuffles a copy of the pool and takes the first n,
// capped at the pool size.
func selectQuestions(pool []trivia.Question, n int) []trivia.Question {
	picked := make([]trivia.Question, len(pool))
	copy(picked, pool)

	// Fisher-Yates shuffle; rand.Int keeps the draw uniform.
	for i := len(picked) - 1; i > 0; i-- {
		r, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			break
		}
		j := int(r.Int64())
		picked[i], picked[j] = picked[j], picked[i]
	}

	if n > len(picked) {
		n = len(picked)
	}
	return picked[:n]
}
