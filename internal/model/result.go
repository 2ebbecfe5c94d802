package model

import "time"

// Outcome names the terminal state of one question
type Outcome string

const (
	OutcomeConverged Outcome = "converged" // Exactly one candidate survived
	OutcomeExhausted Outcome = "exhausted" // Budget spent without an answer
)

// SourceMultiple is recorded when an answer was selected by elimination
// rather than by direct positive evidence from a single source.
const SourceMultiple = "multiple sources"

// Result is the record produced for one question, sufficient for external
// accuracy scoring.
type Result struct {
	Question      string    `json:"question"`
	Subject       string    `json:"subject"`
	Outcome       Outcome   `json:"outcome"`
	Answer        string    `json:"answer"`    // Candidate letter, or "unclear" when exhausted
	Statement     string    `json:"statement"` // Winning statement text, empty when exhausted
	Justification string    `json:"justification"`
	SourceURL     string    `json:"source_url"` // Deciding source, or "multiple sources"
	Rounds        int       `json:"rounds"`
	Fragments     int       `json:"fragments"` // Fragments analyzed
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	AnsweredAt    time.Time `json:"answered_at"`
	Duration      string    `json:"duration,omitempty"`
}

// AnswerUnclear is the answer value reported for exhausted questions.
const AnswerUnclear = "unclear"

// Correct reports whether the recorded answer matches the gold answer.
// Returns false when no gold answer is attached.
func (r Result) Correct() bool {
	return r.CorrectAnswer != "" && r.Answer == r.CorrectAnswer
}
