// Package report renders question result records as JSON, CSV or
// human-readable text, and aggregates accuracy over a batch.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/winnowlabs/winnow/internal/model"
)

// WriteJSON renders the results as an indented JSON array.
func WriteJSON(w io.Writer, results []model.Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"question", "subject", "outcome", "answer", "statement",
	"justification", "source_url", "rounds", "fragments",
	"correct_answer", "correct", "duration",
}

// WriteCSV renders the results as CSV with a header row.
func WriteCSV(w io.Writer, results []model.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		row := []string{
			r.Question,
			r.Subject,
			string(r.Outcome),
			r.Answer,
			r.Statement,
			r.Justification,
			r.SourceURL,
			strconv.Itoa(r.Rounds),
			strconv.Itoa(r.Fragments),
			r.CorrectAnswer,
			strconv.FormatBool(r.Correct()),
			r.Duration,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteText renders one result for terminal output.
func WriteText(w io.Writer, r model.Result) {
	fmt.Fprintf(w, "Subject:  %s\n", r.Subject)
	fmt.Fprintf(w, "Outcome:  %s\n", r.Outcome)
	fmt.Fprintf(w, "Answer:   %s\n", r.Answer)
	if r.Statement != "" {
		fmt.Fprintf(w, "Statement: %s\n", r.Statement)
	}
	if r.Justification != "" {
		fmt.Fprintf(w, "Why:      %s\n", r.Justification)
	}
	if r.SourceURL != "" {
		fmt.Fprintf(w, "Source:   %s\n", r.SourceURL)
	}
	fmt.Fprintf(w, "Effort:   %d rounds, %d fragments", r.Rounds, r.Fragments)
	if r.Duration != "" {
		fmt.Fprintf(w, ", %s", r.Duration)
	}
	fmt.Fprintln(w)
	if r.CorrectAnswer != "" {
		verdict := "WRONG"
		if r.Correct() {
			verdict = "CORRECT"
		}
		fmt.Fprintf(w, "Gold:     %s (%s)\n", r.CorrectAnswer, verdict)
	}
}

// Summary aggregates a batch of results.
type Summary struct {
	Total     int
	Converged int
	Exhausted int
	Scored    int // Results carrying a gold answer
	Correct   int
}

// Summarize computes batch statistics.
func Summarize(results []model.Result) Summary {
	var s Summary
	s.Total = len(results)
	for _, r := range results {
		switch r.Outcome {
		case model.OutcomeConverged:
			s.Converged++
		case model.OutcomeExhausted:
			s.Exhausted++
		}
		if r.CorrectAnswer != "" {
			s.Scored++
			if r.Correct() {
				s.Correct++
			}
		}
	}
	return s
}

// Accuracy returns the fraction of scored results answered correctly, or 0
// when nothing was scored.
func (s Summary) Accuracy() float64 {
	if s.Scored == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Scored)
}

// WriteSummary renders the batch statistics.
func (s Summary) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "Questions: %d (converged %d, exhausted %d)\n", s.Total, s.Converged, s.Exhausted)
	if s.Scored > 0 {
		fmt.Fprintf(w, "Accuracy:  %d/%d (%.1f%%)\n", s.Correct, s.Scored, s.Accuracy()*100)
	}
}
