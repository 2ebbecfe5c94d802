package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/winnowlabs/winnow/internal/model"
	"github.com/winnowlabs/winnow/internal/report"
	"github.com/winnowlabs/winnow/internal/worker"
)

var (
	batchOutput   string
	batchFormat   string
	batchWorkers  int
	batchTimeout  time.Duration
	batchRaw      bool
	batchMaxLines int
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <questions.jsonl>",
	Short: "Answer multiple questions from a JSON-lines file",
	Long: `Batch answers a dataset of multiple-choice questions:
- Read questions from a JSON-lines file, one object per line:
    {"question": "...", "subject": "...", "options": {"A": "...", "B": "...", "C": "...", "D": "..."}, "answer": "B"}
- Answer questions in parallel with independent engine instances
- Write one result record per question, plus an accuracy summary when
  gold answers are present

Example:
  winnow batch questions.jsonl
  winnow batch questions.jsonl --output results.csv --format csv --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchOutput, "output", "results.json", "output path for result records")
	batchCmd.Flags().StringVar(&batchFormat, "format", "", "output format: json or csv (default from config)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "parallel questions (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 2*time.Hour, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&batchRaw, "raw", false, "skip option reformulation, use options verbatim")
	batchCmd.Flags().IntVar(&batchMaxLines, "limit", 0, "answer at most this many questions (0 = all)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if batchFormat == "" {
		batchFormat = cfg.Output.Format
	}
	if batchFormat != "json" && batchFormat != "csv" {
		return fmt.Errorf("unknown output format: %s (supported: json, csv)", batchFormat)
	}
	if batchWorkers > 0 {
		cfg.Concurrency.QuestionWorkers = batchWorkers
	}

	questions, err := readQuestions(args[0], batchMaxLines)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions in %s", args[0])
	}

	s, err := newStack(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Answering %d questions with %d workers...\n", len(questions), cfg.Concurrency.QuestionWorkers)

	jobs := make([]worker.Job[model.Result], len(questions))
	for i, q := range questions {
		q := q
		jobs[i] = func(ctx context.Context) model.Result {
			result := s.answer(ctx, q, !batchRaw)
			var status string
			switch {
			case result.CorrectAnswer == "":
				status = string(result.Outcome)
			case result.Correct():
				status = "correct"
			default:
				status = "wrong"
			}
			fmt.Fprintf(os.Stderr, "  %-30s %s (%s)\n", q.Subject, result.Answer, status)
			return result
		}
	}
	results := worker.NewPool[model.Result](cfg.Concurrency.QuestionWorkers).Run(ctx, jobs)

	if err := writeResults(batchOutput, batchFormat, results); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", batchOutput)

	report.Summarize(results).WriteSummary(os.Stderr)
	return nil
}

// readQuestions loads a JSON-lines question file, skipping blank lines.
func readQuestions(path string, limit int) ([]question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var questions []question
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var q question
		if err := json.Unmarshal(text, &q); err != nil {
			return nil, fmt.Errorf("parse line %d: %w", line, err)
		}
		if q.Subject == "" || len(q.Options) < 2 {
			return nil, fmt.Errorf("line %d: subject and at least two options are required", line)
		}
		questions = append(questions, q)
		if limit > 0 && len(questions) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	return questions, nil
}

func writeResults(path, format string, results []model.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if format == "csv" {
		return report.WriteCSV(f, results)
	}
	return report.WriteJSON(f, results)
}
