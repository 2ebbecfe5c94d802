package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/winnowlabs/winnow/internal/model"
	"github.com/winnowlabs/winnow/internal/report"
)

var (
	askSubject string
	askOptions []string
	askAnswer  string
	askRaw     bool
	askJSON    string
	askTimeout time.Duration
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single multiple-choice question",
	Long: `Ask answers one multiple-choice question by elimination:
- Reformulate the options as standalone statements (inverted for EXCEPT/NOT questions)
- Retrieve and rank source text for the subject, cache-first
- Judge each live statement against the evidence until one survives

Example:
  winnow ask "Which statement is TRUE about Gaucher disease?" \
    --subject "Gaucher disease" \
    --option "Caused by glucocerebrosidase deficiency" \
    --option "Inherited in an autosomal dominant pattern" \
    --option "Primarily affects the lungs" \
    --option "Caused by a chromosomal trisomy"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askSubject, "subject", "", "subject the question is about (cache namespace)")
	askCmd.Flags().StringArrayVar(&askOptions, "option", nil, "answer option, repeated; assigned letters A-D in order")
	askCmd.Flags().StringVar(&askAnswer, "answer", "", "gold answer letter, for scoring")
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "skip option reformulation, use options verbatim")
	askCmd.Flags().StringVar(&askJSON, "json", "", "also write the result record to this JSON file")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 10*time.Minute, "overall question timeout")
	_ = askCmd.MarkFlagRequired("subject")
	_ = askCmd.MarkFlagRequired("option")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if len(askOptions) < 2 || len(askOptions) > 4 {
		return fmt.Errorf("expected 2 to 4 --option flags, got %d", len(askOptions))
	}

	options := make(map[string]string, len(askOptions))
	for i, text := range askOptions {
		options[string(rune('A'+i))] = text
	}

	cfg := loadConfig()
	s, err := newStack(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	q := question{
		Question: args[0],
		Subject:  askSubject,
		Options:  options,
		Answer:   askAnswer,
	}
	result := s.answer(ctx, q, !askRaw)

	report.WriteText(os.Stdout, result)

	if askJSON != "" {
		f, err := os.Create(askJSON)
		if err != nil {
			return fmt.Errorf("create %s: %w", askJSON, err)
		}
		defer func() { _ = f.Close() }()
		if err := report.WriteJSON(f, []model.Result{result}); err != nil {
			return err
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "Wrote result: %s\n", askJSON)
		}
	}
	return nil
}
