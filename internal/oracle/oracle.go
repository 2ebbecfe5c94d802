// Package oracle is the bridge to the external judgment model. It renders
// three-valued verdicts on (statement, fragment) pairs and hosts the two
// preparation agents: option reformulation and search keyword generation.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/winnowlabs/winnow/internal/model"
)

// ErrMalformed reports an oracle response that is missing required fields
// or uses a verdict outside the three-valued vocabulary. Callers treat the
// affected pair as unclear rather than aborting the round.
var ErrMalformed = errors.New("malformed oracle response")

// Oracle is the judgment boundary. Classify is stateless and idempotent for
// identical inputs; all evidence accumulation happens in the caller.
type Oracle interface {
	// Name returns the provider name.
	Name() string

	// Classify judges one statement against one fragment. The verdict is
	// true only when the fragment explicitly confirms the statement, false
	// only on explicit contradiction, and unclear when the fragment says
	// nothing relevant. Absence of information is never false.
	Classify(ctx context.Context, statement, fragment, subject string) (model.Verdict, string, error)

	// Reformulate rewrites the question's options as standalone statements
	// keyed by the same letters, inverting them for EXCEPT/NOT questions.
	Reformulate(ctx context.Context, question string, options map[string]string) (map[string]string, error)

	// Keywords generates search terms for the given live statements.
	Keywords(ctx context.Context, subject string, statements map[string]string) ([]string, error)

	// IsAvailable checks if the provider is configured and reachable.
	IsAvailable(ctx context.Context) bool
}

// New creates an oracle from configuration. Both OpenAI and LM Studio speak
// the OpenAI chat API and share one implementation; Ollama gets its native
// endpoint.
func New(cfg model.OracleConfig) (Oracle, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "lmstudio":
		return NewChatOracle(cfg)

	case "ollama":
		return NewOllamaOracle(cfg)

	default:
		return nil, fmt.Errorf("unknown oracle provider: %s (supported: openai, lmstudio, ollama)", cfg.Provider)
	}
}
