// Package engine implements the elimination state machine: retrieval
// rounds, per-fragment classification of live candidates and the
// elimination, acceptance and reset rules that terminate on a single
// answer or an exhausted budget.
package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/winnowlabs/winnow/internal/model"
	"github.com/winnowlabs/winnow/internal/worker"
)

// State names the engine's position in its lifecycle.
type State string

const (
	StateActive    State = "ACTIVE"    // Two or more candidates live
	StateConverged State = "CONVERGED" // One candidate, answer known
	StateExhausted State = "EXHAUSTED" // Budget spent without an answer
	StateReset     State = "RESET"     // All candidates disproven in one round
)

// Retriever supplies ranked fragments for a subject, excluding sources the
// caller already consumed.
type Retriever interface {
	Retrieve(ctx context.Context, subject string, terms, keywords []string, excluded map[string]bool) ([]model.Fragment, error)
}

// Judge is the slice of the oracle the engine needs: verdicts and search
// keywords. Reformulation happens before the engine runs.
type Judge interface {
	Classify(ctx context.Context, statement, fragment, subject string) (model.Verdict, string, error)
	Keywords(ctx context.Context, subject string, statements map[string]string) ([]string, error)
}

// Decision is the engine's terminal output for one question.
type Decision struct {
	State         State
	Letter        string // Winning candidate letter, empty when exhausted
	Statement     string
	Justification string
	SourceURL     string // Deciding source, or "multiple sources" for elimination
	Rounds        int
	Fragments     int // Unique sources classified
	Resets        int
}

// Engine drives one question at a time. It is not re-entrant: run
// concurrent questions on separate instances.
type Engine struct {
	retriever       Retriever
	judge           Judge
	maxRounds       int
	maxFragments    int
	minRounds       int
	maxTerms        int
	classifyWorkers int
	verbose         bool
}

// New creates an engine wired from the given configuration.
func New(cfg *model.Config, retriever Retriever, judge Judge) *Engine {
	return &Engine{
		retriever:       retriever,
		judge:           judge,
		maxRounds:       cfg.Engine.MaxRounds,
		maxFragments:    cfg.Engine.MaxFragments,
		minRounds:       cfg.Engine.MinRounds,
		maxTerms:        cfg.Engine.MaxTerms,
		classifyWorkers: cfg.Concurrency.ClassifyWorkers,
		verbose:         cfg.Output.Verbose,
	}
}

// round is the mutable context for one question: the live candidate set,
// the sources already analyzed, and the budget counters.
type round struct {
	candidates        *model.CandidateSet
	usedSources       map[string]bool
	number            int
	fragments         int
	resets            int
	lastJustification string
}

// Run processes one question: statements maps candidate letters to their
// reformulated statement texts. It always terminates within the configured
// round and fragment ceilings.
func (e *Engine) Run(ctx context.Context, subject string, statements map[string]string) (*Decision, error) {
	if len(statements) < 2 {
		return nil, fmt.Errorf("need at least two candidate statements, got %d", len(statements))
	}

	r := &round{
		candidates:  model.NewCandidateSet(statements),
		usedSources: make(map[string]bool),
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("question aborted: %w", err)
		}

		// A sole survivor after at least one completed round is accepted
		// by process of elimination: exactly one statement is true, and
		// every other one has explicit contradicting evidence.
		if sole := r.candidates.Sole(); sole != nil && r.number >= 1 {
			return e.convergeByElimination(r, sole), nil
		}
		if r.number >= e.maxRounds || r.fragments >= e.maxFragments {
			return e.exhaust(r), nil
		}

		r.number++
		e.logf("round %d: %d live candidates, %d sources used", r.number, r.candidates.LiveCount(), len(r.usedSources))

		fragments := e.retrieveRound(ctx, subject, r)
		if len(fragments) == 0 {
			if r.number >= e.minRounds {
				e.logf("round %d: no new evidence after minimum rounds, giving up", r.number)
				return e.exhaust(r), nil
			}
			continue
		}

		if winner := e.classifyRound(ctx, subject, r, fragments); winner != nil {
			e.logf("round %d: %s confirmed by %s", r.number, winner.Letter, winner.SourceURL)
			return &Decision{
				State:         StateConverged,
				Letter:        winner.Letter,
				Statement:     r.candidates.Get(winner.Letter).Statement,
				Justification: winner.Justification,
				SourceURL:     winner.SourceURL,
				Rounds:        r.number,
				Fragments:     r.fragments,
				Resets:        r.resets,
			}, nil
		}
	}
}

// retrieveRound derives search terms from the live candidates and fetches
// new fragments, broadening to a subject-only query once if the first
// retrieval comes back empty. Fragments from already-analyzed sources are
// dropped here so the dedup invariant holds even against misbehaving
// retrievers.
func (e *Engine) retrieveRound(ctx context.Context, subject string, r *round) []model.Fragment {
	keywords := e.searchKeywords(ctx, subject, r)
	terms := append([]string{subject}, keywords...)

	fragments, err := e.retriever.Retrieve(ctx, subject, terms, keywords, r.usedSources)
	if err != nil {
		e.logf("round %d: retrieve: %v", r.number, err)
	}
	fresh := e.filterNewSources(fragments, r)
	if len(fresh) > 0 {
		return fresh
	}

	fragments, err = e.retriever.Retrieve(ctx, subject, nil, nil, r.usedSources)
	if err != nil {
		e.logf("round %d: broadened retrieve: %v", r.number, err)
	}
	return e.filterNewSources(fragments, r)
}

// searchKeywords asks the oracle for terms covering the live statements,
// capped at the configured limit. Oracle failure degrades to a subject-only
// query.
func (e *Engine) searchKeywords(ctx context.Context, subject string, r *round) []string {
	live := make(map[string]string)
	for _, c := range r.candidates.Live() {
		live[c.Letter] = c.Statement
	}

	keywords, err := e.judge.Keywords(ctx, subject, live)
	if err != nil {
		e.logf("round %d: keywords: %v", r.number, err)
		return nil
	}
	if len(keywords) > e.maxTerms {
		keywords = keywords[:e.maxTerms]
	}
	return keywords
}

// filterNewSources keeps the first fragment per source identifier that has
// not been analyzed in this question, preserving rank order.
func (e *Engine) filterNewSources(fragments []model.Fragment, r *round) []model.Fragment {
	seen := make(map[string]bool)
	var fresh []model.Fragment
	for _, f := range fragments {
		if r.usedSources[f.SourceURL] || seen[f.SourceURL] {
			continue
		}
		seen[f.SourceURL] = true
		fresh = append(fresh, f)
	}
	return fresh
}

// classifyRound walks the fragments in ranked order, judging every live
// candidate against each. It returns the winning judgment the moment a
// true verdict appears, or nil when the round ends without one.
func (e *Engine) classifyRound(ctx context.Context, subject string, r *round, fragments []model.Fragment) *model.Judgment {
	for _, frag := range fragments {
		if r.fragments >= e.maxFragments {
			return nil
		}
		live := r.candidates.Live()
		if len(live) < 2 {
			// Sole survivor: let the next round check converge.
			return nil
		}

		r.usedSources[frag.SourceURL] = true
		r.fragments++

		judgments := e.classifyFragment(ctx, subject, frag, live)
		if winner := e.applyJudgments(r, judgments); winner != nil {
			return winner
		}

		if r.candidates.LiveCount() == 0 {
			// RESET: the whole set disproven in one round means the
			// classifier over-eagerly contradicted at least one true
			// statement. Restore everyone and start a fresh round;
			// the rest of this round's fragments stay unanalyzed.
			e.logf("round %d: all candidates disproven, resetting liveness", r.number)
			r.resets++
			r.candidates.Restore()
			return nil
		}
	}
	return nil
}

// classifyFragment judges each live candidate against one fragment with
// bounded parallelism. A true verdict cancels the remaining calls for this
// fragment since the answer is already decided; cancelled or failed calls
// surface as unclear.
func (e *Engine) classifyFragment(ctx context.Context, subject string, frag model.Fragment, live []*model.Candidate) []model.Judgment {
	fragCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make([]worker.Job[model.Judgment], len(live))
	for i, c := range live {
		c := c
		jobs[i] = func(jobCtx context.Context) model.Judgment {
			verdict, justification, err := e.judge.Classify(jobCtx, c.Statement, frag.Content, subject)
			if err != nil {
				e.logf("classify %s against %s: %v", c.Letter, frag.SourceURL, err)
				verdict, justification = model.VerdictUnclear, ""
			}
			if verdict == model.VerdictTrue {
				cancel()
			}
			return model.Judgment{
				Letter:        c.Letter,
				SourceURL:     frag.SourceURL,
				Verdict:       verdict,
				Justification: justification,
			}
		}
	}
	return worker.NewPool[model.Judgment](e.classifyWorkers).Run(fragCtx, jobs)
}

// applyJudgments mutates the candidate set from one fragment's verdicts.
// Judgments arrive in letter order, so simultaneous true verdicts resolve
// deterministically to the alphabetically first; any extra true is a
// protocol violation worth logging, never silently accepted.
func (e *Engine) applyJudgments(r *round, judgments []model.Judgment) *model.Judgment {
	var winner *model.Judgment
	for i := range judgments {
		j := judgments[i]
		if j.Verdict != model.VerdictTrue {
			continue
		}
		if winner == nil {
			winner = &judgments[i]
		} else {
			e.logf("round %d: simultaneous true verdicts for %s and %s, keeping %s", r.number, winner.Letter, j.Letter, winner.Letter)
		}
	}
	if winner != nil {
		return winner
	}

	for _, j := range judgments {
		if j.Verdict == model.VerdictFalse {
			r.candidates.Eliminate(j.Letter)
			if j.Justification != "" {
				r.lastJustification = j.Justification
			}
		}
	}
	return nil
}

func (e *Engine) convergeByElimination(r *round, sole *model.Candidate) *Decision {
	e.logf("round %d: %s selected by elimination", r.number, sole.Letter)
	return &Decision{
		State:         StateConverged,
		Letter:        sole.Letter,
		Statement:     sole.Statement,
		Justification: "selected by elimination",
		SourceURL:     model.SourceMultiple,
		Rounds:        r.number,
		Fragments:     r.fragments,
		Resets:        r.resets,
	}
}

func (e *Engine) exhaust(r *round) *Decision {
	return &Decision{
		State:         StateExhausted,
		Justification: r.lastJustification,
		Rounds:        r.number,
		Fragments:     r.fragments,
		Resets:        r.resets,
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
