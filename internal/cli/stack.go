package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/winnowlabs/winnow/internal/cache"
	"github.com/winnowlabs/winnow/internal/embed"
	"github.com/winnowlabs/winnow/internal/engine"
	"github.com/winnowlabs/winnow/internal/fetch"
	"github.com/winnowlabs/winnow/internal/model"
	"github.com/winnowlabs/winnow/internal/oracle"
	"github.com/winnowlabs/winnow/internal/retrieve"
	"github.com/winnowlabs/winnow/internal/search"
	"github.com/winnowlabs/winnow/internal/worker"
)

// loadConfig builds the effective configuration: defaults, overridden by
// the config file and WINNOW_* environment variables through viper, then
// conventional API key variables, then flags.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()

	setString := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}
	setBool := func(key string, dst *bool) {
		if viper.IsSet(key) {
			*dst = viper.GetBool(key)
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if viper.IsSet(key) {
			*dst = viper.GetDuration(key)
		}
	}

	setDuration("http.timeout", &cfg.HTTP.Timeout)
	setString("http.user_agent", &cfg.HTTP.UserAgent)
	setBool("http.respect_robots", &cfg.HTTP.RespectRobots)
	setString("http.http_proxy", &cfg.HTTP.HTTPProxy)
	setString("http.https_proxy", &cfg.HTTP.HTTPSProxy)

	setBool("cache.enabled", &cfg.Cache.Enabled)
	setString("cache.dir", &cfg.Cache.Dir)
	setDuration("cache.memory_ttl", &cfg.Cache.MemoryTTL)

	if viper.IsSet("search.providers") {
		cfg.Search.Providers = viper.GetStringSlice("search.providers")
	}
	setInt("search.max_results", &cfg.Search.MaxResults)
	setDuration("search.inter_call_delay", &cfg.Search.InterCallDelay)
	setString("search.findzebra_key", &cfg.Search.FindZebraKey)

	setString("embedding.model", &cfg.Embedding.Model)
	setInt("embedding.dimension", &cfg.Embedding.Dimension)
	setInt("embedding.max_chars", &cfg.Embedding.MaxChars)
	setString("embedding.api_key", &cfg.Embedding.APIKey)
	setString("embedding.base_url", &cfg.Embedding.BaseURL)

	setString("oracle.provider", &cfg.Oracle.Provider)
	setString("oracle.model", &cfg.Oracle.Model)
	setString("oracle.api_key", &cfg.Oracle.APIKey)
	setString("oracle.base_url", &cfg.Oracle.BaseURL)
	setInt("oracle.timeout", &cfg.Oracle.Timeout)

	setInt("engine.max_rounds", &cfg.Engine.MaxRounds)
	setInt("engine.max_fragments", &cfg.Engine.MaxFragments)
	setInt("engine.min_rounds", &cfg.Engine.MinRounds)
	setInt("engine.top_fragments", &cfg.Engine.TopFragments)
	setInt("engine.max_terms", &cfg.Engine.MaxTerms)
	setInt("engine.chunk_min", &cfg.Engine.ChunkMin)
	setInt("engine.chunk_max", &cfg.Engine.ChunkMax)

	setInt("concurrency.fetch_workers", &cfg.Concurrency.FetchWorkers)
	setInt("concurrency.classify_workers", &cfg.Concurrency.ClassifyWorkers)
	setInt("concurrency.question_workers", &cfg.Concurrency.QuestionWorkers)
	setString("output.format", &cfg.Output.Format)

	// Conventional environment variables for keys not set any other way.
	if cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Search.FindZebraKey == "" {
		cfg.Search.FindZebraKey = os.Getenv("FINDZEBRA_API_KEY")
	}

	cfg.Output.Verbose = verbose || viper.GetBool("output.verbose")
	return cfg
}

// stack wires the full answering pipeline from configuration.
type stack struct {
	cfg          *model.Config
	store        cache.Store
	oracle       oracle.Oracle
	orchestrator *retrieve.Orchestrator
}

func newStack(cfg *model.Config) (*stack, error) {
	providers, err := search.NewProviders(cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("configure search providers: %w", err)
	}

	embedder, err := embed.NewOpenAIEmbedder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("configure embedder: %w", err)
	}

	orc, err := oracle.New(cfg.Oracle)
	if err != nil {
		return nil, fmt.Errorf("configure oracle: %w", err)
	}

	var store cache.Store
	if cfg.Cache.Enabled {
		store = cache.NewLayeredStore(cfg.Cache.Dir, cfg.Cache.MemoryTTL)
	} else {
		store = cache.NewMemoryStore(cfg.Cache.MemoryTTL)
	}

	limiter := worker.NewLimiter(cfg.Concurrency.RequestsPerSec, cfg.Concurrency.Burst)
	// NCBI asks for at most three requests per second.
	limiter.SetDomainRate("www.ncbi.nlm.nih.gov", 3, 1)
	fetcher := fetch.NewFetcher(cfg.HTTP, limiter, cfg.Search.InterCallDelay)

	return &stack{
		cfg:          cfg,
		store:        store,
		oracle:       orc,
		orchestrator: retrieve.NewOrchestrator(cfg, store, embedder, providers, fetcher),
	}, nil
}

// question is one multiple-choice question as read from input.
type question struct {
	Question string            `json:"question"`
	Subject  string            `json:"subject"`
	Options  map[string]string `json:"options"`
	Answer   string            `json:"answer,omitempty"` // Optional gold answer letter
}

// answer runs one question through reformulation and the elimination
// engine. It never returns an error: any failure is isolated into the
// question's own result record.
func (s *stack) answer(ctx context.Context, q question, reformulate bool) model.Result {
	start := time.Now()
	result := model.Result{
		Question:      q.Question,
		Subject:       q.Subject,
		CorrectAnswer: q.Answer,
	}

	statements := q.Options
	if reformulate {
		reformulated, err := s.oracle.Reformulate(ctx, q.Question, q.Options)
		if err != nil {
			s.logf("reformulate %q: %v (using original options)", q.Subject, err)
		} else {
			statements = reformulated
		}
	}
	if s.cfg.Output.Verbose {
		for _, c := range model.NewCandidateSet(statements).All() {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", c.Letter, c.Statement)
		}
	}

	// The engine is not re-entrant, so each question gets its own.
	decision, err := engine.New(s.cfg, s.orchestrator, s.oracle).Run(ctx, q.Subject, statements)
	result.AnsweredAt = time.Now().UTC()
	result.Duration = time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		result.Outcome = model.OutcomeExhausted
		result.Answer = model.AnswerUnclear
		result.Justification = err.Error()
		return result
	}

	result.Rounds = decision.Rounds
	result.Fragments = decision.Fragments
	if decision.State == engine.StateConverged {
		result.Outcome = model.OutcomeConverged
		result.Answer = decision.Letter
		result.Statement = decision.Statement
		result.Justification = decision.Justification
		result.SourceURL = decision.SourceURL
	} else {
		result.Outcome = model.OutcomeExhausted
		result.Answer = model.AnswerUnclear
		result.Justification = decision.Justification
	}
	return result
}

func (s *stack) logf(format string, args ...any) {
	if s.cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
