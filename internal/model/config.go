package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds all winnow configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Cache       CacheConfig       `yaml:"cache"`
	Search      SearchConfig      `yaml:"search"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Oracle      OracleConfig      `yaml:"oracle"`
	Engine      EngineConfig      `yaml:"engine"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// HTTPConfig controls outbound page fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty"`
	NoProxy       string        `yaml:"no_proxy,omitempty"`
}

// CacheConfig controls the per-subject embedding cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`        // Root directory for subject namespaces
	MemoryTTL time.Duration `yaml:"memory_ttl"` // TTL for the in-process layer
}

// SearchConfig controls the search provider boundary
type SearchConfig struct {
	Providers      []string      `yaml:"providers"`    // Enabled providers, in fanout order
	MaxResults     int           `yaml:"max_results"`  // Sources kept per search (after domain dedup)
	InterCallDelay time.Duration `yaml:"inter_call_delay"`
	FindZebraKey   string        `yaml:"findzebra_key,omitempty"`
}

// EmbeddingConfig controls the embedding provider boundary
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"` // Vectors of any other length are rejected
	MaxChars  int    `yaml:"max_chars"` // Input truncation before submission
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// OracleConfig controls the judgment oracle boundary
type OracleConfig struct {
	Provider string `yaml:"provider"` // openai, lmstudio, ollama
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// EngineConfig bounds the elimination state machine
type EngineConfig struct {
	MaxRounds    int `yaml:"max_rounds"`    // Hard round ceiling
	MaxFragments int `yaml:"max_fragments"` // Hard ceiling on analyzed fragments
	MinRounds    int `yaml:"min_rounds"`    // Rounds before no-new-evidence forces EXHAUSTED
	TopFragments int `yaml:"top_fragments"` // Ranked fragments returned per retrieval
	MaxTerms     int `yaml:"max_terms"`     // Search terms per round, excluding the subject
	ChunkMin     int `yaml:"chunk_min"`     // Chunk size band, characters
	ChunkMax     int `yaml:"chunk_max"`
}

// ConcurrencyConfig bounds parallel external calls
type ConcurrencyConfig struct {
	FetchWorkers    int     `yaml:"fetch_workers"`    // Parallel page fetches per round
	ClassifyWorkers int     `yaml:"classify_workers"` // Parallel oracle calls per fragment
	QuestionWorkers int     `yaml:"question_workers"` // Parallel questions in batch mode
	RequestsPerSec  float64 `yaml:"requests_per_sec"` // Per-domain fetch rate
	Burst           int     `yaml:"burst"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool   `yaml:"verbose"`
	Format  string `yaml:"format"` // json or csv
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		HTTP: HTTPConfig{
			Timeout:       15 * time.Second,
			UserAgent:     "Winnow/0.1 (+https://github.com/winnowlabs/winnow)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join(home, ".winnow", "cache"),
			MemoryTTL: 30 * time.Minute,
		},
		Search: SearchConfig{
			Providers:      []string{"duckduckgo"},
			MaxResults:     3,
			InterCallDelay: 300 * time.Millisecond,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Dimension: 1536,
			MaxChars:  32_000,
		},
		Oracle: OracleConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  60,
		},
		Engine: EngineConfig{
			MaxRounds:    10,
			MaxFragments: 10,
			MinRounds:    5,
			TopFragments: 10,
			MaxTerms:     3,
			ChunkMin:     2_000,
			ChunkMax:     8_000,
		},
		Concurrency: ConcurrencyConfig{
			FetchWorkers:    3,
			ClassifyWorkers: 4,
			QuestionWorkers: 1,
			RequestsPerSec:  2,
			Burst:           3,
		},
		Output: OutputConfig{
			Verbose: false,
			Format:  "json",
		},
	}
}
