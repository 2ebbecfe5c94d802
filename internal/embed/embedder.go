// Package embed wraps the external embedding provider. Inputs are truncated
// to a fixed budget before submission and returned vectors are sanity-checked
// so malformed embeddings never reach the cache.
package embed

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/winnowlabs/winnow/internal/model"
)

// ErrInvalidVector marks embeddings with the wrong dimension or non-finite
// components. Callers drop the fragment rather than retrying in-round.
var ErrInvalidVector = errors.New("invalid embedding vector")

// Embedder turns text into fixed-dimension vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// OpenAIEmbedder implements Embedder against any OpenAI-compatible
// embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	modelName string
	dimension int
	maxChars  int
}

// NewOpenAIEmbedder creates an embedder from configuration.
func NewOpenAIEmbedder(cfg model.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = 1536
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 32_000
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = string(openai.SmallEmbedding3)
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		modelName: modelName,
		dimension: dimension,
		maxChars:  maxChars,
	}, nil
}

// Dimension returns the provider-declared vector length.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Embed computes the embedding for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch computes embeddings for several texts in one call.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = Truncate(t, e.maxChars)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.modelName),
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(input) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(input), len(resp.Data))
	}

	vectors := make([][]float32, len(input))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if err := Validate(d.Embedding, e.dimension); err != nil {
			return nil, err
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Validate rejects vectors with the wrong dimension or non-finite values.
func Validate(vector []float32, dimension int) error {
	if len(vector) != dimension {
		return fmt.Errorf("%w: got %d dimensions, want %d", ErrInvalidVector, len(vector), dimension)
	}
	for _, x := range vector {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite component", ErrInvalidVector)
		}
	}
	return nil
}

// Truncate cuts text to at most maxChars runes, at a rune boundary.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
