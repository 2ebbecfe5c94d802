package embed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/winnowlabs/winnow/internal/model"
)

func testConfig(baseURL string, dimension int) model.EmbeddingConfig {
	return model.EmbeddingConfig{
		Model:     "text-embedding-3-small",
		Dimension: dimension,
		MaxChars:  32_000,
		APIKey:    "test-key",
		BaseURL:   baseURL,
	}
}

func embeddingServer(t *testing.T, dimension int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("Expected /embeddings path, got %s", r.URL.Path)
		}

		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Decode request: %v", err)
		}

		type datum struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		resp := struct {
			Object string  `json:"object"`
			Data   []datum `json:"data"`
			Model  string  `json:"model"`
		}{Object: "list", Model: "text-embedding-3-small"}

		for i := range req.Input {
			vec := make([]float32, dimension)
			vec[0] = float32(i + 1)
			resp.Data = append(resp.Data, datum{Object: "embedding", Index: i, Embedding: vec})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	server := embeddingServer(t, 4)
	defer server.Close()

	embedder := newTestEmbedder(t, server.URL, 4)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("Expected 2 vectors, got %d", len(vectors))
	}
	if vectors[0][0] != 1 || vectors[1][0] != 2 {
		t.Errorf("Vectors not joined to their inputs by index: %v %v", vectors[0][0], vectors[1][0])
	}
}

func TestOpenAIEmbedder_RejectsWrongDimension(t *testing.T) {
	server := embeddingServer(t, 3)
	defer server.Close()

	// Embedder expects 4 dimensions, server returns 3
	embedder := newTestEmbedder(t, server.URL, 4)

	_, err := embedder.Embed(context.Background(), "some text")
	if !errors.Is(err, ErrInvalidVector) {
		t.Fatalf("Expected ErrInvalidVector, got %v", err)
	}
}

func newTestEmbedder(t *testing.T, baseURL string, dimension int) *OpenAIEmbedder {
	t.Helper()
	embedder, err := NewOpenAIEmbedder(testConfig(baseURL, dimension))
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder failed: %v", err)
	}
	return embedder
}

func TestValidate(t *testing.T) {
	if err := Validate([]float32{1, 2, 3}, 3); err != nil {
		t.Errorf("Expected valid vector, got %v", err)
	}
	if err := Validate([]float32{1, 2}, 3); !errors.Is(err, ErrInvalidVector) {
		t.Errorf("Expected dimension error, got %v", err)
	}

	nan := []float32{1, float32(math.NaN()), 3}
	if err := Validate(nan, 3); !errors.Is(err, ErrInvalidVector) {
		t.Errorf("Expected non-finite error, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("Expected unchanged text, got %q", got)
	}

	long := strings.Repeat("é", 50) // multi-byte runes
	got := Truncate(long, 10)
	if len([]rune(got)) != 10 {
		t.Errorf("Expected 10 runes, got %d", len([]rune(got)))
	}

	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("Expected no-op for zero budget, got %q", got)
	}
}
