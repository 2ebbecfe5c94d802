package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/winnowlabs/winnow/internal/model"
)

// OllamaOracle talks to a local Ollama server through its native generate
// endpoint, requesting JSON-formatted output.
type OllamaOracle struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaOracle creates an Ollama-backed oracle.
func NewOllamaOracle(cfg model.OracleConfig) (*OllamaOracle, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		// Local models can be slow on first load.
		timeout = 120 * time.Second
	}

	return &OllamaOracle{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider name.
func (o *OllamaOracle) Name() string {
	return "ollama"
}

// IsAvailable checks if the Ollama server is running.
func (o *OllamaOracle) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ollama availability check failed (connection to %s): %v\n", o.baseURL, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Classify judges one statement against one fragment.
func (o *OllamaOracle) Classify(ctx context.Context, statement, fragment, subject string) (model.Verdict, string, error) {
	content, err := o.generate(ctx, classifyPrompt(statement, fragment, subject))
	if err != nil {
		return model.VerdictUnclear, "", err
	}

	var payload verdictPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return model.VerdictUnclear, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	verdict, err := model.ParseVerdict(payload.Verdict)
	if err != nil {
		return model.VerdictUnclear, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return verdict, payload.Justification, nil
}

// Reformulate rewrites options as standalone statements.
func (o *OllamaOracle) Reformulate(ctx context.Context, question string, options map[string]string) (map[string]string, error) {
	content, err := o.generate(ctx, reformulatePrompt(question, options))
	if err != nil {
		return nil, err
	}
	return parseReformulated(content, options)
}

// Keywords generates search terms for the live statements.
func (o *OllamaOracle) Keywords(ctx context.Context, subject string, statements map[string]string) ([]string, error) {
	content, err := o.generate(ctx, keywordsPrompt(subject, statements))
	if err != nil {
		return nil, err
	}

	var payload keywordsPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return payload.Keywords, nil
}

// generate makes one non-streaming generate call and returns the trimmed
// response text.
func (o *OllamaOracle) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  false,
		Format:  "json",
		Options: ollamaOptions{Temperature: 0.1},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var generated ollamaResponse
	if err := json.Unmarshal(respBody, &generated); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return stripFences(generated.Response), nil
}
