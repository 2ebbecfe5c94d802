package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/winnowlabs/winnow/internal/model"
)

// ChatOracle talks to any OpenAI-compatible chat completion endpoint
// (OpenAI itself, or LM Studio's local server).
type ChatOracle struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	name    string
}

// NewChatOracle creates a chat-API oracle.
func NewChatOracle(cfg model.OracleConfig) (*ChatOracle, error) {
	apiKey := cfg.APIKey
	if strings.EqualFold(cfg.Provider, "lmstudio") && apiKey == "" {
		// LM Studio ignores the key but the client requires one.
		apiKey = "lm-studio"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("oracle API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &ChatOracle{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: timeout,
		name:    strings.ToLower(cfg.Provider),
	}, nil
}

// Name returns the provider name.
func (o *ChatOracle) Name() string {
	return o.name
}

// IsAvailable checks if the endpoint is reachable.
func (o *ChatOracle) IsAvailable(ctx context.Context) bool {
	_, err := o.client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oracle availability check failed: %v\n", err)
		return false
	}
	return true
}

type verdictPayload struct {
	Verdict       string `json:"verdict"`
	Justification string `json:"justification"`
}

// Classify judges one statement against one fragment.
func (o *ChatOracle) Classify(ctx context.Context, statement, fragment, subject string) (model.Verdict, string, error) {
	content, err := o.complete(ctx, classifyPrompt(statement, fragment, subject))
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
func (o *ChatOracle) Reformulate(ctx context.Context, question string, options map[string]string) (map[string]string, error) {
	content, err := o.complete(ctx, reformulatePrompt(question, options))
	if err != nil {
		return nil, err
	}
	return parseReformulated(content, options)
}

type keywordsPayload struct {
	Keywords []string `json:"keywords"`
}

// Keywords generates search terms for the live statements.
func (o *ChatOracle) Keywords(ctx context.Context, subject string, statements map[string]string) ([]string, error) {
	content, err := o.complete(ctx, keywordsPrompt(subject, statements))
	if err != nil {
		return nil, err
	}

	var payload keywordsPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return payload.Keywords, nil
}

// complete sends one user message and returns the trimmed response content.
func (o *ChatOracle) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("oracle API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrMalformed)
	}
	return stripFences(resp.Choices[0].Message.Content), nil
}

// parseReformulated maps the response object back onto the input letters,
// tolerating lower-case keys. A missing letter is a malformed response.
func parseReformulated(content string, options map[string]string) (map[string]string, error) {
	var raw map[string]string
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	upper := make(map[string]string, len(raw))
	for k, v := range raw {
		upper[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	out := make(map[string]string, len(options))
	for letter := range options {
		statement := upper[strings.ToUpper(letter)]
		if statement == "" {
			return nil, fmt.Errorf("%w: missing option %s", ErrMalformed, letter)
		}
		out[letter] = statement
	}
	return out, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one despite the response format hint.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
