package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/winnowlabs/winnow/internal/model"
)

// chatServer returns an httptest server speaking just enough of the OpenAI
// chat API: every request gets content back as the assistant message.
func chatServer(t *testing.T, content func(prompt string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Decode request: %v", err)
		}
		prompt := ""
		if len(req.Messages) > 0 {
			prompt = req.Messages[0].Content
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content(prompt)}},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("Encode response: %v", err)
		}
	}))
}

func chatConfig(baseURL string) model.OracleConfig {
	return model.OracleConfig{
		Provider: "lmstudio",
		Model:    "test-model",
		BaseURL:  baseURL + "/v1",
		Timeout:  5,
	}
}

func TestChatOracle_Classify(t *testing.T) {
	server := chatServer(t, func(prompt string) string {
		if !strings.Contains(prompt, "Onset occurs in infancy.") {
			t.Errorf("Expected statement in prompt, got %q", prompt)
		}
		return `{"verdict": "false", "justification": "The text states onset in adulthood."}`
	})
	defer server.Close()

	o, err := NewChatOracle(chatConfig(server.URL))
	if err != nil {
		t.Fatalf("NewChatOracle failed: %v", err)
	}

	verdict, justification, err := o.Classify(context.Background(), "Onset occurs in infancy.", "Onset is typically in adulthood.", "Fabry disease")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if verdict != model.VerdictFalse {
		t.Errorf("Expected false verdict, got %q", verdict)
	}
	if !strings.Contains(justification, "adulthood") {
		t.Errorf("Unexpected justification: %q", justification)
	}
}

func TestChatOracle_ClassifyFencedJSON(t *testing.T) {
	server := chatServer(t, func(string) string {
		return "```json\n{\"verdict\": \"true\", \"justification\": \"Confirmed.\"}\n```"
	})
	defer server.Close()

	o, err := NewChatOracle(chatConfig(server.URL))
	if err != nil {
		t.Fatalf("NewChatOracle failed: %v", err)
	}

	verdict, _, err := o.Classify(context.Background(), "s", "f", "subject")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if verdict != model.VerdictTrue {
		t.Errorf("Expected true verdict, got %q", verdict)
	}
}

func TestChatOracle_ClassifyMalformed(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"not json", "the statement is probably false"},
		{"bad verdict", `{"verdict": "maybe", "justification": "hedging"}`},
		{"missing verdict", `{"justification": "no verdict field"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := chatServer(t, func(string) string { return tc.content })
			defer server.Close()

			o, err := NewChatOracle(chatConfig(server.URL))
			if err != nil {
				t.Fatalf("NewChatOracle failed: %v", err)
			}

			verdict, _, err := o.Classify(context.Background(), "s", "f", "subject")
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Expected ErrMalformed, got %v", err)
			}
			if verdict != model.VerdictUnclear {
				t.Errorf("Expected unclear fallback verdict, got %q", verdict)
			}
		})
	}
}

func TestChatOracle_Reformulate(t *testing.T) {
	server := chatServer(t, func(prompt string) string {
		if !strings.Contains(prompt, "EXCEPT") {
			t.Errorf("Expected question in prompt, got %q", prompt)
		}
		// Lower-case keys, as the original prompt schema uses.
		return `{"a": "Statement A", "b": "Statement B", "c": "Statement C", "d": "Statement D"}`
	})
	defer server.Close()

	o, err := NewChatOracle(chatConfig(server.URL))
	if err != nil {
		t.Fatalf("NewChatOracle failed: %v", err)
	}

	options := map[string]string{"A": "a1", "B": "b1", "C": "c1", "D": "d1"}
	statements, err := o.Reformulate(context.Background(), "All of the following are features EXCEPT", options)
	if err != nil {
		t.Fatalf("Reformulate failed: %v", err)
	}
	if len(statements) != 4 || statements["C"] != "Statement C" {
		t.Errorf("Unexpected statements: %+v", statements)
	}
}

func TestChatOracle_ReformulateMissingOption(t *testing.T) {
	server := chatServer(t, func(string) string {
		return `{"A": "Statement A", "B": "Statement B"}`
	})
	defer server.Close()

	o, err := NewChatOracle(chatConfig(server.URL))
	if err != nil {
		t.Fatalf("NewChatOracle failed: %v", err)
	}

	options := map[string]string{"A": "a1", "B": "b1", "C": "c1", "D": "d1"}
	if _, err := o.Reformulate(context.Background(), "q", options); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for missing option, got %v", err)
	}
}

func TestChatOracle_Keywords(t *testing.T) {
	server := chatServer(t, func(prompt string) string {
		if !strings.Contains(prompt, "Gaucher disease") {
			t.Errorf("Expected subject in prompt, got %q", prompt)
		}
		return `{"keywords": ["glucocerebrosidase", "hepatosplenomegaly", "bone crisis"]}`
	})
	defer server.Close()

	o, err := NewChatOracle(chatConfig(server.URL))
	if err != nil {
		t.Fatalf("NewChatOracle failed: %v", err)
	}

	keywords, err := o.Keywords(context.Background(), "Gaucher disease", map[string]string{"A": "s"})
	if err != nil {
		t.Fatalf("Keywords failed: %v", err)
	}
	if len(keywords) != 3 || keywords[0] != "glucocerebrosidase" {
		t.Errorf("Unexpected keywords: %v", keywords)
	}
}

func TestOllamaOracle_Classify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		if req.Format != "json" {
			t.Errorf("Expected json format, got %q", req.Format)
		}
		fmt.Fprint(w, `{"model": "test", "response": "{\"verdict\": \"unclear\", \"justification\": \"Nothing relevant.\"}", "done": true}`)
	}))
	defer server.Close()

	o, err := NewOllamaOracle(model.OracleConfig{Provider: "ollama", Model: "test", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("NewOllamaOracle failed: %v", err)
	}

	verdict, justification, err := o.Classify(context.Background(), "s", "f", "subject")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if verdict != model.VerdictUnclear {
		t.Errorf("Expected unclear verdict, got %q", verdict)
	}
	if justification != "Nothing relevant." {
		t.Errorf("Unexpected justification: %q", justification)
	}
}

func TestOllamaOracle_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "model not found"}`)
	}))
	defer server.Close()

	o, err := NewOllamaOracle(model.OracleConfig{Provider: "ollama", Model: "missing", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("NewOllamaOracle failed: %v", err)
	}

	_, _, err = o.Classify(context.Background(), "s", "f", "subject")
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("Expected API error with server message, got %v", err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(model.OracleConfig{Provider: "lmstudio", Model: "m"}); err != nil {
		t.Errorf("Expected lmstudio oracle, got error: %v", err)
	}
	if _, err := New(model.OracleConfig{Provider: "ollama", Model: "m"}); err != nil {
		t.Errorf("Expected ollama oracle, got error: %v", err)
	}
	if _, err := New(model.OracleConfig{Provider: "openai"}); err == nil {
		t.Error("Expected error for openai without API key")
	}
	if _, err := New(model.OracleConfig{Provider: "gemini"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
