package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

func newTestGenerator(baseURL string) *Generator {
	return NewGenerator(&GeneratorConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "test-model",
		MaxTokens:   1024,
		Temperature: 0.3,
		Provider:    "test",
		Logger:      zap.NewNop(),
	})
}

func TestGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.MaxTokens != 1024 {
			t.Errorf("max_tokens = %d, want 1024", req.MaxTokens)
		}
		if len(req.Messages) != 3 {
			t.Fatalf("got %d messages, want 3 (system + 2 turns)", len(req.Messages))
		}
		if req.Messages[0].Role != "system" || !strings.Contains(req.Messages[0].Content, "tutor") {
			t.Errorf("first message = %+v, want system prompt", req.Messages[0])
		}
		if req.Messages[1].Role != "user" || req.Messages[2].Role != "assistant" {
			t.Errorf("turn roles = %s, %s", req.Messages[1].Role, req.Messages[2].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "A node is a process."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 12, "total_tokens": 112}
		}`)
	}))
	defer server.Close()

	answer, err := newTestGenerator(server.URL).Generate(context.Background(), "You are a tutor.", []domain.Message{
		{Role: domain.RoleUser, Content: "What is a node?"},
		{Role: domain.RoleAssistant, Content: "Let me explain."},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "A node is a process." {
		t.Errorf("answer = %q", answer)
	}
}

func TestGenerator_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id": "cmpl-1", "object": "chat.completion", "choices": []}`)
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "sys", nil)
	if !errors.Is(err, domain.ErrGenerationFailure) {
		t.Fatalf("err = %v, want ErrGenerationFailure", err)
	}
}

func TestGenerator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprint(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "sys", nil)
	if !errors.Is(err, domain.ErrGenerationFailure) {
		t.Fatalf("err = %v, want ErrGenerationFailure", err)
	}
}

func TestGenerator_GenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")

		chunks := []string{"A node ", "is a ", "process."}
		for _, c := range chunks {
			payload, _ := json.Marshal(map[string]any{
				"id":      "cmpl-1",
				"object":  "chat.completion.chunk",
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": c}}},
			})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	out, err := newTestGenerator(server.URL).GenerateStream(context.Background(), "sys", []domain.Message{
		{Role: domain.RoleUser, Content: "What is a node?"},
	})
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}

	var sb strings.Builder
	for chunk := range out {
		sb.WriteString(chunk)
	}
	if sb.String() != "A node is a process." {
		t.Errorf("streamed = %q", sb.String())
	}
}
