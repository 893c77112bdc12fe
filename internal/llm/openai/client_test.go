package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"readability-backend/internal/llm"
)

func TestIsReasoningModel(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "o3", model: "o3-mini", want: true},
		{name: "uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4o", model: "gpt-4o", want: false},
		{name: "claude", model: "claude-sonnet-4-5-20250929", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isReasoningModel(tt.model); got != tt.want {
				t.Fatalf("isReasoningModel(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", "", "gpt-4o"); err == nil {
		t.Fatalf("expected error without api key")
	}
	if _, err := NewClient("key", "", " "); err == nil {
		t.Fatalf("expected error without model")
	}
}

func TestExtractPageUsesBaseURLAndJSONFormat(t *testing.T) {
	var mu sync.Mutex
	var lastPath string
	var lastBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		lastPath = r.URL.Path
		lastBody = payload
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"primaryTopic\":\"coffee\"}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", server.URL+"/v1/", "gemini-2.0-flash")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	raw, err := client.ExtractPage(context.Background(), llm.ExtractInput{ModelKey: "gemini", Content: "Coffee is a drink.", PromptVersion: llm.DefaultPromptVersion})
	if err != nil {
		t.Fatalf("extract page: %v", err)
	}
	if !strings.Contains(string(raw), "coffee") {
		t.Fatalf("unexpected content %s", raw)
	}

	mu.Lock()
	defer mu.Unlock()
	if lastPath != "/v1/chat/completions" {
		t.Fatalf("expected chat completions path, got %q", lastPath)
	}
	if lastBody["model"] != "gemini-2.0-flash" {
		t.Fatalf("expected model in request, got %v", lastBody["model"])
	}
	format, _ := lastBody["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", lastBody["response_format"])
	}
}

func TestExtractPageSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", server.URL, "gpt-4o")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.ExtractPage(context.Background(), llm.ExtractInput{ModelKey: "openai", Content: "text"})
	var apiErr *goopenai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 api error, got %v", err)
	}
	if !llm.ShouldRetry(err) {
		t.Fatalf("expected 503 to be retryable")
	}
}

func TestBuildMessagesTruncatesContent(t *testing.T) {
	content := strings.Repeat("A sentence here. ", 5000)
	_, messages := BuildMessages(llm.ExtractInput{ModelKey: "claude", Content: content})
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if len(messages[1].Content) > llm.MaxContentChars+2000 {
		t.Fatalf("expected truncated user content, got %d chars", len(messages[1].Content))
	}
	if !strings.Contains(messages[1].Content, "usefulnessAssessment") {
		t.Fatalf("expected prompt template in user message")
	}
}
