package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

func TestParseExtraction(t *testing.T) {
	t.Parallel()

	headings := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		headings = append(headings, fmt.Sprintf(`{"level":2,"text":"h%d"}`, i))
	}
	reply := "Sure! Here you go:\n```json\n{\"extractedTitle\":\" Coffee \",\"headings\":[" + strings.Join(headings, ",") +
		"],\"mainContent\":\"" + strings.Repeat("x", 12000) + "\",\"usefulnessAssessment\":{\"score\":75,\"explanation\":\"good\"}}\n```"

	got, err := ParseExtraction([]byte(reply))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.ExtractedTitle != "Coffee" {
		t.Fatalf("expected trimmed title, got %q", got.ExtractedTitle)
	}
	if len(got.Headings) != 50 {
		t.Fatalf("expected 50 headings, got %d", len(got.Headings))
	}
	if len(got.MainContent) != 10000 {
		t.Fatalf("expected main content capped at 10000, got %d", len(got.MainContent))
	}
	if got.Usefulness.Score != 10 {
		t.Fatalf("expected score clamped to 10, got %v", got.Usefulness.Score)
	}
}

func TestParseExtractionDefaultsAndErrors(t *testing.T) {
	t.Parallel()

	got, err := ParseExtraction([]byte(`{"primaryTopic":"tea"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Usefulness.Score != defaultUsefulness {
		t.Fatalf("expected default usefulness, got %v", got.Usefulness.Score)
	}
	if _, err := ParseExtraction([]byte("no json here")); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}
	if _, err := ParseExtraction([]byte("{not json}")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestPromptHashStable(t *testing.T) {
	t.Parallel()

	if PromptHash(DefaultPromptVersion) != PromptHash(DefaultPromptVersion) {
		t.Fatalf("expected deterministic prompt hash")
	}
	used, prompt := BuildPrompt("unknown", "openai")
	if used != DefaultPromptVersion || !strings.Contains(prompt, "openai") {
		t.Fatalf("expected fallback prompt, got %q", used)
	}
}

type flakyClient struct {
	errs  []error
	calls int
}

func (f *flakyClient) ExtractPage(ctx context.Context, input ExtractInput) (json.RawMessage, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return json.RawMessage(`{}`), nil
}

func TestWithRetry(t *testing.T) {
	old := RetryBaseDelay
	RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { RetryBaseDelay = old })

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{name: "success", errs: nil, wantCalls: 1},
		{name: "transient then success", errs: []error{&goopenai.APIError{HTTPStatusCode: 429}}, wantCalls: 2},
		{name: "transient twice", errs: []error{&goopenai.APIError{HTTPStatusCode: 502}, &goopenai.APIError{HTTPStatusCode: 502}}, wantCalls: 2, wantErr: true},
		{name: "permanent", errs: []error{&goopenai.APIError{HTTPStatusCode: 401}}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			base := &flakyClient{errs: tt.errs}
			_, err := WithRetry(base, "run-1").ExtractPage(context.Background(), ExtractInput{ModelKey: "openai"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if base.calls != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, base.calls)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	if ShouldRetry(nil) || ShouldRetry(context.Canceled) {
		t.Fatalf("nil and cancellation must not retry")
	}
	if !ShouldRetry(errors.New("read: connection reset by peer")) {
		t.Fatalf("expected connection reset to retry")
	}
	if ShouldRetry(errors.New("invalid request")) {
		t.Fatalf("expected plain error not to retry")
	}
}
