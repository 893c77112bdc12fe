package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"readability-backend/internal/llm"
)

type stubClient struct {
	reply string
	err   error
	block bool
	calls atomic.Int32
}

func (s *stubClient) ExtractPage(ctx context.Context, input llm.ExtractInput) (json.RawMessage, error) {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.reply), nil
}

func TestRunSettlesAllTasksWithPartialFailure(t *testing.T) {
	t.Parallel()

	runner := &Runner{Tasks: []Task{
		{Key: ModelClaude, Model: "claude-x", Client: &stubClient{err: errors.New("invalid api key")}, Enabled: true},
		{Key: ModelOpenAI, Model: "gpt-x", Client: &stubClient{reply: `{"usefulnessAssessment":{"score":8,"explanation":"clear"}}`}, Enabled: true},
		{Key: ModelGemini, Model: "gemini-x", Client: &stubClient{block: true}, Enabled: true, Timeout: 20 * time.Millisecond},
	}}

	var settled atomic.Int32
	out, err := runner.Run(context.Background(), "run-1", "Some page text.", func(entry ModelExtraction, done, total int) {
		settled.Add(1)
		if total != 3 || done < 1 || done > 3 {
			t.Errorf("unexpected progress %d/%d", done, total)
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out) != 3 || settled.Load() != 3 {
		t.Fatalf("expected 3 settled entries, got %d (callbacks %d)", len(out), settled.Load())
	}

	if out[0].Status != StatusError || out[0].UsefulnessScore != nil || out[0].Error == "" {
		t.Fatalf("expected claude error entry, got %+v", out[0])
	}
	if out[1].Status != StatusOK || out[1].UsefulnessScore == nil || *out[1].UsefulnessScore != 8 {
		t.Fatalf("expected openai ok entry with score 8, got %+v", out[1])
	}
	if out[2].Status != StatusTimeout {
		t.Fatalf("expected gemini timeout, got %+v", out[2])
	}

	var merr *ModelExtractionError
	if !errors.As(out[0].Err(), &merr) || merr.ModelKey != ModelClaude {
		t.Fatalf("expected ModelExtractionError for claude, got %v", out[0].Err())
	}
	if out[1].Err() != nil {
		t.Fatalf("expected nil error for ok entry")
	}
}

func TestRunRecordsDisabledModels(t *testing.T) {
	t.Parallel()

	client := &stubClient{reply: `{}`}
	runner := &Runner{Tasks: []Task{
		{Key: ModelClaude, Client: client, Enabled: false},
		{Key: ModelOpenAI, Enabled: true},
	}}
	out, err := runner.Run(context.Background(), "run-2", "text", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if client.calls.Load() != 0 {
		t.Fatalf("disabled model must not be called")
	}
	if out[0].Status != StatusError || out[0].Error != ErrModelDisabled.Error() {
		t.Fatalf("expected disabled entry, got %+v", out[0])
	}
	if out[1].Status != StatusError || out[1].Error != ErrModelNotConfigured.Error() {
		t.Fatalf("expected not configured entry, got %+v", out[1])
	}
}

func TestRunAbortsOnCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	runner := &Runner{Tasks: []Task{
		{Key: ModelClaude, Client: &stubClient{block: true}, Enabled: true},
		{Key: ModelOpenAI, Client: &stubClient{block: true}, Enabled: true},
		{Key: ModelGemini, Client: &stubClient{block: true}, Enabled: true},
	}}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	out, err := runner.Run(ctx, "run-3", "text", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected no entries after cancellation")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("cancellation was not prompt")
	}
}
