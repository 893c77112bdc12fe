package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"readability-backend/internal/llm"
	"readability-backend/internal/shared/metrics"
	"readability-backend/internal/shared/telemetry"
)

// Status is the settled state of one model sub-task.
type Status string

const (
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// Model keys of the three reader models.
const (
	ModelClaude = "claude"
	ModelOpenAI = "openai"
	ModelGemini = "gemini"
)

// ModelKeys lists the fixed reader models in report order.
func ModelKeys() []string {
	return []string{ModelClaude, ModelOpenAI, ModelGemini}
}

// DefaultTimeout bounds a model sub-task when the task sets none.
const DefaultTimeout = 60 * time.Second

// ModelExtraction is the outcome of one model sub-task. UsefulnessScore is
// set only when Status is ok.
type ModelExtraction struct {
	ModelKey         string          `json:"modelKey"`
	Model            string          `json:"model"`
	Status           Status          `json:"status"`
	UsefulnessScore  *float64        `json:"usefulnessScore,omitempty"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
	Error            string          `json:"error,omitempty"`
	Output           *llm.Extraction `json:"output,omitempty"`
}

// ModelExtractionError describes a failed sub-task. It is recorded on the
// extraction entry and never aborts the run.
type ModelExtractionError struct {
	ModelKey string
	Status   Status
	Err      error
}

func (e *ModelExtractionError) Error() string {
	return fmt.Sprintf("model %s %s: %v", e.ModelKey, e.Status, e.Err)
}

func (e *ModelExtractionError) Unwrap() error { return e.Err }

// Code is the machine readable error code.
func (e *ModelExtractionError) Code() string { return "MODEL_EXTRACTION_ERROR" }

// ErrModelDisabled marks a model switched off in settings.
var ErrModelDisabled = errors.New("model disabled")

// ErrModelNotConfigured marks a model without a client.
var ErrModelNotConfigured = errors.New("model not configured")

// Task configures one reader model.
type Task struct {
	Key     string
	Model   string
	Client  llm.Client
	Enabled bool
	Timeout time.Duration
}

// Runner executes the model sub-tasks concurrently.
type Runner struct {
	Tasks         []Task
	PromptVersion string
	Now           func() time.Time
}

// Settled is called once per sub-task as soon as it finishes, with the
// number of sub-tasks settled so far.
type Settled func(entry ModelExtraction, done, total int)

// Run starts every task and waits until all of them settle. A failing task
// never cancels its siblings. If ctx is cancelled the outstanding tasks are
// aborted and ctx's error is returned with no entries.
func (r *Runner) Run(ctx context.Context, runID, content string, onSettled Settled) ([]ModelExtraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]ModelExtraction, len(r.Tasks))
	var (
		mu   sync.Mutex
		done int
		g    errgroup.Group
	)
	for i, task := range r.Tasks {
		i, task := i, task
		g.Go(func() error {
			entry := r.runTask(ctx, runID, task, content)
			mu.Lock()
			out[i] = entry
			done++
			n := done
			if onSettled != nil {
				onSettled(entry, n, len(r.Tasks))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) runTask(ctx context.Context, runID string, task Task, content string) ModelExtraction {
	start := r.now()
	entry := ModelExtraction{ModelKey: task.Key, Model: task.Model}

	var err error
	switch {
	case !task.Enabled:
		err = ErrModelDisabled
	case task.Client == nil:
		err = ErrModelNotConfigured
	default:
		err = r.extract(ctx, runID, task, content, &entry)
	}
	entry.ProcessingTimeMs = r.now().Sub(start).Milliseconds()

	if err != nil {
		status := StatusError
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			status = StatusTimeout
		}
		merr := &ModelExtractionError{ModelKey: task.Key, Status: status, Err: err}
		entry.Status = status
		entry.Error = sanitize(err)
		entry.Output = nil
		entry.UsefulnessScore = nil
		telemetry.Warn("fanout.task", map[string]any{
			"run_id":     runID,
			"model":      task.Key,
			"status":     string(status),
			"error":      sanitize(merr),
			"elapsed_ms": entry.ProcessingTimeMs,
		})
	} else {
		entry.Status = StatusOK
		telemetry.Info("fanout.task", map[string]any{
			"run_id":     runID,
			"model":      task.Key,
			"status":     string(StatusOK),
			"elapsed_ms": entry.ProcessingTimeMs,
		})
	}
	metrics.IncModelTask(task.Key, string(entry.Status))
	return entry
}

func (r *Runner) extract(ctx context.Context, runID string, task Task, content string, entry *ModelExtraction) error {
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := llm.WithRetry(task.Client, runID)
	raw, err := client.ExtractPage(taskCtx, llm.ExtractInput{
		ModelKey:      task.Key,
		Content:       content,
		PromptVersion: r.PromptVersion,
	})
	if err != nil {
		if taskCtx.Err() != nil {
			return fmt.Errorf("%w: %v", taskCtx.Err(), err)
		}
		return err
	}
	parsed, err := llm.ParseExtraction(raw)
	if err != nil {
		return err
	}
	score := parsed.Usefulness.Score
	entry.Output = &parsed
	entry.UsefulnessScore = &score
	return nil
}

const maxErrorLen = 300

func sanitize(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}

// Err returns the sub-task failure, or nil when the entry is ok.
func (m ModelExtraction) Err() error {
	if m.Status == StatusOK {
		return nil
	}
	return &ModelExtractionError{ModelKey: m.ModelKey, Status: m.Status, Err: errors.New(m.Error)}
}
