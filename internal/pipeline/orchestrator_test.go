package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"readability-backend/internal/acquire"
	"readability-backend/internal/analyses"
	"readability-backend/internal/analyses/recommendations"
	"readability-backend/internal/checks"
	"readability-backend/internal/fanout"
	"readability-backend/internal/llm"
	"readability-backend/internal/quota"
	"readability-backend/internal/scoring"
)

const sampleHTML = `<!DOCTYPE html>
<html lang="en">
<head><title>How to choose a widget for your workshop</title></head>
<body>
<main>
<h1>How to choose a widget</h1>
<p>Choosing a widget depends on the size of your workshop and the materials you work with every day.</p>
<p>Most people should start with a medium widget because it balances cost and flexibility for common jobs.</p>
</main>
</body>
</html>`

const usefulReply = `{"extractedTitle":"How to choose a widget","primaryTopic":"widgets","usefulnessAssessment":{"score":4,"explanation":"Key facts are thin."},"unprocessableContent":[{"description":"pricing chart image","reason":"prices are only shown in an image"}]}`

type stubFetcher struct {
	html    string
	err     error
	block   bool
	entered chan struct{}
	once    sync.Once
}

func (f *stubFetcher) Fetch(ctx context.Context, rawURL string) (acquire.Response, error) {
	if f.entered != nil {
		f.once.Do(func() { close(f.entered) })
	}
	if f.block {
		<-ctx.Done()
		return acquire.Response{}, ctx.Err()
	}
	if f.err != nil {
		return acquire.Response{}, f.err
	}
	return acquire.Response{HTML: f.html, FinalURL: rawURL, StatusCode: 200}, nil
}

type stubModel struct {
	reply   string
	err     error
	block   bool
	entered chan struct{}
	once    sync.Once
}

func (m *stubModel) ExtractPage(ctx context.Context, input llm.ExtractInput) (json.RawMessage, error) {
	if m.entered != nil {
		m.once.Do(func() { close(m.entered) })
	}
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return json.RawMessage(m.reply), nil
}

func okTasks() []fanout.Task {
	return []fanout.Task{
		{Key: fanout.ModelClaude, Model: "claude-test", Client: &stubModel{reply: usefulReply}, Enabled: true},
		{Key: fanout.ModelOpenAI, Model: "gpt-test", Client: &stubModel{reply: usefulReply}, Enabled: true},
		{Key: fanout.ModelGemini, Model: "gemini-test", Client: &stubModel{reply: usefulReply}, Enabled: true},
	}
}

var owner = analyses.Caller{ID: "user-1", Role: "member"}

type env struct {
	orch    *Orchestrator
	repo    *analyses.MemoryRepo
	fetcher *stubFetcher
	quota   *quota.Service
}

func newEnv(t *testing.T, tasks []fanout.Task) *env {
	t.Helper()
	repo := analyses.NewMemoryRepo()
	history := &analyses.Service{Repo: repo}
	q := &quota.Service{Store: repo, Snapshots: history}
	fetcher := &stubFetcher{html: sampleHTML}
	orch := New(owner, Settings{Models: tasks}, Deps{
		Fetcher: fetcher,
		History: history,
		Quota:   q,
	})
	return &env{orch: orch, repo: repo, fetcher: fetcher, quota: q}
}

func wait(t *testing.T, o *Orchestrator) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := o.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return snap
}

func count(t *testing.T, repo *analyses.MemoryRepo) int {
	t.Helper()
	n, err := repo.CountByOwner(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestAnalyzePasteCompletesWithGradedReport(t *testing.T) {
	t.Parallel()

	e := newEnv(t, okTasks())
	runID, err := e.orch.AnalyzePaste(context.Background(), sampleHTML)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	snap := wait(t, e.orch)
	if snap.State != StateComplete || snap.Result == nil {
		t.Fatalf("expected complete with result, got %s %+v", snap.State, snap.Error)
	}
	rec := snap.Result
	if rec.ID != runID || snap.Progress.Percent != 100 {
		t.Fatalf("unexpected run id %s or percent %d", rec.ID, snap.Progress.Percent)
	}

	if len(rec.CategoryScores) != 5 {
		t.Fatalf("expected 5 category scores, got %d", len(rec.CategoryScores))
	}
	if want := scoring.Overall(rec.CategoryScores); rec.OverallScore != want {
		t.Fatalf("expected overall %d, got %d", want, rec.OverallScore)
	}
	report := checks.Group(rec.CheckResults)
	if h1, _ := report.Find("CS-01"); h1.Status != checks.StatusPass {
		t.Fatalf("expected single h1 check to pass, got %s", h1.Status)
	}
	if desc, _ := report.Find("MS-02"); desc.Status != checks.StatusFail {
		t.Fatalf("expected meta description check to fail, got %s", desc.Status)
	}
	if rec.OverallScore >= 100 || rec.Grade == "A+" {
		t.Fatalf("expected imperfect grade, got %d %s", rec.OverallScore, rec.Grade)
	}

	model := 0
	for _, r := range rec.Recommendations {
		if r.Source == recommendations.SourceModel {
			model++
		}
	}
	if model == 0 || model > recommendations.MaxModelRecommendations {
		t.Fatalf("expected 1..%d model recommendations, got %d", recommendations.MaxModelRecommendations, model)
	}
	if snap.Partial.Preview == nil || snap.Partial.Preview.Title != "How to choose a widget for your workshop" {
		t.Fatalf("expected preview, got %+v", snap.Partial.Preview)
	}
	if rec.Source.Kind != acquire.SourcePaste || rec.PreviousAnalysisID != nil {
		t.Fatalf("unexpected source or trend on paste: %+v", rec)
	}
	if count(t, e.repo) != 1 {
		t.Fatalf("expected one stored record")
	}
}

func TestTwoFailingModelsStillComplete(t *testing.T) {
	t.Parallel()

	tasks := []fanout.Task{
		{Key: fanout.ModelClaude, Client: &stubModel{err: errors.New("invalid api key")}, Enabled: true},
		{Key: fanout.ModelOpenAI, Client: &stubModel{reply: `{"usefulnessAssessment":{"score":9,"explanation":"clear"}}`}, Enabled: true},
		{Key: fanout.ModelGemini, Client: &stubModel{block: true}, Enabled: true, Timeout: 20 * time.Millisecond},
	}
	e := newEnv(t, tasks)
	if _, err := e.orch.AnalyzeURL(context.Background(), "example.com/guide"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	snap := wait(t, e.orch)
	if snap.State != StateComplete {
		t.Fatalf("expected complete, got %s %+v", snap.State, snap.Error)
	}

	rec := snap.Result
	ok, failed := 0, 0
	for _, m := range rec.ModelExtractions {
		switch m.Status {
		case fanout.StatusOK:
			ok++
		case fanout.StatusError, fanout.StatusTimeout:
			failed++
		}
	}
	if ok != 1 || failed != 2 {
		t.Fatalf("expected 1 ok and 2 failed entries, got %d and %d", ok, failed)
	}
	if rec.ModelExtractions[2].Status != fanout.StatusTimeout {
		t.Fatalf("expected gemini timeout, got %s", rec.ModelExtractions[2].Status)
	}

	want := scoring.Score(checks.Group(rec.CheckResults), []scoring.ModelScore{{}, {OK: true, Usefulness: 9}, {}})
	if rec.OverallScore != want.OverallScore {
		t.Fatalf("expected overall %d from the single ok model, got %d", want.OverallScore, rec.OverallScore)
	}
}

func TestPasteLengthBoundary(t *testing.T) {
	t.Parallel()

	e := newEnv(t, okTasks())
	short := "<p>" + strings.Repeat("a", 92) + "</p>"
	_, err := e.orch.AnalyzePaste(context.Background(), short)
	var verr *acquire.ValidationError
	if !errors.As(err, &verr) || !strings.Contains(verr.Message, "100 characters") {
		t.Fatalf("expected validation error mentioning 100 characters, got %v", err)
	}
	if snap := e.orch.Snapshot(); snap.State != StateIdle || snap.RunID != "" {
		t.Fatalf("expected no run to start, got %+v", snap)
	}

	exact := "<p>" + strings.Repeat("a", 93) + "</p>"
	runID, err := e.orch.AnalyzePaste(context.Background(), exact)
	if err != nil || runID == "" {
		t.Fatalf("expected run to start, got %q %v", runID, err)
	}
	if snap := wait(t, e.orch); snap.State == StateIdle {
		t.Fatalf("expected pipeline to leave idle")
	}
}

func TestCancelBeforeFinalizingNeverPersists(t *testing.T) {
	t.Parallel()

	for _, stage := range []State{StateFetching, StateExtracting, StateAnalyzing, StateScoring, StateFinalizing} {
		stage := stage
		t.Run(string(stage), func(t *testing.T) {
			t.Parallel()
			e := newEnv(t, okTasks())
			e.orch.beforeStage = func(s State) {
				if s == stage {
					e.orch.Cancel()
				}
			}
			if _, err := e.orch.AnalyzeURL(context.Background(), "https://example.com/guide"); err != nil {
				t.Fatalf("analyze: %v", err)
			}
			snap := wait(t, e.orch)
			if snap.State != StateCancelled || snap.Result != nil || snap.Error != nil {
				t.Fatalf("expected neutral cancelled outcome, got %+v", snap)
			}
			if count(t, e.repo) != 0 {
				t.Fatalf("expected nothing persisted")
			}
		})
	}
}

func TestCancelDuringBlockingStages(t *testing.T) {
	t.Parallel()

	t.Run("fetch", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, okTasks())
		e.fetcher.block = true
		e.fetcher.entered = make(chan struct{})
		if _, err := e.orch.AnalyzeURL(context.Background(), "https://example.com"); err != nil {
			t.Fatalf("analyze: %v", err)
		}
		<-e.fetcher.entered
		if !e.orch.Cancel() {
			t.Fatalf("expected a run to cancel")
		}
		if snap := wait(t, e.orch); snap.State != StateCancelled {
			t.Fatalf("expected cancelled, got %s", snap.State)
		}
		if count(t, e.repo) != 0 {
			t.Fatalf("expected nothing persisted")
		}
	})

	t.Run("models", func(t *testing.T) {
		t.Parallel()
		blocked := &stubModel{block: true, entered: make(chan struct{})}
		tasks := okTasks()
		tasks[1].Client = blocked
		e := newEnv(t, tasks)
		if _, err := e.orch.AnalyzePaste(context.Background(), sampleHTML); err != nil {
			t.Fatalf("analyze: %v", err)
		}
		<-blocked.entered
		e.orch.Cancel()
		snap := wait(t, e.orch)
		if snap.State != StateCancelled {
			t.Fatalf("expected cancelled, got %s", snap.State)
		}
		if snap.Partial.Preview == nil {
			t.Fatalf("expected preview to survive cancellation")
		}
		if count(t, e.repo) != 0 {
			t.Fatalf("expected nothing persisted")
		}
	})
}

func TestBusyAndReset(t *testing.T) {
	t.Parallel()

	e := newEnv(t, okTasks())
	e.fetcher.block = true
	e.fetcher.entered = make(chan struct{})
	if _, err := e.orch.AnalyzeURL(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	<-e.fetcher.entered
	if _, err := e.orch.AnalyzePaste(context.Background(), sampleHTML); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	e.orch.Reset()
	if snap := e.orch.Snapshot(); snap.State != StateIdle || snap.RunID != "" {
		t.Fatalf("expected idle after reset, got %+v", snap)
	}
	if _, err := e.orch.AnalyzePaste(context.Background(), sampleHTML); err != nil {
		t.Fatalf("expected new run after reset, got %v", err)
	}
	if snap := wait(t, e.orch); snap.State != StateComplete {
		t.Fatalf("expected complete, got %s", snap.State)
	}
}

func TestFailuresSurfaceCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fetchErr error
		html     string
		wantCode string
	}{
		{name: "not found", fetchErr: &acquire.FetchError{Kind: acquire.FetchNotFound, URL: "https://example.com"}, wantCode: "FETCH_NOT_FOUND"},
		{name: "rate limited", fetchErr: &acquire.FetchError{Kind: acquire.FetchRateLimited}, wantCode: "FETCH_RATE_LIMITED"},
		{name: "not html", html: strings.Repeat("plain words without markup ", 10), wantCode: "EXTRACTION_ERROR"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t, okTasks())
			e.fetcher.err = tt.fetchErr
			e.fetcher.html = tt.html
			if _, err := e.orch.AnalyzeURL(context.Background(), "https://example.com"); err != nil {
				t.Fatalf("analyze: %v", err)
			}
			snap := wait(t, e.orch)
			if snap.State != StateError || snap.Error == nil || snap.Error.Code != tt.wantCode {
				t.Fatalf("expected %s, got %s %+v", tt.wantCode, snap.State, snap.Error)
			}
			if count(t, e.repo) != 0 {
				t.Fatalf("expected nothing persisted")
			}
		})
	}
}

type failingStore struct {
	*analyses.MemoryRepo
}

func (failingStore) Insert(ctx context.Context, rec analyses.Record) error {
	return errors.New("connection refused")
}

func TestPersistenceFailureDiscardsResult(t *testing.T) {
	t.Parallel()

	e := newEnv(t, okTasks())
	e.quota.Store = failingStore{MemoryRepo: e.repo}
	if _, err := e.orch.AnalyzePaste(context.Background(), sampleHTML); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	snap := wait(t, e.orch)
	if snap.State != StateError || snap.Error.Code != "PERSISTENCE_ERROR" || snap.Result != nil {
		t.Fatalf("expected persistence error without result, got %+v", snap)
	}
}

// analyzeGuideTwice runs two analyses of the same URL, the second with a
// richer page, and returns both snapshots.
func analyzeGuideTwice(t *testing.T, e *env) (Snapshot, Snapshot) {
	t.Helper()
	if _, err := e.orch.AnalyzeURL(context.Background(), "https://Example.com/guide/"); err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	first := wait(t, e.orch)
	if first.State != StateComplete {
		t.Fatalf("expected first run complete, got %s %+v", first.State, first.Error)
	}

	e.fetcher.html = strings.Replace(sampleHTML, "<head>", `<head><meta name="description" content="A practical guide to picking the right widget for the jobs you do most in a small workshop.">`, 1)
	if _, err := e.orch.AnalyzeURL(context.Background(), "example.com/guide"); err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	second := wait(t, e.orch)
	if second.State != StateComplete {
		t.Fatalf("expected second run complete, got %s %+v", second.State, second.Error)
	}
	return first, second
}

func TestRepeatAnalysisLinksTrend(t *testing.T) {
	t.Parallel()

	e := newEnv(t, okTasks())
	e.quota.Limits = map[string]int{"member": 2}
	first, second := analyzeGuideTwice(t, e)

	rec := second.Result
	if rec.PreviousAnalysisID == nil || *rec.PreviousAnalysisID != first.Result.ID {
		t.Fatalf("expected link to first run, got %v", rec.PreviousAnalysisID)
	}
	delta := rec.OverallScore - first.Result.OverallScore
	if rec.ScoreDelta == nil || *rec.ScoreDelta != delta {
		t.Fatalf("expected delta %d, got %v", delta, rec.ScoreDelta)
	}
	if rec.Direction() != analyses.DirectionFor(delta) {
		t.Fatalf("unexpected direction %s for delta %d", rec.Direction(), delta)
	}

	stored, err := e.repo.GetByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored.PreviousAnalysisID == nil || *stored.PreviousAnalysisID != first.Result.ID {
		t.Fatalf("expected stored record to carry the link, got %v", stored.PreviousAnalysisID)
	}
	if second.Evicted != 0 || count(t, e.repo) != 2 {
		t.Fatalf("expected no eviction, got evicted=%d count=%d", second.Evicted, count(t, e.repo))
	}
}

func TestEvictedPredecessorIsNotLinked(t *testing.T) {
	t.Parallel()

	e := newEnv(t, okTasks())
	e.quota.Limits = map[string]int{"member": 1}
	first, second := analyzeGuideTwice(t, e)

	if second.Evicted != 1 || count(t, e.repo) != 1 {
		t.Fatalf("expected one eviction leaving one record, got evicted=%d count=%d", second.Evicted, count(t, e.repo))
	}
	if _, err := e.repo.GetByID(context.Background(), first.Result.ID); !errors.Is(err, analyses.ErrNotFound) {
		t.Fatalf("expected oldest record evicted, got %v", err)
	}

	rec := second.Result
	if rec.PreviousAnalysisID != nil || rec.ScoreDelta != nil {
		t.Fatalf("expected no trend link to an evicted record, got %v / %v", rec.PreviousAnalysisID, rec.ScoreDelta)
	}
	stored, err := e.repo.GetByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored.PreviousAnalysisID != nil || stored.ScoreDelta != nil {
		t.Fatalf("stored record links to a removed predecessor: %v", stored.PreviousAnalysisID)
	}
}

func TestProgressEventsFollowStageOrder(t *testing.T) {
	t.Parallel()

	e := newEnv(t, okTasks())
	events, stop := e.orch.Subscribe()
	defer stop()

	if _, err := e.orch.AnalyzePaste(context.Background(), sampleHTML); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var (
		states  []State
		percent int
		settled int
	)
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case snap := <-events:
			if snap.RunID == "" {
				continue
			}
			if snap.Progress.Percent < percent {
				t.Fatalf("progress went backwards: %d after %d", snap.Progress.Percent, percent)
			}
			percent = snap.Progress.Percent
			if len(states) == 0 || states[len(states)-1] != snap.State {
				states = append(states, snap.State)
			}
			settled = len(snap.Partial.Models)
			done = snap.State.Terminal()
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %v", states)
		}
	}

	want := []State{StateIdle, StateFetching, StateExtracting, StateAnalyzing, StateScoring, StateFinalizing, StateComplete}
	if len(states) != len(want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected states %v, got %v", want, states)
		}
	}
	if settled != 3 {
		t.Fatalf("expected 3 settled models in partial results, got %d", settled)
	}
}

func TestDisabledModelKeepsThreeEntries(t *testing.T) {
	t.Parallel()

	tasks := okTasks()[:2]
	tasks[0].Enabled = false
	e := newEnv(t, tasks)
	if _, err := e.orch.AnalyzePaste(context.Background(), sampleHTML); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	snap := wait(t, e.orch)
	if snap.State != StateComplete {
		t.Fatalf("expected complete, got %s", snap.State)
	}
	got := snap.Result.ModelExtractions
	if len(got) != 3 {
		t.Fatalf("expected 3 model entries, got %d", len(got))
	}
	if got[0].Status != fanout.StatusError || got[0].Error != fanout.ErrModelDisabled.Error() {
		t.Fatalf("expected disabled claude entry, got %+v", got[0])
	}
	if got[2].ModelKey != fanout.ModelGemini || got[2].Status != fanout.StatusError {
		t.Fatalf("expected filled-in gemini entry, got %+v", got[2])
	}
}

func TestLowUsefulnessExplanationsKeptPerModel(t *testing.T) {
	t.Parallel()

	models := []fanout.ModelExtraction{
		{ModelKey: fanout.ModelClaude, Model: "claude-test", Status: fanout.StatusOK, Output: &llm.Extraction{Usefulness: llm.Usefulness{Score: 3, Explanation: "Missing prices."}}},
		{ModelKey: fanout.ModelOpenAI, Model: "gpt-test", Status: fanout.StatusOK, Output: &llm.Extraction{Usefulness: llm.Usefulness{Score: 4, Explanation: "No author stated."}}},
		{ModelKey: fanout.ModelGemini, Model: "gemini-test", Status: fanout.StatusOK, Output: &llm.Extraction{Usefulness: llm.Usefulness{Score: 9, Explanation: "Fine."}}},
	}

	recs := recommendations.Generate(nil, suggestionsFrom(models))
	var got []string
	for _, r := range recs {
		if r.Source == recommendations.SourceModel {
			got = append(got, r.Description)
		}
	}
	if len(got) != 2 || got[0] != "Missing prices." || got[1] != "No author stated." {
		t.Fatalf("expected one recommendation per low-scoring model, got %q", got)
	}
}
