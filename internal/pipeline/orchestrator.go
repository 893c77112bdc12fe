package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"readability-backend/internal/acquire"
	"readability-backend/internal/analyses"
	"readability-backend/internal/analyses/recommendations"
	"readability-backend/internal/checks"
	"readability-backend/internal/extract"
	"readability-backend/internal/fanout"
	"readability-backend/internal/llm"
	"readability-backend/internal/quota"
	"readability-backend/internal/scoring"
	"readability-backend/internal/shared/metrics"
	"readability-backend/internal/shared/storage/object"
	"readability-backend/internal/shared/telemetry"
)

// Fetcher retrieves the page behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (acquire.Response, error)
}

// Settings are the user tunable options of a run. They are fixed when the
// orchestrator is built.
type Settings struct {
	Models          []fanout.Task
	PromptVersion   string
	SnapshotEnabled bool
}

// Deps are the collaborators shared by every run.
type Deps struct {
	Fetcher Fetcher
	Checks  *checks.Engine
	History *analyses.Service
	Quota   *quota.Service
	Store   object.ObjectStore
	Now     func() time.Time
	NewID   func() string
}

type input struct {
	source acquire.Source
	raw    string
}

// Orchestrator drives one owner's analyses through the stage sequence. It
// runs at most one analysis at a time and exposes its progress as snapshots.
type Orchestrator struct {
	owner    analyses.Caller
	settings Settings
	deps     Deps

	mu      sync.Mutex
	snap    Snapshot
	gen     int
	cancel  context.CancelFunc
	done    chan struct{}
	subs    map[int]chan Snapshot
	nextSub int

	// beforeStage runs ahead of every stage entry.
	beforeStage func(State)
}

// New builds an idle orchestrator for owner.
func New(owner analyses.Caller, settings Settings, deps Deps) *Orchestrator {
	settings.Models = normalizeTasks(settings.Models)
	if settings.PromptVersion == "" {
		settings.PromptVersion = llm.DefaultPromptVersion
	}
	if deps.Checks == nil {
		deps.Checks = checks.NewEngine()
	}
	return &Orchestrator{
		owner:    owner,
		settings: settings,
		deps:     deps,
		snap:     Snapshot{State: StateIdle},
		subs:     map[int]chan Snapshot{},
	}
}

// normalizeTasks returns one task per fixed model key in report order.
// Missing models are kept as disabled tasks.
func normalizeTasks(tasks []fanout.Task) []fanout.Task {
	byKey := lo.KeyBy(tasks, func(t fanout.Task) string { return t.Key })
	out := make([]fanout.Task, 0, len(fanout.ModelKeys()))
	for _, key := range fanout.ModelKeys() {
		task, ok := byKey[key]
		if !ok {
			task = fanout.Task{Key: key}
		}
		out = append(out, task)
	}
	return out
}

// Owner is the caller the orchestrator runs for.
func (o *Orchestrator) Owner() analyses.Caller {
	return o.owner
}

func (o *Orchestrator) now() time.Time {
	if o.deps.Now != nil {
		return o.deps.Now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) newID() string {
	if o.deps.NewID != nil {
		return o.deps.NewID()
	}
	return uuid.NewString()
}

// AnalyzeURL validates rawURL and starts an analysis of the page behind it.
// Invalid input fails with an *acquire.ValidationError before any fetch.
func (o *Orchestrator) AnalyzeURL(ctx context.Context, rawURL string) (string, error) {
	normalized, err := acquire.NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	return o.start(ctx, input{source: acquire.Source{
		Kind:          acquire.SourceURL,
		URL:           normalized,
		NormalizedURL: normalized,
	}})
}

// AnalyzeUpload starts an analysis of an uploaded HTML file.
func (o *Orchestrator) AnalyzeUpload(ctx context.Context, fileName string, content []byte) (string, error) {
	if err := acquire.ValidateUpload(fileName, int64(len(content))); err != nil {
		return "", err
	}
	return o.start(ctx, input{
		source: acquire.Source{Kind: acquire.SourceUpload, FileName: path.Base(fileName)},
		raw:    string(content),
	})
}

// AnalyzePaste starts an analysis of pasted HTML.
func (o *Orchestrator) AnalyzePaste(ctx context.Context, text string) (string, error) {
	if err := acquire.ValidatePaste(text); err != nil {
		return "", err
	}
	return o.start(ctx, input{source: acquire.Source{Kind: acquire.SourcePaste}, raw: text})
}

func (o *Orchestrator) start(ctx context.Context, in input) (string, error) {
	o.mu.Lock()
	if o.cancel != nil {
		o.mu.Unlock()
		return "", ErrBusy
	}
	runID := o.newID()
	runCtx, cancel := context.WithCancel(ctx)
	startedAt := o.now()
	o.gen++
	gen := o.gen
	o.cancel = cancel
	o.done = make(chan struct{})
	o.snap = Snapshot{RunID: runID, State: StateIdle, StartedAt: &startedAt, UpdatedAt: &startedAt}
	done := o.done
	o.publishLocked()
	o.mu.Unlock()

	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.started", map[string]any{
		"run_id":   runID,
		"owner_id": o.owner.ID,
		"source":   string(in.source.Kind),
	})
	go o.run(runCtx, cancel, gen, runID, in, done)
	return runID, nil
}

// Cancel signals the running analysis to stop. It reports whether a run was
// in flight.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel == nil {
		return false
	}
	o.cancel()
	return true
}

// Reset discards the current run and returns to idle.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
	o.done = nil
	o.snap = Snapshot{State: StateIdle}
	o.publishLocked()
}

// Snapshot returns a copy of the current observable state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap.clone()
}

// Wait blocks until the current run finishes or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
	return o.Snapshot(), nil
}

// Subscribe returns a channel receiving every snapshot published from now
// on, starting with the current one. Slow subscribers lose intermediate
// snapshots but always receive the latest. Call the returned func to stop.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	ch := make(chan Snapshot, 16)
	ch <- o.snap.clone()
	o.subs[id] = ch
	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if sub, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(sub)
		}
	}
}

func (o *Orchestrator) publishLocked() {
	snap := o.snap.clone()
	for _, ch := range o.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, gen int, runID string, in input, done chan struct{}) {
	defer close(done)
	defer cancel()
	start := o.now()
	defer func() {
		if r := recover(); r != nil {
			o.finish(gen, start, nil, fmt.Errorf("panic: %v", r))
		}
	}()

	rec, evicted, err := o.execute(ctx, gen, runID, in)
	if err != nil && (errors.Is(err, ErrCancelled) || ctx.Err() != nil) {
		err = ErrCancelled
	}
	if err == nil {
		o.update(gen, func(s *Snapshot) { s.Evicted = evicted })
	}
	o.finish(gen, start, &rec, err)
}

// enter moves the run into the next stage unless it was cancelled.
func (o *Orchestrator) enter(ctx context.Context, gen int, to State, percent int, message string) error {
	if o.beforeStage != nil {
		o.beforeStage(to)
	}
	if ctx.Err() != nil {
		return ErrCancelled
	}
	return o.transition(gen, to, func(s *Snapshot) {
		s.Progress = Progress{Stage: to, Percent: percent, Message: message}
	})
}

func (o *Orchestrator) transition(gen int, to State, mutate func(*Snapshot)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return ErrCancelled
	}
	from := o.snap.State
	if !canTransition(from, to) {
		return fmt.Errorf("invalid transition %s -> %s", from, to)
	}
	now := o.now()
	o.snap.State = to
	o.snap.UpdatedAt = &now
	if mutate != nil {
		mutate(&o.snap)
	}
	telemetry.Info("analysis.status", map[string]any{
		"run_id":            o.snap.RunID,
		"owner_id":          o.owner.ID,
		"status_from":       string(from),
		"status_to":         string(to),
		"status_transition": string(from) + "->" + string(to),
		"percent":           o.snap.Progress.Percent,
	})
	o.publishLocked()
	return nil
}

// update mutates the snapshot without changing state.
func (o *Orchestrator) update(gen int, mutate func(*Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return
	}
	now := o.now()
	o.snap.UpdatedAt = &now
	mutate(&o.snap)
	o.publishLocked()
}

func (o *Orchestrator) finish(gen int, start time.Time, rec *analyses.Record, err error) {
	elapsed := float64(o.now().Sub(start).Microseconds()) / 1000.0
	switch {
	case err == nil:
		terr := o.transition(gen, StateComplete, func(s *Snapshot) {
			s.Result = rec
			s.Progress = Progress{Stage: StateComplete, Percent: percentComplete, Message: "Analysis complete", Substages: s.Progress.Substages}
		})
		if terr == nil {
			metrics.IncAnalysisCompleted()
			metrics.ObserveAnalysisDurationMs(elapsed)
		}
	case errors.Is(err, ErrCancelled):
		if o.transition(gen, StateCancelled, func(s *Snapshot) {
			s.Progress = Progress{Stage: StateCancelled, Percent: s.Progress.Percent, Message: "Analysis cancelled"}
		}) == nil {
			metrics.IncAnalysisCancelled()
		}
	default:
		code := codeOf(err)
		msg := sanitizeError(err)
		if o.transition(gen, StateError, func(s *Snapshot) {
			s.Error = &RunError{Code: code, Message: msg}
			s.Progress = Progress{Stage: StateError, Percent: s.Progress.Percent, Message: msg}
		}) == nil {
			metrics.IncAnalysisFailed(code)
			metrics.ObserveAnalysisDurationMs(elapsed)
			telemetry.Error("analysis.failed", map[string]any{
				"owner_id":    o.owner.ID,
				"code":        code,
				"error":       msg,
				"duration_ms": elapsed,
			})
		}
	}

	o.mu.Lock()
	if gen == o.gen {
		o.cancel = nil
	}
	o.mu.Unlock()
}

func (o *Orchestrator) execute(ctx context.Context, gen int, runID string, in input) (analyses.Record, int, error) {
	fetchMsg := "Reading content"
	if in.source.Kind == acquire.SourceURL {
		fetchMsg = "Fetching " + in.source.URL
	}
	if err := o.enter(ctx, gen, StateFetching, percentFetching, fetchMsg); err != nil {
		return analyses.Record{}, 0, err
	}
	raw := in.raw
	if in.source.Kind == acquire.SourceURL {
		if o.deps.Fetcher == nil {
			return analyses.Record{}, 0, errors.New("fetcher not configured")
		}
		resp, err := o.deps.Fetcher.Fetch(ctx, in.source.URL)
		if err != nil {
			return analyses.Record{}, 0, err
		}
		raw = resp.HTML
	}

	if err := o.enter(ctx, gen, StateExtracting, percentExtracting, "Extracting document"); err != nil {
		return analyses.Record{}, 0, err
	}
	doc, err := extract.Extract(ctx, raw, in.source.URL)
	if err != nil {
		return analyses.Record{}, 0, err
	}
	preview := doc.Preview()
	o.update(gen, func(s *Snapshot) {
		s.Partial.Preview = &preview
		s.Progress.Percent = percentExtracted
		s.Progress.Message = "Document extracted"
	})

	report, models, err := o.analyze(ctx, gen, runID, doc)
	if err != nil {
		return analyses.Record{}, 0, err
	}

	if err := o.enter(ctx, gen, StateScoring, percentScoring, "Scoring"); err != nil {
		return analyses.Record{}, 0, err
	}
	result := scoring.Score(report, modelScores(models))
	recs := recommendations.Generate(report.All(), suggestionsFrom(models))

	if err := o.enter(ctx, gen, StateFinalizing, percentFinalizing, "Saving analysis"); err != nil {
		return analyses.Record{}, 0, err
	}
	rec := analyses.Record{
		ID:               runID,
		OwnerID:          o.owner.ID,
		OwnerRole:        o.owner.Role,
		Source:           in.source,
		Title:            titleFor(doc, in.source),
		Description:      doc.Metadata.Description,
		Language:         doc.Language,
		WordCount:        doc.WordCount,
		CheckResults:     report.All(),
		CategoryScores:   result.CategoryScores,
		OverallScore:     result.OverallScore,
		Grade:            result.Grade.Letter,
		IssueSummary:     result.IssueSummary,
		Recommendations:  recs,
		ModelExtractions: models,
		ScoringVersion:   result.Version,
		PromptVersion:    o.settings.PromptVersion,
		CreatedAt:        o.now(),
	}
	if o.settings.SnapshotEnabled && o.deps.Store != nil {
		rec.SnapshotKey = object.SnapshotKey(rec.OwnerID, rec.ID)
	}
	if ctx.Err() != nil {
		return analyses.Record{}, 0, ErrCancelled
	}
	if o.deps.Quota == nil {
		return analyses.Record{}, 0, &PersistenceError{Err: errors.New("quota enforcer not configured")}
	}

	// The save runs to completion once started.
	saveCtx := context.WithoutCancel(ctx)
	// Eviction runs first so the trend link never names an evicted record.
	rec, evicted, err := o.deps.Quota.Save(saveCtx, rec, func(ctx context.Context, r *analyses.Record) {
		if o.deps.History == nil {
			return
		}
		if err := o.deps.History.LinkPrevious(ctx, r); err != nil {
			telemetry.Warn("trend.link_failed", map[string]any{"run_id": runID, "error": err.Error()})
		}
	})
	if err != nil {
		return analyses.Record{}, 0, &PersistenceError{Err: err}
	}
	o.saveSnapshot(saveCtx, rec, raw)
	return rec, evicted, nil
}

// analyze runs the check engine alongside the model fan-out and waits for
// both. Each settled model publishes progress.
func (o *Orchestrator) analyze(ctx context.Context, gen int, runID string, doc *extract.Document) (checks.Report, []fanout.ModelExtraction, error) {
	tasks := o.settings.Models
	substages := make([]Substage, 0, len(tasks))
	for _, t := range tasks {
		substages = append(substages, Substage{Key: t.Key})
	}
	if err := o.enter(ctx, gen, StateAnalyzing, percentAnalyzing, "Running checks and reader models"); err != nil {
		return nil, nil, err
	}
	o.update(gen, func(s *Snapshot) { s.Progress.Substages = substages })

	var (
		report checks.Report
		g      errgroup.Group
	)
	reference := o.now()
	g.Go(func() error {
		report = o.deps.Checks.Run(doc, reference)
		return nil
	})

	runner := fanout.Runner{Tasks: tasks, PromptVersion: o.settings.PromptVersion, Now: o.deps.Now}
	models, err := runner.Run(ctx, runID, doc.Text, func(entry fanout.ModelExtraction, done, total int) {
		o.update(gen, func(s *Snapshot) {
			s.Partial.Models = append(s.Partial.Models, entry)
			for i := range s.Progress.Substages {
				if s.Progress.Substages[i].Key == entry.ModelKey {
					s.Progress.Substages[i].Status = entry.Status
				}
			}
			s.Progress.Percent = percentAnalyzing + percentAnalyzingSpan*done/total
			s.Progress.Message = fmt.Sprintf("%d of %d reader models finished", done, total)
		})
	})
	_ = g.Wait()
	if err != nil {
		return nil, nil, err
	}
	return report, models, nil
}

func (o *Orchestrator) saveSnapshot(ctx context.Context, rec analyses.Record, raw string) {
	if rec.SnapshotKey == "" {
		return
	}
	if _, err := o.deps.Store.Put(ctx, rec.SnapshotKey, object.SnapshotContentType, strings.NewReader(raw)); err != nil {
		telemetry.Warn("snapshot.save_failed", map[string]any{
			"analysis_id": rec.ID,
			"error":       err.Error(),
		})
	}
}

func titleFor(doc *extract.Document, src acquire.Source) string {
	if t := strings.TrimSpace(doc.Metadata.Title); t != "" {
		return t
	}
	switch src.Kind {
	case acquire.SourceURL:
		return src.URL
	case acquire.SourceUpload:
		return src.FileName
	}
	return "Pasted HTML"
}

func modelScores(models []fanout.ModelExtraction) []scoring.ModelScore {
	return lo.Map(models, func(m fanout.ModelExtraction, _ int) scoring.ModelScore {
		if m.Status != fanout.StatusOK || m.UsefulnessScore == nil {
			return scoring.ModelScore{}
		}
		return scoring.ModelScore{OK: true, Usefulness: *m.UsefulnessScore}
	})
}

// lowUsefulness is the score under which a model's explanation becomes a
// suggestion.
const lowUsefulness = 6

// usefulnessTitle names the model so each model's explanation survives
// deduplication by title.
func usefulnessTitle(m fanout.ModelExtraction) string {
	name := strings.TrimSpace(m.Model)
	if name == "" {
		name = m.ModelKey
	}
	return fmt.Sprintf("Make the page more useful to AI readers (%s)", name)
}

func suggestionsFrom(models []fanout.ModelExtraction) []recommendations.Suggestion {
	var out []recommendations.Suggestion
	for _, m := range models {
		if m.Status != fanout.StatusOK || m.Output == nil {
			continue
		}
		use := m.Output.Usefulness
		if use.Score < lowUsefulness && strings.TrimSpace(use.Explanation) != "" {
			out = append(out, recommendations.Suggestion{
				Model:       m.ModelKey,
				Title:       usefulnessTitle(m),
				Description: use.Explanation,
				Priority:    recommendations.PriorityHigh,
				Impact:      recommendations.ImpactHigh,
				Effort:      recommendations.EffortModerate,
			})
		}
		for _, u := range m.Output.UnprocessableContent {
			desc := strings.TrimSpace(u.Description)
			if desc == "" {
				continue
			}
			out = append(out, recommendations.Suggestion{
				Model:       m.ModelKey,
				Title:       "Expose " + desc + " as readable text",
				Description: u.Reason,
				Priority:    recommendations.PriorityMedium,
				Impact:      recommendations.ImpactMedium,
				Effort:      recommendations.EffortModerate,
			})
		}
	}
	return out
}
