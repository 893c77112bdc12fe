package pipeline

import (
	"context"
	"sync"
	"time"

	"readability-backend/internal/analyses"
)

// DefaultRunTTL is how long a finished run stays readable.
const DefaultRunTTL = time.Hour

// Runs keeps the in-flight and recently finished runs of this process. Each
// run gets its own orchestrator built from the shared settings and deps.
type Runs struct {
	Settings Settings
	Deps     Deps
	TTL      time.Duration

	mu   sync.Mutex
	runs map[string]*Orchestrator
}

// NewRuns constructs an empty registry.
func NewRuns(settings Settings, deps Deps) *Runs {
	return &Runs{Settings: settings, Deps: deps, TTL: DefaultRunTTL, runs: map[string]*Orchestrator{}}
}

// Start builds an orchestrator for caller and hands it to analyze, which
// validates the input and starts the run. Validation failures are returned
// and nothing is registered.
func (r *Runs) Start(ctx context.Context, caller analyses.Caller, analyze func(context.Context, *Orchestrator) (string, error)) (string, error) {
	o := New(caller, r.Settings, r.Deps)
	runID, err := analyze(ctx, o)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[string]*Orchestrator{}
	}
	r.sweepLocked()
	r.runs[runID] = o
	return runID, nil
}

// Get returns the orchestrator of runID when caller owns it.
func (r *Runs) Get(caller analyses.Caller, runID string) (*Orchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.runs[runID]
	if !ok || o.Owner().ID != caller.ID {
		return nil, ErrRunNotFound
	}
	return o, nil
}

// Remove resets the run and forgets it.
func (r *Runs) Remove(caller analyses.Caller, runID string) error {
	o, err := r.Get(caller, runID)
	if err != nil {
		return err
	}
	o.Reset()
	r.mu.Lock()
	delete(r.runs, runID)
	r.mu.Unlock()
	return nil
}

// CancelAll stops every in-flight run. Used on shutdown.
func (r *Runs) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.runs {
		o.Cancel()
	}
}

func (r *Runs) sweepLocked() {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultRunTTL
	}
	cutoff := time.Now().UTC().Add(-ttl)
	if r.Deps.Now != nil {
		cutoff = r.Deps.Now().UTC().Add(-ttl)
	}
	for id, o := range r.runs {
		snap := o.Snapshot()
		if !snap.State.Terminal() && snap.State != StateIdle {
			continue
		}
		if snap.UpdatedAt == nil || snap.UpdatedAt.Before(cutoff) {
			delete(r.runs, id)
		}
	}
}
