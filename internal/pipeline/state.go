package pipeline

import (
	"time"

	"readability-backend/internal/analyses"
	"readability-backend/internal/extract"
	"readability-backend/internal/fanout"
)

// State is one step of an analysis run.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StateAnalyzing  State = "analyzing"
	StateScoring    State = "scoring"
	StateFinalizing State = "finalizing"
	StateComplete   State = "complete"
	StateCancelled  State = "cancelled"
	StateError      State = "error"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	switch s {
	case StateComplete, StateCancelled, StateError:
		return true
	}
	return false
}

var transitions = map[State][]State{
	StateIdle:       {StateFetching, StateCancelled, StateError},
	StateFetching:   {StateExtracting, StateCancelled, StateError},
	StateExtracting: {StateAnalyzing, StateCancelled, StateError},
	StateAnalyzing:  {StateScoring, StateCancelled, StateError},
	StateScoring:    {StateFinalizing, StateCancelled, StateError},
	StateFinalizing: {StateComplete, StateCancelled, StateError},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stage progress in percent.
const (
	percentFetching      = 5
	percentExtracting    = 10
	percentExtracted     = 15
	percentAnalyzing     = 25
	percentAnalyzingSpan = 60
	percentScoring       = 90
	percentFinalizing    = 95
	percentComplete      = 100
)

// Substage is one reader model inside the Analyzing stage. Status stays empty
// until the model settles.
type Substage struct {
	Key    string        `json:"key"`
	Status fanout.Status `json:"status,omitempty"`
}

// Progress is emitted after each stage and after each settled model.
type Progress struct {
	Stage     State      `json:"stage"`
	Percent   int        `json:"percent"`
	Message   string     `json:"message"`
	Substages []Substage `json:"substages,omitempty"`
}

// RunError is the user facing failure of a run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Partial holds results published before the run finishes. The preview is
// set right after extraction whatever happens later.
type Partial struct {
	Preview *extract.Preview         `json:"preview,omitempty"`
	Models  []fanout.ModelExtraction `json:"models,omitempty"`
}

// Snapshot is the observable state of an orchestrator.
type Snapshot struct {
	RunID     string           `json:"runId,omitempty"`
	State     State            `json:"state"`
	Progress  Progress         `json:"progress"`
	Result    *analyses.Record `json:"result,omitempty"`
	Error     *RunError        `json:"error,omitempty"`
	Partial   Partial          `json:"partialResults"`
	Evicted   int              `json:"evicted,omitempty"`
	StartedAt *time.Time       `json:"startedAt,omitempty"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Progress.Substages = append([]Substage(nil), s.Progress.Substages...)
	out.Partial.Models = append([]fanout.ModelExtraction(nil), s.Partial.Models...)
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}
