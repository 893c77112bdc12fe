package recommendations

import "readability-backend/internal/checks"

// Priority orders recommendations, critical first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Effort is the rough amount of work a fix takes.
type Effort string

const (
	EffortQuick       Effort = "quick"
	EffortModerate    Effort = "moderate"
	EffortSignificant Effort = "significant"
)

// Impact is the estimated score impact of a fix.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Source tells whether a recommendation came from a check or a reader model.
type Source string

const (
	SourceRule  Source = "rule"
	SourceModel Source = "model"
)

const (
	GroupAll        = "all"
	GroupQuickWins  = "quick-wins"
	GroupStructural = "structural"
	GroupContent    = "content"
	GroupTechnical  = "technical"

	AudienceContent     = "content"
	AudienceDevelopment = "development"
)

// CodeExample shows markup before and after a fix.
type CodeExample struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// Recommendation is one prioritized fix.
type Recommendation struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Category     checks.Category `json:"category,omitempty"`
	CheckID      string          `json:"checkId,omitempty"`
	Priority     Priority        `json:"priority"`
	Effort       Effort          `json:"effort"`
	Impact       Impact          `json:"impact"`
	ImpactPoints int             `json:"impactPoints"`
	Group        string          `json:"group"`
	Audience     string          `json:"audience"`
	Source       Source          `json:"source"`
	CodeExample  *CodeExample    `json:"codeExample,omitempty"`
	Order        int             `json:"order"`
}

// Suggestion is a free-form improvement reported by one reader model.
type Suggestion struct {
	Model       string
	Title       string
	Description string
	Priority    Priority
	Impact      Impact
	Effort      Effort
}
