package analyses

import (
	"time"

	"readability-backend/internal/acquire"
	"readability-backend/internal/analyses/recommendations"
	"readability-backend/internal/checks"
	"readability-backend/internal/fanout"
	"readability-backend/internal/scoring"
)

// Record is one completed readability analysis. Records are written once
// when a run finalizes; only the sharing fields change afterwards.
type Record struct {
	ID                 string                                    `json:"id"`
	OwnerID            string                                    `json:"ownerId"`
	OwnerRole          string                                    `json:"ownerRole"`
	Source             acquire.Source                            `json:"source"`
	Title              string                                    `json:"title"`
	Description        string                                    `json:"description"`
	Language           string                                    `json:"language,omitempty"`
	WordCount          int                                       `json:"wordCount"`
	CheckResults       []checks.Result                           `json:"checkResults"`
	CategoryScores     map[checks.Category]scoring.CategoryScore `json:"categoryScores"`
	OverallScore       int                                       `json:"overallScore"`
	Grade              string                                    `json:"grade"`
	IssueSummary       scoring.IssueSummary                      `json:"issueSummary"`
	Recommendations    []recommendations.Recommendation          `json:"recommendations"`
	ModelExtractions   []fanout.ModelExtraction                  `json:"modelExtractions"`
	ScoringVersion     string                                    `json:"scoringVersion"`
	PromptVersion      string                                    `json:"promptVersion,omitempty"`
	PreviousAnalysisID *string                                   `json:"previousAnalysisId,omitempty"`
	ScoreDelta         *int                                      `json:"scoreDelta,omitempty"`
	SnapshotKey        string                                    `json:"-"`
	IsShared           bool                                      `json:"isShared"`
	ShareToken         *string                                   `json:"shareToken,omitempty"`
	ShareExpiresAt     *time.Time                                `json:"shareExpiresAt,omitempty"`
	CreatedAt          time.Time                                 `json:"createdAt"`
}

// Direction is the trend arrow for a score delta.
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

// TrendThreshold is the absolute delta at which a change stops being stable.
const TrendThreshold = 5

// DirectionFor classifies a score delta.
func DirectionFor(delta int) Direction {
	switch {
	case delta >= TrendThreshold:
		return DirectionUp
	case delta <= -TrendThreshold:
		return DirectionDown
	default:
		return DirectionStable
	}
}

// Direction returns the trend arrow of the record, or "" when it has no
// predecessor.
func (r Record) Direction() Direction {
	if r.ScoreDelta == nil {
		return ""
	}
	return DirectionFor(*r.ScoreDelta)
}

// TrendPoint is one entry of a source's score history.
type TrendPoint struct {
	ID         string    `json:"id"`
	Score      int       `json:"score"`
	Grade      string    `json:"grade"`
	ScoreDelta *int      `json:"scoreDelta,omitempty"`
	CreatedAt  time.Time `json:"date"`
}

// Trend is the score history of one normalized URL, oldest first.
type Trend struct {
	URL       string       `json:"url"`
	Points    []TrendPoint `json:"points"`
	Delta     *int         `json:"delta,omitempty"`
	Direction Direction    `json:"direction,omitempty"`
}

// SortField orders history listings.
type SortField string

const (
	SortByDate  SortField = "date"
	SortByScore SortField = "score"
)

// ListQuery selects a page of history. Score and date bounds are applied by
// the repository; Search only filters the fetched page.
type ListQuery struct {
	OwnerID   string
	AllOwners bool
	MinScore  *int
	MaxScore  *int
	From      *time.Time
	To        *time.Time
	Search    string
	Sort      SortField
	Desc      bool
	Cursor    string
	Limit     int
}

// Page is one page of history.
type Page struct {
	Items      []Record `json:"items"`
	NextCursor string   `json:"nextCursor,omitempty"`
	HasMore    bool     `json:"hasMore"`
}
