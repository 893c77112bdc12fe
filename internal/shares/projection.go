package shares

import (
	"time"

	"readability-backend/internal/analyses"
	"readability-backend/internal/analyses/recommendations"
	"readability-backend/internal/checks"
	"readability-backend/internal/fanout"
	"readability-backend/internal/scoring"
)

// SharedModel summarizes one reader model by status, score and counts. No
// model-written text reaches the public view.
type SharedModel struct {
	ModelKey              string        `json:"modelKey"`
	Model                 string        `json:"model"`
	Status                fanout.Status `json:"status"`
	UsefulnessScore       *float64      `json:"usefulnessScore,omitempty"`
	ProcessingTimeMs      int64         `json:"processingTimeMs"`
	HeadingCount          int           `json:"headingCount"`
	EntityCount           int           `json:"entityCount"`
	UnprocessableCount    int           `json:"unprocessableCount"`
}

// SharedAnalysis is the public view of a shared record. It carries scores,
// check results, recommendations and aggregate model counts only.
type SharedAnalysis struct {
	Title           string                                    `json:"title"`
	SourceURL       string                                    `json:"sourceUrl,omitempty"`
	Language        string                                    `json:"language,omitempty"`
	WordCount       int                                       `json:"wordCount"`
	OverallScore    int                                       `json:"overallScore"`
	Grade           scoring.Grade                             `json:"grade"`
	CategoryScores  map[checks.Category]scoring.CategoryScore `json:"categoryScores"`
	IssueSummary    scoring.IssueSummary                      `json:"issueSummary"`
	CheckResults    []checks.Result                           `json:"checkResults"`
	Recommendations []recommendations.Recommendation          `json:"recommendations"`
	Models          []SharedModel                             `json:"models"`
	ScoringVersion  string                                    `json:"scoringVersion"`
	PromptVersion   string                                    `json:"promptVersion,omitempty"`
	AnalyzedAt      time.Time                                 `json:"analyzedAt"`
	ShareExpiresAt  *time.Time                                `json:"shareExpiresAt,omitempty"`
}

// Project builds the public view of rec.
func Project(rec analyses.Record) SharedAnalysis {
	out := SharedAnalysis{
		Title:           rec.Title,
		SourceURL:       rec.Source.URL,
		Language:        rec.Language,
		WordCount:       rec.WordCount,
		OverallScore:    rec.OverallScore,
		Grade:           scoring.GradeFor(rec.OverallScore),
		CategoryScores:  rec.CategoryScores,
		IssueSummary:    rec.IssueSummary,
		CheckResults:    rec.CheckResults,
		Recommendations: rec.Recommendations,
		Models:          make([]SharedModel, 0, len(rec.ModelExtractions)),
		ScoringVersion:  rec.ScoringVersion,
		PromptVersion:   rec.PromptVersion,
		AnalyzedAt:      rec.CreatedAt,
		ShareExpiresAt:  rec.ShareExpiresAt,
	}
	for _, m := range rec.ModelExtractions {
		sm := SharedModel{
			ModelKey:         m.ModelKey,
			Model:            m.Model,
			Status:           m.Status,
			UsefulnessScore:  m.UsefulnessScore,
			ProcessingTimeMs: m.ProcessingTimeMs,
		}
		if m.Output != nil {
			sm.HeadingCount = len(m.Output.Headings)
			sm.EntityCount = len(m.Output.Entities)
			sm.UnprocessableCount = len(m.Output.UnprocessableContent)
		}
		out.Models = append(out.Models, sm)
	}
	return out
}
