package scoring

import (
	"math"

	"github.com/samber/lo"

	"readability-backend/internal/checks"
)

// Version identifies the scoring rules. Stored next to the catalog version.
const Version = "1.0.0"

// ModelBlend is the share of contentClarity and aiSignals driven by the
// reader models.
const ModelBlend = 0.3

// Weights are the category weights in percent. They sum to 100.
var Weights = map[checks.Category]int{
	checks.ContentStructure: 20,
	checks.ContentClarity:   25,
	checks.TechnicalAccess:  20,
	checks.MetadataSchema:   15,
	checks.AISignals:        20,
}

var severityWeights = map[checks.Severity]float64{
	checks.SeverityCritical: 1.0,
	checks.SeverityHigh:     0.8,
	checks.SeverityMedium:   0.5,
	checks.SeverityLow:      0.3,
	checks.SeverityInfo:     0,
}

var statusValues = map[checks.Status]float64{
	checks.StatusPass: 100,
	checks.StatusWarn: 60,
	checks.StatusFail: 0,
}

// ModelScore is one reader model's contribution to the AI signal.
type ModelScore struct {
	OK         bool
	Usefulness float64
}

// CategoryScore is the final score of one category.
type CategoryScore struct {
	Score     int    `json:"score"`
	RuleScore int    `json:"ruleScore"`
	Weight    int    `json:"weight"`
	Label     string `json:"label"`
}

// IssueSummary counts check outcomes. Failures are split by severity.
type IssueSummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Warnings int `json:"warnings"`
	Passed   int `json:"passed"`
	NA       int `json:"na"`
	Total    int `json:"total"`
}

// Result is the scoring output for one analysis.
type Result struct {
	OverallScore   int                              `json:"overallScore"`
	Grade          Grade                            `json:"grade"`
	CategoryScores map[checks.Category]CategoryScore `json:"categoryScores"`
	IssueSummary   IssueSummary                     `json:"issueSummary"`
	AISignal       float64                          `json:"aiSignal"`
	ModelsUsed     int                              `json:"modelsUsed"`
	Version        string                           `json:"scoringVersion"`
}

// Score aggregates a check report and the reader model outcomes.
func Score(report checks.Report, models []ModelScore) Result {
	ai := AISignal(models)
	cats := make(map[checks.Category]CategoryScore, len(Weights))
	for _, c := range checks.Categories() {
		rule := CategoryRuleScore(report[c])
		final := rule
		if c == checks.ContentClarity || c == checks.AISignals {
			final = Blend(rule, ai)
		}
		cats[c] = CategoryScore{Score: final, RuleScore: rule, Weight: Weights[c], Label: c.Label()}
	}
	overall := Overall(cats)
	return Result{
		OverallScore:   overall,
		Grade:          GradeFor(overall),
		CategoryScores: cats,
		IssueSummary:   Summarize(report.All()),
		AISignal:       ai,
		ModelsUsed:     lo.CountBy(models, func(m ModelScore) bool { return m.OK }),
		Version:        Version,
	}
}

// CategoryRuleScore is the severity-weighted mean of check values. Checks
// that are na or carry no weight are excluded. A category with no checks
// scores 0; one where every check is excluded scores 100.
func CategoryRuleScore(results []checks.Result) int {
	if len(results) == 0 {
		return 0
	}
	var total, weighted float64
	for _, r := range results {
		if r.Status == checks.StatusNA {
			continue
		}
		w := severityWeights[r.Severity]
		total += w
		weighted += w * statusValues[r.Status]
	}
	if total == 0 {
		return 100
	}
	return clamp(int(math.Round(weighted / total)))
}

// AISignal converts model usefulness scores (0..10) into a 0..100 signal.
// Every model holds an equal third; failed models contribute nothing.
func AISignal(models []ModelScore) float64 {
	if len(models) == 0 {
		return 0
	}
	share := 10.0 / float64(len(models))
	sum := lo.SumBy(models, func(m ModelScore) float64 {
		if !m.OK {
			return 0
		}
		return math.Max(0, math.Min(10, m.Usefulness)) * share
	})
	return math.Round(sum*100) / 100
}

// Blend mixes a rule score with the model signal.
func Blend(rule int, ai float64) int {
	return clamp(int(math.Round(float64(rule)*(1-ModelBlend) + ai*ModelBlend)))
}

// Overall is the rounded weighted sum of the category scores.
func Overall(cats map[checks.Category]CategoryScore) int {
	var sum float64
	for _, c := range checks.Categories() {
		sum += float64(cats[c].Score) * float64(Weights[c]) / 100
	}
	return clamp(int(math.Round(sum)))
}

// Summarize counts outcomes across results.
func Summarize(results []checks.Result) IssueSummary {
	var s IssueSummary
	for _, r := range results {
		s.Total++
		switch r.Status {
		case checks.StatusPass:
			s.Passed++
		case checks.StatusWarn:
			s.Warnings++
		case checks.StatusNA:
			s.NA++
		case checks.StatusFail:
			switch r.Severity {
			case checks.SeverityCritical:
				s.Critical++
			case checks.SeverityHigh:
				s.High++
			case checks.SeverityMedium:
				s.Medium++
			case checks.SeverityLow, checks.SeverityInfo:
				s.Low++
			}
		}
	}
	return s
}

func clamp(v int) int {
	return lo.Clamp(v, 0, 100)
}
