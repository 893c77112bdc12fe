package recommendations

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"readability-backend/internal/checks"
)

// MaxModelRecommendations caps model-sourced entries per analysis.
const MaxModelRecommendations = 5

// Generate builds one recommendation per failing or warning check plus at
// most MaxModelRecommendations model suggestions, in priority order.
func Generate(results []checks.Result, suggestions []Suggestion) []Recommendation {
	out := make([]Recommendation, 0, len(results)+MaxModelRecommendations)
	out = append(out, fromChecks(results)...)
	out = append(out, fromSuggestions(suggestions)...)

	sortRecommendations(out)
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}

func fromChecks(results []checks.Result) []Recommendation {
	out := make([]Recommendation, 0, len(results))
	for _, r := range results {
		if r.Status != checks.StatusFail && r.Status != checks.StatusWarn {
			continue
		}
		m := metaFor(r.ID)
		priority := PriorityLow
		if r.Status == checks.StatusFail {
			priority = priorityFromSeverity(r.Severity)
		}
		group := m.group
		if r.Status == checks.StatusFail && (priority == PriorityCritical || priority == PriorityHigh) && m.effort == EffortQuick {
			group = GroupQuickWins
		}
		desc := strings.TrimSpace(r.Recommendation)
		if desc == "" {
			desc = r.Description
		}
		out = append(out, Recommendation{
			ID:           r.ID,
			Title:        r.Title,
			Description:  desc,
			Category:     r.Category,
			CheckID:      r.ID,
			Priority:     priority,
			Effort:       m.effort,
			Impact:       m.impact,
			ImpactPoints: impactPoints[m.impact],
			Group:        group,
			Audience:     m.audience,
			Source:       SourceRule,
			CodeExample:  m.example,
		})
	}
	return out
}

func fromSuggestions(suggestions []Suggestion) []Recommendation {
	unique := lo.UniqBy(lo.Filter(suggestions, func(s Suggestion, _ int) bool {
		return strings.TrimSpace(s.Title) != ""
	}), func(s Suggestion) string {
		return slugify(s.Title)
	})
	if len(unique) > MaxModelRecommendations {
		unique = unique[:MaxModelRecommendations]
	}
	out := make([]Recommendation, 0, len(unique))
	for i, s := range unique {
		impact := s.Impact
		if _, ok := impactPoints[impact]; !ok {
			impact = ImpactMedium
		}
		out = append(out, Recommendation{
			ID:           "AI-" + strconv.Itoa(i+1),
			Title:        strings.TrimSpace(s.Title),
			Description:  strings.TrimSpace(s.Description),
			Priority:     normalizePriority(s.Priority),
			Effort:       normalizeEffort(s.Effort),
			Impact:       impact,
			ImpactPoints: impactPoints[impact],
			Group:        GroupContent,
			Audience:     AudienceContent,
			Source:       SourceModel,
		})
	}
	return out
}

// FilterByGroup keeps recommendations of one group. "all" keeps everything.
func FilterByGroup(items []Recommendation, group string) []Recommendation {
	switch group {
	case "", GroupAll:
		return items
	case GroupQuickWins:
		return lo.Filter(items, func(r Recommendation, _ int) bool {
			return (r.Priority == PriorityCritical || r.Priority == PriorityHigh) && r.Effort == EffortQuick
		})
	}
	return lo.Filter(items, func(r Recommendation, _ int) bool { return r.Group == group })
}

// FilterByAudience keeps recommendations for one audience. "all" keeps everything.
func FilterByAudience(items []Recommendation, audience string) []Recommendation {
	if audience == "" || audience == GroupAll {
		return items
	}
	return lo.Filter(items, func(r Recommendation, _ int) bool { return r.Audience == audience })
}

func priorityFromSeverity(s checks.Severity) Priority {
	switch s {
	case checks.SeverityCritical:
		return PriorityCritical
	case checks.SeverityHigh:
		return PriorityHigh
	case checks.SeverityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func normalizePriority(p Priority) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(string(p)))) {
	case PriorityCritical:
		return PriorityCritical
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

func normalizeEffort(e Effort) Effort {
	switch Effort(strings.ToLower(strings.TrimSpace(string(e)))) {
	case EffortQuick:
		return EffortQuick
	case EffortSignificant:
		return EffortSignificant
	default:
		return EffortModerate
	}
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

func slugify(input string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(input)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "item"
	}
	return out
}

func sortRecommendations(items []Recommendation) {
	sort.SliceStable(items, func(i, j int) bool {
		a := items[i]
		b := items[j]
		if priorityRank(a.Priority) != priorityRank(b.Priority) {
			return priorityRank(a.Priority) > priorityRank(b.Priority)
		}
		if a.ImpactPoints != b.ImpactPoints {
			return a.ImpactPoints > b.ImpactPoints
		}
		if !strings.EqualFold(a.Title, b.Title) {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
		return a.ID < b.ID
	})
}
