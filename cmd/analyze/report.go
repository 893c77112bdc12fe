package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"readability-backend/internal/analyses"
	"readability-backend/internal/analyses/recommendations"
	"readability-backend/internal/checks"
	"readability-backend/internal/fanout"
	"readability-backend/internal/pipeline"
	"readability-backend/internal/scoring"
)

const maxPrintedRecommendations = 10

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func printProgress(w io.Writer, snap pipeline.Snapshot) {
	if snap.Progress.Message == "" {
		return
	}
	fmt.Fprintf(w, "%s %3d%% %s\n", cyan("»"), snap.Progress.Percent, snap.Progress.Message)
}

func scoreColor(score int) func(a ...interface{}) string {
	switch {
	case score >= 80:
		return green
	case score >= 60:
		return yellow
	default:
		return red
	}
}

func printReport(w io.Writer, rec analyses.Record) {
	grade := scoring.GradeFor(rec.OverallScore)
	paint := scoreColor(rec.OverallScore)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", bold("Page:"), rec.Title)
	if rec.Source.URL != "" {
		fmt.Fprintf(w, "%s %s\n", bold("URL:"), rec.Source.URL)
	}
	fmt.Fprintf(w, "%s %s  %s (%s)\n", bold("Score:"), paint(fmt.Sprintf("%d/100", rec.OverallScore)), paint(rec.Grade), grade.Label)
	fmt.Fprintf(w, "%s\n\n", grade.Summary)

	fmt.Fprintln(w, bold("Categories"))
	for _, cat := range checks.Categories() {
		cs, ok := rec.CategoryScores[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-22s %s  (weight %d%%)\n", cat.Label(), scoreColor(cs.Score)(fmt.Sprintf("%3d", cs.Score)), cs.Weight)
	}

	s := rec.IssueSummary
	fmt.Fprintf(w, "\n%s %s critical, %s high, %d medium, %d low, %s warnings, %s passed\n",
		bold("Issues:"), red(s.Critical), red(s.High), s.Medium, s.Low, yellow(s.Warnings), green(s.Passed))

	fmt.Fprintln(w)
	fmt.Fprintln(w, bold("Reader models"))
	for _, m := range rec.ModelExtractions {
		switch m.Status {
		case fanout.StatusOK:
			score := "-"
			if m.UsefulnessScore != nil {
				score = fmt.Sprintf("%.1f/10", *m.UsefulnessScore)
			}
			fmt.Fprintf(w, "  %-8s %s usefulness %s (%dms)\n", m.ModelKey, green("ok"), score, m.ProcessingTimeMs)
		default:
			fmt.Fprintf(w, "  %-8s %s %s\n", m.ModelKey, red(string(m.Status)), m.Error)
		}
	}

	if len(rec.Recommendations) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, bold("Top recommendations"))
	for i, r := range rec.Recommendations {
		if i == maxPrintedRecommendations {
			fmt.Fprintf(w, "  ... and %d more\n", len(rec.Recommendations)-maxPrintedRecommendations)
			break
		}
		fmt.Fprintf(w, "  %s %s\n", priorityTag(r.Priority), r.Title)
		if desc := strings.TrimSpace(r.Description); desc != "" {
			fmt.Fprintf(w, "      %s\n", desc)
		}
	}
}

func priorityTag(p recommendations.Priority) string {
	tag := fmt.Sprintf("[%s]", p)
	switch p {
	case recommendations.PriorityCritical, recommendations.PriorityHigh:
		return red(tag)
	case recommendations.PriorityMedium:
		return yellow(tag)
	default:
		return cyan(tag)
	}
}
