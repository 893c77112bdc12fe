package checks

import (
	"strings"
	"time"

	"readability-backend/internal/extract"
)

// Definition is the static part of a check.
type Definition struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
}

type outcome struct {
	status         Status
	description    string
	recommendation string
	affected       []string
}

type check struct {
	Definition
	eval func(*input) outcome
}

// input carries the document plus values derived once per run.
type input struct {
	doc       *extract.Document
	now       time.Time
	text      string
	lower     string
	sentences []string
}

// Engine evaluates the fixed check catalog.
type Engine struct {
	checks []check
}

func NewEngine() *Engine {
	var all []check
	all = append(all, structureChecks()...)
	all = append(all, clarityChecks()...)
	all = append(all, factDensityCheck())
	all = append(all, technicalChecks()...)
	all = append(all, metadataChecks()...)
	all = append(all, signalChecks()...)
	all = append(all, answerChecks()...)
	return &Engine{checks: all}
}

// Catalog lists the check definitions in evaluation order.
func (e *Engine) Catalog() []Definition {
	out := make([]Definition, 0, len(e.checks))
	for _, c := range e.checks {
		out = append(out, c.Definition)
	}
	return out
}

// Run evaluates every check. reference is the time freshness checks measure
// against; identical inputs always produce identical reports.
func (e *Engine) Run(doc *extract.Document, reference time.Time) Report {
	if doc == nil {
		doc = &extract.Document{}
	}
	in := &input{
		doc:       doc,
		now:       reference.UTC(),
		text:      doc.Text,
		lower:     strings.ToLower(doc.Text),
		sentences: extract.SplitSentences(doc.Text),
	}
	results := make([]Result, 0, len(e.checks))
	for _, c := range e.checks {
		o := c.eval(in)
		results = append(results, Result{
			ID:               c.ID,
			Category:         c.Category,
			Severity:         c.Severity,
			Status:           o.status,
			Title:            c.Title,
			Description:      o.description,
			Recommendation:   o.recommendation,
			AffectedElements: o.affected,
		})
	}
	return Group(results)
}

// grade picks pass, warn or fail from two thresholds over a count.
func grade(n, passAt, warnAt int) Status {
	switch {
	case n >= passAt:
		return StatusPass
	case n >= warnAt:
		return StatusWarn
	default:
		return StatusFail
	}
}

func unless(cond bool, msg string) string {
	if cond {
		return ""
	}
	return msg
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func validBlocks(doc *extract.Document) []extract.StructuredData {
	return doc.ValidStructuredData()
}

func anyBlockHas(doc *extract.Document, keys ...string) bool {
	for _, sd := range validBlocks(doc) {
		for _, k := range keys {
			if sd.HasField(k) {
				return true
			}
		}
	}
	return false
}

func anyBlockOfType(doc *extract.Document, typ string) bool {
	for _, sd := range validBlocks(doc) {
		for _, t := range sd.Types() {
			if t == typ {
				return true
			}
		}
	}
	return false
}
