package checks

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"readability-backend/internal/extract"
)

var refTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// factDenseText carries ten facts.
var factDenseText = strings.Repeat("filler ", 80) +
	"In 2024 revenue grew 40% to 3 million users. According to the survey of 500 companies, " +
	"Acme launched on March 3 and data from 2023 showed growth."

func TestRunReturnsFixedShape(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	report := engine.Run(&extract.Document{}, refTime)

	if len(report) != 5 {
		t.Fatalf("expected 5 categories, got %d", len(report))
	}
	sizes := map[Category]int{
		ContentStructure: 10,
		ContentClarity:   11,
		TechnicalAccess:  10,
		MetadataSchema:   10,
		AISignals:        15,
	}
	seen := map[string]bool{}
	for _, c := range Categories() {
		results, ok := report[c]
		if !ok {
			t.Fatalf("missing category %s", c)
		}
		if len(results) != sizes[c] {
			t.Fatalf("expected %d checks in %s, got %d", sizes[c], c, len(results))
		}
		for _, r := range results {
			if seen[r.ID] {
				t.Fatalf("duplicate check id %s", r.ID)
			}
			seen[r.ID] = true
			if r.Category != c || !r.Severity.Valid() || !r.Status.Valid() {
				t.Fatalf("invalid result %+v", r)
			}
		}
	}
	if len(engine.Catalog()) != 56 {
		t.Fatalf("expected 56 definitions, got %d", len(engine.Catalog()))
	}
}

func TestRunNilDocument(t *testing.T) {
	t.Parallel()

	report := NewEngine().Run(nil, refTime)
	if len(report.All()) != 56 {
		t.Fatalf("expected 56 results, got %d", len(report.All()))
	}
}

func TestSingleH1WithoutDescription(t *testing.T) {
	t.Parallel()

	raw := `<!doctype html><html lang="en"><head><title>A page about readable content for people</title></head>
<body><main><h1>Readable content</h1><p>Readable content is text that people can follow easily and models can quote.</p></main></body></html>`
	doc, err := extract.Extract(context.Background(), raw, "")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	report := NewEngine().Run(doc, refTime)

	h1, ok := report.Find("CS-01")
	if !ok || h1.Status != StatusPass {
		t.Fatalf("expected CS-01 pass, got %+v", h1)
	}
	desc, ok := report.Find("MS-02")
	if !ok || desc.Status != StatusFail {
		t.Fatalf("expected MS-02 fail, got %+v", desc)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()

	doc := &extract.Document{
		Text:      "Alpha Beta is a tool. Alpha Beta helps. Alpha Beta works. Gamma Delta Epsilon.",
		WordCount: 14,
		Headings:  []extract.Heading{{Level: 1, Text: "Title"}, {Level: 3, Text: "Skip"}},
		Links:     []extract.Link{{Href: "/a", Text: "here", Internal: true}},
	}
	engine := NewEngine()
	a := engine.Run(doc, refTime)
	b := engine.Run(doc, refTime)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical reports")
	}
}

func TestIndividualChecks(t *testing.T) {
	t.Parallel()

	ld := func(raw string) extract.StructuredData {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("bad fixture: %v", err)
		}
		return extract.StructuredData{Valid: true, Data: v}
	}

	tests := []struct {
		name string
		id   string
		doc  extract.Document
		want Status
	}{
		{name: "no h1", id: "CS-01", doc: extract.Document{}, want: StatusFail},
		{name: "two h1", id: "CS-01", doc: extract.Document{Headings: []extract.Heading{{Level: 1}, {Level: 1}}}, want: StatusFail},
		{name: "skipped level", id: "CS-02", doc: extract.Document{Headings: []extract.Heading{{Level: 1}, {Level: 3}}}, want: StatusFail},
		{name: "no tables", id: "CS-06", doc: extract.Document{}, want: StatusNA},
		{name: "table without headers", id: "CS-06", doc: extract.Document{Tables: []extract.Table{{Rows: 2}}}, want: StatusFail},
		{name: "shallow content", id: "CS-08", doc: extract.Document{WordCount: 150}, want: StatusWarn},
		{name: "non-english flesch", id: "CC-01", doc: extract.Document{Language: "de", Text: "Das ist ein Satz."}, want: StatusNA},
		{name: "freshness uses reference year", id: "CC-10", doc: extract.Document{Text: "Prices checked in 2025 by the team."}, want: StatusPass},
		{name: "no freshness", id: "CC-10", doc: extract.Document{Text: "Plain words only."}, want: StatusWarn},
		{name: "robots noindex", id: "TA-02", doc: extract.Document{Metadata: extract.Metadata{Robots: "noindex"}}, want: StatusFail},
		{name: "bot restricted", id: "TA-03", doc: extract.Document{Metadata: extract.Metadata{AIDirectives: map[string]string{"GPTBot": "noindex"}}}, want: StatusFail},
		{name: "relative canonical", id: "TA-04", doc: extract.Document{Metadata: extract.Metadata{Canonical: "/page"}}, want: StatusFail},
		{name: "heavy page", id: "TA-05", doc: extract.Document{TotalBytes: 3 << 20}, want: StatusFail},
		{name: "no images", id: "TA-09", doc: extract.Document{}, want: StatusNA},
		{name: "invalid json-ld", id: "TA-10", doc: extract.Document{StructuredData: []extract.StructuredData{{Valid: false, Error: "bad"}}}, want: StatusFail},
		{name: "title optimal", id: "MS-01", doc: extract.Document{Metadata: extract.Metadata{Title: "A title that is comfortably long enough"}}, want: StatusPass},
		{name: "short title", id: "MS-01", doc: extract.Document{Metadata: extract.Metadata{Title: "Short"}}, want: StatusWarn},
		{name: "untyped schema", id: "MS-06", doc: extract.Document{StructuredData: []extract.StructuredData{ld(`{"name":"x"}`)}}, want: StatusWarn},
		{name: "breadcrumb in graph", id: "MS-09", doc: extract.Document{StructuredData: []extract.StructuredData{ld(`{"@graph":[{"@type":"BreadcrumbList"}]}`)}}, want: StatusPass},
		{name: "howto without schema", id: "MS-10", doc: extract.Document{Text: "How to brew coffee at home."}, want: StatusWarn},
		{name: "recent date", id: "AS-04", doc: extract.Document{Metadata: extract.Metadata{DateModified: "2025-03-01T10:00:00Z"}}, want: StatusPass},
		{name: "stale date", id: "AS-04", doc: extract.Document{Metadata: extract.Metadata{DatePublished: "2019-01-01"}}, want: StatusWarn},
		{name: "no dates", id: "AS-04", doc: extract.Document{}, want: StatusFail},
		{name: "data points", id: "AS-09", doc: extract.Document{Text: "Sales rose 40% to $1,200 across 3 million users."}, want: StatusPass},
		{name: "vague internal links", id: "AS-10", doc: extract.Document{Links: []extract.Link{{Href: "/a", Text: "here", Internal: true}, {Href: "/b", Text: "more", Internal: true}}}, want: StatusFail},
		{name: "short body skips fact density", id: "CC-11", doc: extract.Document{Text: "A few words.", WordCount: 3}, want: StatusNA},
		{name: "fact dense body", id: "CC-11", doc: extract.Document{Text: factDenseText, WordCount: 100}, want: StatusPass},
		{name: "fact free body", id: "CC-11", doc: extract.Document{Text: strings.Repeat("plain words here ", 40)}, want: StatusFail},
		{name: "question heading with answer", id: "AIO-01", doc: extract.Document{
			Text:       "What is cold brew? Cold brew is coffee steeped in cold water. It keeps for days.",
			Headings:   []extract.Heading{{Level: 2, Text: "What is cold brew?"}},
			Paragraphs: []extract.Paragraph{{Text: "Cold brew...", WordCount: 40}},
		}, want: StatusPass},
		{name: "no question headings", id: "AIO-01", doc: extract.Document{Headings: []extract.Heading{{Level: 2, Text: "Overview"}}}, want: StatusWarn},
		{name: "faq schema", id: "AIO-02", doc: extract.Document{StructuredData: []extract.StructuredData{ld(`{"@type":"FAQPage"}`)}}, want: StatusPass},
		{name: "no faq schema", id: "AIO-02", doc: extract.Document{}, want: StatusWarn},
		{name: "question subheadings", id: "AIO-03", doc: extract.Document{Headings: []extract.Heading{{Level: 2, Text: "Is it safe?"}, {Level: 2, Text: "How long?"}}}, want: StatusPass},
		{name: "no questions", id: "AIO-03", doc: extract.Document{Text: "Statements only."}, want: StatusWarn},
		{name: "concise paragraphs", id: "AIO-04", doc: extract.Document{Paragraphs: []extract.Paragraph{{WordCount: 25}, {WordCount: 200}}}, want: StatusPass},
		{name: "long paragraphs", id: "AIO-04", doc: extract.Document{Paragraphs: []extract.Paragraph{{WordCount: 120}, {WordCount: 200}, {WordCount: 90}}}, want: StatusWarn},
		{name: "organization with profiles", id: "AIO-05", doc: extract.Document{StructuredData: []extract.StructuredData{ld(`{"@type":"Organization","sameAs":["https://example.org/a"]}`)}}, want: StatusPass},
		{name: "organization without profiles", id: "AIO-05", doc: extract.Document{StructuredData: []extract.StructuredData{ld(`{"@type":"Organization"}`)}}, want: StatusWarn},
		{name: "no entity schema", id: "AIO-05", doc: extract.Document{}, want: StatusFail},
	}

	engine := NewEngine()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := tt.doc
			got, ok := engine.Run(&doc, refTime).Find(tt.id)
			if !ok {
				t.Fatalf("check %s not found", tt.id)
			}
			if got.Status != tt.want {
				t.Fatalf("%s: expected %s, got %s (%s)", tt.id, tt.want, got.Status, got.Description)
			}
		})
	}
}

func TestGroupDropsUnknownCategories(t *testing.T) {
	t.Parallel()

	report := Group([]Result{{ID: "X-1", Category: "bogus"}, {ID: "CS-01", Category: ContentStructure}})
	if len(report.All()) != 1 {
		t.Fatalf("expected 1 result, got %d", len(report.All()))
	}
	if _, ok := report[AISignals]; !ok {
		t.Fatalf("expected empty category key to be present")
	}
}
