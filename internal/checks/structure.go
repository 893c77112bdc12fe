package checks

import (
	"fmt"
	"strings"
)

func structureChecks() []check {
	return []check{
		{Definition{"CS-01", ContentStructure, SeverityHigh, "Single H1 present"}, checkSingleH1},
		{Definition{"CS-02", ContentStructure, SeverityHigh, "Heading hierarchy valid"}, checkHeadingHierarchy},
		{Definition{"CS-03", ContentStructure, SeverityMedium, "Semantic HTML usage"}, checkSemanticHTML},
		{Definition{"CS-04", ContentStructure, SeverityMedium, "Content organized in sections"}, checkSections},
		{Definition{"CS-05", ContentStructure, SeverityLow, "Lists used for enumerable content"}, checkLists},
		{Definition{"CS-06", ContentStructure, SeverityMedium, "Tables have proper headers"}, checkTableHeaders},
		{Definition{"CS-07", ContentStructure, SeverityLow, "Paragraph length reasonable"}, checkParagraphLength},
		{Definition{"CS-08", ContentStructure, SeverityMedium, "Content depth sufficient"}, checkContentDepth},
		{Definition{"CS-09", ContentStructure, SeverityMedium, "Logical reading order"}, checkReadingOrder},
		{Definition{"CS-10", ContentStructure, SeverityLow, "No content duplication"}, checkDuplication},
	}
}

func checkSingleH1(in *input) outcome {
	var h1s []string
	for _, h := range in.doc.Headings {
		if h.Level == 1 {
			h1s = append(h1s, h.Text)
		}
	}
	switch len(h1s) {
	case 0:
		return outcome{status: StatusFail, description: "No H1 tag found.",
			recommendation: "Add a single H1 tag that clearly describes the page content."}
	case 1:
		return outcome{status: StatusPass, description: "Exactly one H1 tag found."}
	default:
		return outcome{status: StatusFail,
			description:    fmt.Sprintf("Found %d H1 tags. There should be exactly one.", len(h1s)),
			recommendation: "Remove extra H1 tags. Use H2-H6 for subsections.",
			affected:       h1s}
	}
}

// skippedLevels reports headings that jump more than one level deeper.
func skippedLevels(in *input) []string {
	var out []string
	hs := in.doc.Headings
	for i := 1; i < len(hs); i++ {
		prev, curr := hs[i-1].Level, hs[i].Level
		if curr > prev+1 {
			out = append(out, fmt.Sprintf("H%d to H%d (skipped H%d): %q", prev, curr, prev+1, hs[i].Text))
		}
	}
	return out
}

func checkHeadingHierarchy(in *input) outcome {
	if len(in.doc.Headings) == 0 {
		return outcome{status: StatusFail, description: "No headings found on the page.",
			recommendation: "Add headings (H1-H6) to create a clear content hierarchy."}
	}
	skipped := skippedLevels(in)
	if len(skipped) == 0 {
		return outcome{status: StatusPass, description: "Heading hierarchy is valid with no skipped levels."}
	}
	return outcome{status: StatusFail,
		description:    fmt.Sprintf("Found %d skipped heading level(s).", len(skipped)),
		recommendation: "Fix heading hierarchy to avoid skipped levels. Each heading should be at most one level deeper than the previous.",
		affected:       skipped}
}

func checkSemanticHTML(in *input) outcome {
	sem := in.doc.Semantic
	var present, missing []string
	for _, el := range []struct {
		name string
		ok   bool
	}{{"main", sem.Main}, {"article", sem.Article}, {"section", sem.Section}} {
		if el.ok {
			present = append(present, el.name)
		} else {
			missing = append(missing, el.name)
		}
	}
	o := outcome{status: grade(len(present), 2, 1), affected: missing}
	if len(present) > 0 {
		o.description = "Semantic elements found: " + strings.Join(present, ", ") + "."
	} else {
		o.description = "No semantic HTML5 elements found."
	}
	o.recommendation = unless(len(present) >= 2, "Wrap the primary content in <main> and <article>, and group related content in <section> elements.")
	return o
}

func checkSections(in *input) outcome {
	n := 0
	for _, h := range in.doc.Headings {
		if h.Level >= 2 {
			n++
		}
	}
	return outcome{
		status:         grade(n, 3, 1),
		description:    fmt.Sprintf("Found %d section heading(s) (H2-H6).", n),
		recommendation: unless(n >= 3, "Break content into sections with descriptive H2/H3 headings."),
	}
}

func checkLists(in *input) outcome {
	l := in.doc.Lists
	total := l.Ordered + l.Unordered + l.Definition
	if total > 0 {
		return outcome{status: StatusPass,
			description: fmt.Sprintf("Found %d list(s): %d ordered, %d unordered, %d definition.", total, l.Ordered, l.Unordered, l.Definition)}
	}
	return outcome{status: StatusWarn, description: "No lists found.",
		recommendation: "Use bulleted or numbered lists for enumerable items, steps, or features."}
}

func checkTableHeaders(in *input) outcome {
	tables := in.doc.Tables
	if len(tables) == 0 {
		return outcome{status: StatusNA, description: "No tables found on the page."}
	}
	var bad []string
	for i, t := range tables {
		if !t.HasThead && !t.HasTh {
			bad = append(bad, fmt.Sprintf("table %d", i+1))
		}
	}
	if len(bad) == 0 {
		return outcome{status: StatusPass, description: fmt.Sprintf("All %d table(s) have header cells.", len(tables))}
	}
	return outcome{status: StatusFail,
		description:    fmt.Sprintf("%d of %d table(s) lack header cells.", len(bad), len(tables)),
		recommendation: "Add <thead> and <th> elements so table data can be interpreted correctly.",
		affected:       bad}
}

func checkParagraphLength(in *input) outcome {
	ps := in.doc.Paragraphs
	if len(ps) == 0 {
		return outcome{status: StatusWarn, description: "No paragraphs found.",
			recommendation: "Structure body content into paragraphs."}
	}
	total := 0
	var long []string
	for _, p := range ps {
		total += p.WordCount
		if p.WordCount > 150 {
			long = append(long, truncateRunes(p.Text, 80)+"...")
		}
	}
	avg := float64(total) / float64(len(ps))
	o := outcome{description: fmt.Sprintf("Average paragraph length: %.0f words.", avg), affected: limit(long, 3)}
	if avg <= 150 {
		o.status = StatusPass
	} else {
		o.status = StatusWarn
		o.recommendation = "Keep paragraphs under 150 words so each one carries a single idea."
	}
	return o
}

func checkContentDepth(in *input) outcome {
	wc := in.doc.WordCount
	return outcome{
		status:         grade(wc, 300, 100),
		description:    fmt.Sprintf("Main content contains %d words.", wc),
		recommendation: unless(wc >= 300, fmt.Sprintf("Add more content. Current word count (%d) is below the recommended minimum of 300 words.", wc)),
	}
}

func checkReadingOrder(in *input) outcome {
	switch len(in.doc.Headings) {
	case 0:
		return outcome{status: StatusWarn, description: "No headings to assess reading order."}
	case 1:
		return outcome{status: StatusPass, description: "Single heading present."}
	}
	issues := len(skippedLevels(in))
	if issues == 0 {
		return outcome{status: StatusPass, description: "Content follows a logical reading order."}
	}
	return outcome{status: StatusWarn,
		description:    fmt.Sprintf("%d heading order issue(s) detected.", issues),
		recommendation: "Ensure headings follow a logical top-to-bottom reading order."}
}

func checkDuplication(in *input) outcome {
	ps := in.doc.Paragraphs
	if len(ps) < 2 {
		return outcome{status: StatusPass, description: "Not enough content to check for duplication."}
	}
	seen := make(map[string]bool, len(ps))
	var dups []string
	for _, p := range ps {
		if p.WordCount < 10 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(p.Text))
		if seen[key] {
			dups = append(dups, truncateRunes(p.Text, 80)+"...")
			continue
		}
		seen[key] = true
	}
	if len(dups) == 0 {
		return outcome{status: StatusPass, description: "No duplicate content blocks detected."}
	}
	return outcome{status: StatusWarn,
		description:    fmt.Sprintf("Found %d duplicate content block(s).", len(dups)),
		recommendation: "Remove or consolidate repeated paragraphs.",
		affected:       limit(dups, 3)}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
