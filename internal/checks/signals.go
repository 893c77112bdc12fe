package checks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/araddon/dateparse"

	"readability-backend/internal/extract"
)

var (
	boilerplatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)lorem ipsum`),
		regexp.MustCompile(`(?i)all rights reserved`),
		regexp.MustCompile(`(?i)terms and conditions apply`),
		regexp.MustCompile(`(?i)subscribe to our newsletter`),
		regexp.MustCompile(`(?i)click here to learn more`),
		regexp.MustCompile(`(?i)share this (article|post|page)`),
		regexp.MustCompile(`(?i)leave a (comment|reply)`),
		regexp.MustCompile(`(?i)related (articles|posts|content)`),
		regexp.MustCompile(`(?i)popular (articles|posts)`),
		regexp.MustCompile(`(?i)you may also like`),
		regexp.MustCompile(`(?i)copyright \d{4}`),
	}
	citationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bsource\b`),
		regexp.MustCompile(`(?i)\bcited\b`),
		regexp.MustCompile(`(?i)\breference\b`),
		regexp.MustCompile(`(?i)\baccording to\b`),
		regexp.MustCompile(`(?i)\bper\s+\w+`),
	}
	authorBioRe      = regexp.MustCompile(`(?i)\babout the author\b|\bwritten by\b|\bauthor bio\b|\bexpertise\b|\bcredentials\b|\bqualified\b`)
	firstPersonRe    = regexp.MustCompile(`(?i)\b(I|we|you|they)\b`)
	assertiveVerbRe  = regexp.MustCompile(`(?i)\b(is|are|was|were|has|have|can|will|should|must|provides|enables|allows|means)\b`)
	definitionTextRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\w+\s+is\s+(defined as|a|an|the)\b`),
		regexp.MustCompile(`(?i)\b\w+\s+refers?\s+to\b`),
		regexp.MustCompile(`(?i)\b\w+\s+means?\b`),
		regexp.MustCompile(`(?i)\bdefinition of\b`),
		regexp.MustCompile(`(?i)\balso known as\b`),
		regexp.MustCompile(`(?i)\bi\.e\.`),
	}
	comparisonPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcompared to\b`),
		regexp.MustCompile(`(?i)\bversus\b|\bvs\b`),
		regexp.MustCompile(`(?i)\bunlike\b`),
		regexp.MustCompile(`(?i)\bsimilar to\b`),
		regexp.MustCompile(`(?i)\bin contrast\b`),
		regexp.MustCompile(`(?i)\bon the other hand\b`),
		regexp.MustCompile(`(?is)\badvantages?\b.*\bdisadvantages?\b`),
		regexp.MustCompile(`(?is)\bpros?\b.*\bcons?\b`),
		regexp.MustCompile(`(?i)\bdifference between\b`),
	}
	stepPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bstep\s+\d`),
		regexp.MustCompile(`(?is)\bfirst\b.*\bthen\b`),
		regexp.MustCompile(`(?is)\bnext\b.*\bfinally\b`),
		regexp.MustCompile(`(?i)\bhow\s+to\b`),
	}
	dataPointPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+%`),
		regexp.MustCompile(`\$[\d,]+`),
		regexp.MustCompile(`\b\d{1,3}(,\d{3})+\b`),
		regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(million|billion|trillion|percent|times|x)\b`),
	}
)

func signalChecks() []check {
	return []check{
		{Definition{"AS-01", AISignals, SeverityHigh, "Content uniqueness signals"}, checkUniqueness},
		{Definition{"AS-02", AISignals, SeverityMedium, "Source attribution"}, checkSourceAttribution},
		{Definition{"AS-03", AISignals, SeverityMedium, "Author expertise indicators"}, checkAuthorExpertise},
		{Definition{"AS-04", AISignals, SeverityMedium, "Content freshness"}, checkFreshnessDate},
		{Definition{"AS-05", AISignals, SeverityHigh, "Quotable passages"}, checkQuotable},
		{Definition{"AS-06", AISignals, SeverityMedium, "Definition patterns"}, checkDefinitions},
		{Definition{"AS-07", AISignals, SeverityLow, "Comparison/contrast patterns"}, checkComparisons},
		{Definition{"AS-08", AISignals, SeverityMedium, "Step-by-step patterns"}, checkSteps},
		{Definition{"AS-09", AISignals, SeverityLow, "Data/statistics present"}, checkDataPoints},
		{Definition{"AS-10", AISignals, SeverityMedium, "Internal linking context"}, checkInternalLinks},
	}
}

func checkUniqueness(in *input) outcome {
	var hits []string
	for _, p := range boilerplatePatterns {
		if p.MatchString(in.text) {
			hits = append(hits, strings.TrimPrefix(p.String(), "(?i)"))
		}
	}
	o := outcome{affected: hits}
	switch {
	case len(hits) == 0:
		o.status = StatusPass
		o.description = "No boilerplate content detected in main body."
		return o
	case len(hits) <= 2:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.description = fmt.Sprintf("Found %d boilerplate pattern(s).", len(hits))
	o.recommendation = "Remove boilerplate and template content from the main body."
	return o
}

func checkSourceAttribution(in *input) outcome {
	ext := externalLinks(in, true)
	cites := countMatching(in.text, citationPatterns)
	o := outcome{description: fmt.Sprintf("%d external link(s) and %d citation pattern(s) found.", ext, cites)}
	switch {
	case ext >= 3 || cites >= 2:
		o.status = StatusPass
	case ext >= 1 || cites >= 1:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(ext >= 3, "Add external links to authoritative sources to support your content claims.")
	return o
}

func checkAuthorExpertise(in *input) outcome {
	schema := anyBlockHas(in.doc, "author")
	bio := authorBioRe.MatchString(in.text)
	metaAuthor := in.doc.Metadata.Author != ""
	o := outcome{description: fmt.Sprintf("Author schema: %s. Author bio: %s. Meta author: %s.", yesNo(schema), yesNo(bio), yesNo(metaAuthor))}
	switch {
	case schema || bio:
		o.status = StatusPass
		return o
	case metaAuthor:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = "Add author information with credentials to establish expertise and trustworthiness."
	return o
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func documentDates(doc *extract.Document) []string {
	var dates []string
	if doc.Metadata.DatePublished != "" {
		dates = append(dates, doc.Metadata.DatePublished)
	}
	if doc.Metadata.DateModified != "" {
		dates = append(dates, doc.Metadata.DateModified)
	}
	for _, sd := range validBlocks(doc) {
		for _, key := range []string{"datePublished", "dateModified"} {
			if v := sd.Field(key); v != "" && v != "present" {
				dates = append(dates, v)
			}
		}
	}
	return dates
}

func checkFreshnessDate(in *input) outcome {
	dates := documentDates(in.doc)
	if len(dates) == 0 {
		return outcome{status: StatusFail, description: "No publication or modification date found.",
			recommendation: "Add datePublished and dateModified to structured data or meta tags."}
	}
	cutoff := in.now.AddDate(0, -12, 0)
	for _, d := range dates {
		t, err := dateparse.ParseAny(d)
		if err == nil && t.After(cutoff) {
			return outcome{status: StatusPass, affected: dates,
				description: "Content has been published or modified within the last 12 months."}
		}
	}
	return outcome{status: StatusWarn, affected: dates,
		description:    "Content may be outdated (no recent date found).",
		recommendation: "Update your content and dateModified to signal freshness to AI models."}
}

func quotable(s string) bool {
	wc := extract.CountWords(s)
	if wc < 8 || wc > 35 || strings.HasSuffix(s, "?") {
		return false
	}
	head := s
	if len(head) > 5 {
		head = head[:5]
	}
	return !firstPersonRe.MatchString(head) && assertiveVerbRe.MatchString(s)
}

func checkQuotable(in *input) outcome {
	var found []string
	for _, s := range in.sentences {
		if quotable(s) {
			found = append(found, s)
		}
	}
	return outcome{
		status:         grade(len(found), 5, 2),
		description:    fmt.Sprintf("Found %d quotable passage(s) suitable for AI citation.", len(found)),
		recommendation: unless(len(found) >= 5, "Include concise, self-contained statements that AI models can easily quote or cite."),
		affected:       limit(found, 3),
	}
}

func checkDefinitions(in *input) outcome {
	n := countMatching(in.text, definitionTextRe)
	return outcome{
		status:         grade(n, 3, 1),
		description:    fmt.Sprintf("Found %d definition pattern(s).", n),
		recommendation: unless(n >= 3, `Explicitly define key terms using "X is..." or "X refers to..." patterns.`),
	}
}

func checkComparisons(in *input) outcome {
	n := countMatching(in.text, comparisonPatterns)
	return outcome{
		status:         grade(n, 2, 1),
		description:    fmt.Sprintf("Found %d comparison/contrast pattern(s).", n),
		recommendation: unless(n >= 2, "Use comparison structures (vs., unlike, compared to) when relevant to help AI understand relationships."),
	}
}

func checkSteps(in *input) outcome {
	ordered := in.doc.Lists.Ordered
	steps := matchesAny(in.text, stepPatterns)
	detected := "not detected"
	if steps {
		detected = "detected"
	}
	o := outcome{description: fmt.Sprintf("Ordered lists: %d. Step patterns: %s.", ordered, detected)}
	if ordered > 0 || steps {
		o.status = StatusPass
		return o
	}
	o.status = StatusWarn
	o.recommendation = "Use numbered lists or step-by-step instructions where applicable."
	return o
}

func checkDataPoints(in *input) outcome {
	n := 0
	for _, p := range dataPointPatterns {
		n += len(p.FindAllStringIndex(in.text, -1))
	}
	return outcome{
		status:         grade(n, 3, 1),
		description:    fmt.Sprintf("Found %d data point(s) or statistics.", n),
		recommendation: unless(n >= 3, "Include specific data points, statistics, or metrics to enhance credibility."),
	}
}

func checkInternalLinks(in *input) outcome {
	var internal, vague []string
	descriptive := 0
	for _, l := range in.doc.Links {
		if !l.Internal {
			continue
		}
		internal = append(internal, l.Href)
		if l.Descriptive {
			descriptive++
			continue
		}
		text := l.Text
		if text == "" {
			text = "(empty)"
		}
		vague = append(vague, text)
	}
	if len(internal) == 0 {
		return outcome{status: StatusWarn, description: "No internal links found.",
			recommendation: "Add internal links to related content with descriptive anchor text."}
	}
	ratio := (descriptive*100 + len(internal)/2) / len(internal)
	o := outcome{
		description: fmt.Sprintf("%d%% of internal links have descriptive anchor text (%d/%d).", ratio, descriptive, len(internal)),
		affected:    limit(vague, 5),
	}
	switch {
	case ratio >= 80:
		o.status = StatusPass
	case ratio >= 50:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(ratio >= 80, `Replace generic anchor text ("click here", "read more") with descriptive text.`)
	return o
}
