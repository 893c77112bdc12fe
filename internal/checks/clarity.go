package checks

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"readability-backend/internal/extract"
)

var (
	questionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bwhat\s+is\b`),
		regexp.MustCompile(`(?i)\bhow\s+to\b`),
		regexp.MustCompile(`(?i)\bwhy\s+(do|does|is|are|should)\b`),
		regexp.MustCompile(`(?i)\bwhen\s+(should|do|does|is|are)\b`),
		regexp.MustCompile(`\?\s*$`),
	}
	definitionSentencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bis\s+(a|an|the)\b`),
		regexp.MustCompile(`(?i)\brefers\s+to\b`),
		regexp.MustCompile(`(?i)\bmeans\b`),
		regexp.MustCompile(`(?i)\bdefined\s+as\b`),
		regexp.MustCompile(`(?i)\bis\s+when\b`),
	}
	conclusionPhrases = []string{"conclusion", "summary", "final thoughts", "key takeaways", "in conclusion", "to summarize", "wrapping up", "bottom line"}
	properNounRe      = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	claimPatterns     = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\baccording to\b`),
		regexp.MustCompile(`(?i)\bresearch shows\b`),
		regexp.MustCompile(`(?i)\bstudies\s+(show|indicate|suggest)\b`),
		regexp.MustCompile(`(?i)\breported\b`),
		regexp.MustCompile(`(?i)\bfound that\b`),
		regexp.MustCompile(`(?i)\bdata\s+(shows|suggests|indicates)\b`),
	}
	monthDateRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},?\s*\d{4}\b`)
)

func clarityChecks() []check {
	return []check{
		{Definition{"CC-01", ContentClarity, SeverityHigh, "Flesch Reading Ease"}, checkFlesch},
		{Definition{"CC-02", ContentClarity, SeverityMedium, "Average sentence length"}, checkSentenceLength},
		{Definition{"CC-03", ContentClarity, SeverityLow, "Passive voice usage"}, checkPassiveVoice},
		{Definition{"CC-04", ContentClarity, SeverityMedium, "Jargon/acronym density"}, checkJargon},
		{Definition{"CC-05", ContentClarity, SeverityHigh, "Answer-ready content"}, checkAnswerReady},
		{Definition{"CC-06", ContentClarity, SeverityMedium, "Topic sentence presence"}, checkTopicSentences},
		{Definition{"CC-07", ContentClarity, SeverityLow, "Conclusion/summary present"}, checkConclusion},
		{Definition{"CC-08", ContentClarity, SeverityMedium, "Entity clarity"}, checkEntityClarity},
		{Definition{"CC-09", ContentClarity, SeverityMedium, "Factual claim attribution"}, checkClaimAttribution},
		{Definition{"CC-10", ContentClarity, SeverityLow, "Content freshness language"}, checkFreshnessLanguage},
	}
}

func checkFlesch(in *input) outcome {
	score, ok := extract.FleschReadingEase(in.text, in.doc.Language)
	if !ok {
		return outcome{status: StatusNA, description: "Flesch Reading Ease applies to English content only."}
	}
	o := outcome{description: fmt.Sprintf("Flesch Reading Ease score: %.1f.", score)}
	switch {
	case score >= 60:
		o.status = StatusPass
	case score >= 40:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(score >= 60, "Simplify language: use shorter sentences and common words to reach a score of 60 or higher.")
	return o
}

func checkSentenceLength(in *input) outcome {
	avg := extract.AverageSentenceLength(in.text)
	o := outcome{description: fmt.Sprintf("Average sentence length: %.1f words.", avg)}
	switch {
	case avg <= 20:
		o.status = StatusPass
	case avg <= 25:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(avg <= 20, "Keep sentences under 20 words on average. Split long sentences.")
	return o
}

func checkPassiveVoice(in *input) outcome {
	passive, total, pct := extract.PassiveVoice(in.text)
	o := outcome{
		description: fmt.Sprintf("Passive voice: %.1f%% (%d of %d sentences).", pct, len(passive), total),
		affected:    limit(passive, 3),
	}
	switch {
	case pct < 15:
		o.status = StatusPass
	case pct < 25:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(pct < 15, "Rewrite passive sentences in active voice for directness.")
	return o
}

func checkJargon(in *input) outcome {
	acronyms, density := extract.UnexplainedAcronyms(in.text)
	o := outcome{
		description: fmt.Sprintf("Jargon density: %.2f%%. Found %d unexplained acronym(s).", density, len(acronyms)),
		affected:    limit(acronyms, 5),
	}
	switch {
	case density < 5:
		o.status = StatusPass
	case density < 10:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(density < 5, "Define acronyms on first use and minimize technical jargon for broader accessibility.")
	return o
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func countMatching(s string, patterns []*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(s) {
			n++
		}
	}
	return n
}

func checkAnswerReady(in *input) outcome {
	questions, definitions := 0, 0
	for _, s := range in.sentences {
		if matchesAny(s, questionPatterns) {
			questions++
		}
		if matchesAny(s, definitionSentencePatterns) {
			definitions++
		}
	}
	n := questions + definitions
	return outcome{
		status:         grade(n, 3, 1),
		description:    fmt.Sprintf("Found %d Q&A pattern(s) and %d definition pattern(s).", questions, definitions),
		recommendation: unless(n >= 3, `Include direct answers to common questions. Use "What is...", "How to..." patterns that AI models can easily extract.`),
	}
}

func checkTopicSentences(in *input) outcome {
	sections := 0
	for _, h := range in.doc.Headings {
		if h.Level >= 2 {
			sections++
		}
	}
	if sections == 0 {
		return outcome{status: StatusWarn, description: "No section headings found to evaluate topic sentences.",
			recommendation: "Add section headings followed by clear topic sentences."}
	}
	if len(in.doc.Paragraphs) >= sections {
		return outcome{status: StatusPass, description: "Sections appear to have topic sentences."}
	}
	return outcome{status: StatusWarn, description: "Some sections may lack clear topic sentences.",
		recommendation: "Begin each section with a clear topic sentence that summarizes the section content."}
}

func checkConclusion(in *input) outcome {
	for _, phrase := range conclusionPhrases {
		if strings.Contains(in.lower, phrase) {
			return outcome{status: StatusPass, description: "Content includes a conclusion or summary section."}
		}
		for _, h := range in.doc.Headings {
			if strings.Contains(strings.ToLower(h.Text), phrase) {
				return outcome{status: StatusPass, description: "Content includes a conclusion or summary section."}
			}
		}
	}
	return outcome{status: StatusWarn, description: "No clear conclusion or summary section detected.",
		recommendation: "Add a conclusion or summary section to wrap up key points."}
}

func checkEntityClarity(in *input) outcome {
	counts := map[string]int{}
	for _, m := range properNounRe.FindAllString(in.text, -1) {
		if len(m) > 2 {
			counts[m]++
		}
	}
	var frequent []string
	for e, c := range counts {
		if c >= 3 {
			frequent = append(frequent, e)
		}
	}
	sort.Strings(frequent)
	firstThird := in.text[:len(in.text)/3]
	var late []string
	for _, e := range frequent {
		if !strings.Contains(firstThird, e) {
			late = append(late, e)
		}
	}
	o := outcome{
		description: fmt.Sprintf("Found %d key entities. %d not introduced early in the content.", len(frequent), len(late)),
		affected:    limit(late, 5),
	}
	switch {
	case len(late) == 0:
		o.status = StatusPass
	case len(late) <= 2:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(len(late) == 0, "Introduce key entities early in the content with clear definitions or context.")
	return o
}

func externalLinks(in *input, httpOnly bool) int {
	n := 0
	for _, l := range in.doc.Links {
		if l.Internal {
			continue
		}
		if httpOnly && !strings.HasPrefix(strings.ToLower(l.Href), "http") {
			continue
		}
		n++
	}
	return n
}

func checkClaimAttribution(in *input) outcome {
	ext := externalLinks(in, false)
	claims := countMatching(in.text, claimPatterns)
	o := outcome{description: fmt.Sprintf("Found %d external link(s) and %d attribution pattern(s).", ext, claims)}
	switch {
	case ext >= 2 || claims >= 2:
		o.status = StatusPass
	case ext >= 1 || claims >= 1:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(ext >= 2, "Add citations and links to external sources to support factual claims.")
	return o
}

func checkFreshnessLanguage(in *input) outcome {
	year := in.now.Year()
	phrases := []string{"updated", "last modified", "as of", "current", strconv.Itoa(year), strconv.Itoa(year - 1)}
	inText := false
	for _, p := range phrases {
		if strings.Contains(in.lower, p) {
			inText = true
			break
		}
	}
	inText = inText || monthDateRe.MatchString(in.text)
	hasMeta := in.doc.Metadata.DatePublished != "" || in.doc.Metadata.DateModified != ""

	switch {
	case inText:
		return outcome{status: StatusPass, description: "Content includes freshness indicators."}
	case hasMeta:
		return outcome{status: StatusPass, description: "Date metadata present but no in-content freshness language.",
			recommendation: `Add date references or "last updated" language to signal content freshness.`}
	default:
		return outcome{status: StatusWarn, description: "No freshness indicators found.",
			recommendation: `Add date references or "last updated" language to signal content freshness.`}
	}
}
