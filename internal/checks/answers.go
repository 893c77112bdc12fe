package checks

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"readability-backend/internal/extract"
)

var (
	statisticRe      = regexp.MustCompile(`(?i)\d+(\.\d+)?\s*(%|percent|million|billion|thousand|usd|\$|€|£|kg|mb|gb|ms|hours|days|years|users|customers|companies)`)
	yearRe           = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	monthDayRe       = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}`)
	attributionRe    = regexp.MustCompile(`(?i)\b(according to|cited by|research by|study by|published in|reported by|survey of|data from)\b`)
	namedClaimRe     = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s[A-Z][a-z]+)*\s+(announced|released|reported|found|discovered|showed|developed|created|launched|introduced)\b`)
	questionLeadRe   = regexp.MustCompile(`(?i)^(what|how|why|when|where|who|which|can|does|is|are|do)\b`)
	questionSentence = regexp.MustCompile(`[^.!?]*\?`)
)

// minFactDensityWords is the shortest body fact density is measured on.
const minFactDensityWords = 100

// factDensityCheck counts verifiable facts per 1000 words. It belongs to the
// clarity category.
func factDensityCheck() check {
	return check{Definition{"CC-11", ContentClarity, SeverityMedium, "Fact density"}, checkFactDensity}
}

// answerChecks target answer-box style extraction by search assistants. They
// belong to the AI signals category.
func answerChecks() []check {
	return []check{
		{Definition{"AIO-01", AISignals, SeverityHigh, "Featured snippet structure"}, checkSnippetStructure},
		{Definition{"AIO-02", AISignals, SeverityMedium, "FAQ schema"}, checkFAQSchema},
		{Definition{"AIO-03", AISignals, SeverityMedium, "Common question coverage"}, checkQuestionCoverage},
		{Definition{"AIO-04", AISignals, SeverityMedium, "Concise answer paragraphs"}, checkConciseParagraphs},
		{Definition{"AIO-05", AISignals, SeverityLow, "Knowledge panel readiness"}, checkKnowledgePanel},
	}
}

type factCounts struct {
	statistics, dates, attributions, claims int
}

func (f factCounts) total() int {
	return f.statistics + f.dates + f.attributions + f.claims
}

func countFacts(text string) factCounts {
	return factCounts{
		statistics:   len(statisticRe.FindAllString(text, -1)),
		dates:        len(yearRe.FindAllString(text, -1)) + len(monthDayRe.FindAllString(text, -1)),
		attributions: len(attributionRe.FindAllString(text, -1)),
		claims:       len(namedClaimRe.FindAllString(text, -1)),
	}
}

// factDensity is facts per 1000 words, rounded to one decimal.
func factDensity(facts, words int) float64 {
	if words <= 0 {
		return 0
	}
	return math.Round(float64(facts)/float64(words)*10000) / 10
}

func checkFactDensity(in *input) outcome {
	words := in.doc.WordCount
	if words == 0 {
		words = len(strings.Fields(in.text))
	}
	if words < minFactDensityWords {
		return outcome{
			status:         StatusNA,
			description:    fmt.Sprintf("Too little content to measure fact density (minimum %d words).", minFactDensityWords),
			recommendation: "Add more content to enable fact density analysis.",
		}
	}
	counts := countFacts(in.text)
	density := factDensity(counts.total(), words)
	o := outcome{description: fmt.Sprintf(
		"Fact density: %.1f per 1000 words (%d statistics, %d dates, %d attributions, %d specific claims).",
		density, counts.statistics, counts.dates, counts.attributions, counts.claims)}
	switch {
	case density >= 8:
		o.status = StatusPass
	case density >= 4:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(o.status == StatusPass, "Add specific statistics, dates, citations and named sources. Models prefer content with verifiable claims.")
	return o
}

func paragraphWords(p extract.Paragraph) int {
	if p.WordCount > 0 {
		return p.WordCount
	}
	return len(strings.Fields(p.Text))
}

func checkSnippetStructure(in *input) outcome {
	questions := 0
	for _, h := range in.doc.Headings {
		if questionLeadRe.MatchString(strings.TrimSpace(h.Text)) {
			questions++
		}
	}
	concise := false
	if strings.Contains(in.text, ". ") {
		for _, p := range in.doc.Paragraphs {
			if n := paragraphWords(p); n >= 30 && n <= 80 {
				concise = true
				break
			}
		}
	}
	o := outcome{status: StatusWarn}
	if questions >= 1 && concise {
		o.status = StatusPass
	}
	answers := "No concise answer paragraphs found."
	if concise {
		answers = "Concise answer paragraphs detected."
	}
	o.description = fmt.Sprintf("Found %d question heading(s). %s", questions, answers)
	o.recommendation = unless(o.status == StatusPass, "Phrase H2/H3 headings as questions and answer each in one or two sentences right below it.")
	return o
}

func checkFAQSchema(in *input) outcome {
	if anyBlockOfType(in.doc, "FAQPage") || anyBlockOfType(in.doc, "Question") {
		return outcome{status: StatusPass, description: "FAQPage or Question schema detected."}
	}
	return outcome{
		status:         StatusWarn,
		description:    "No FAQ schema found.",
		recommendation: "Add FAQPage JSON-LD with Question and acceptedAnswer pairs.",
	}
}

func checkQuestionCoverage(in *input) outcome {
	headings := 0
	for _, h := range in.doc.Headings {
		if strings.Contains(h.Text, "?") {
			headings++
		}
	}
	sentences := len(questionSentence.FindAllString(in.text, -1))
	o := outcome{
		status:      StatusWarn,
		description: fmt.Sprintf("Found %d question heading(s) and %d question sentence(s).", headings, sentences),
	}
	if headings >= 2 || sentences >= 3 {
		o.status = StatusPass
		return o
	}
	o.recommendation = "Include three to five question subheadings that match what readers ask about the topic."
	return o
}

func checkConciseParagraphs(in *input) outcome {
	total := len(in.doc.Paragraphs)
	concise := 0
	for _, p := range in.doc.Paragraphs {
		if n := paragraphWords(p); n >= 20 && n <= 60 {
			concise++
		}
	}
	ratio := 0.0
	if total > 0 {
		ratio = float64(concise) / float64(total)
	}
	o := outcome{
		status:      StatusWarn,
		description: fmt.Sprintf("%d of %d paragraphs are concise (%d%%).", concise, total, int(math.Round(ratio*100))),
	}
	if ratio >= 0.3 {
		o.status = StatusPass
		return o
	}
	o.recommendation = "Put key facts in standalone paragraphs of 20 to 60 words that can be quoted on their own."
	return o
}

func checkKnowledgePanel(in *input) outcome {
	entity := anyBlockOfType(in.doc, "Organization") || anyBlockOfType(in.doc, "Person") || anyBlockOfType(in.doc, "LocalBusiness")
	sameAs := anyBlockHas(in.doc, "sameAs")
	o := outcome{description: fmt.Sprintf("Organization or Person schema: %s. sameAs links: %s.", yesNo(entity), yesNo(sameAs))}
	switch {
	case entity && sameAs:
		o.status = StatusPass
		return o
	case entity:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = "Add Organization or Person schema with sameAs links to official profiles."
	return o
}
