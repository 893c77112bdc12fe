package checks

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	faqContentRe   = regexp.MustCompile(`(?i)\bfaq\b|frequently asked|questions?\s+and\s+answers?`)
	howToContentRe = regexp.MustCompile(`(?i)\bhow\s+to\b|step\s+\d|step-by-step`)
)

func metadataChecks() []check {
	return []check{
		{Definition{"MS-01", MetadataSchema, SeverityHigh, "Title tag present and optimal"}, checkTitleTag},
		{Definition{"MS-02", MetadataSchema, SeverityHigh, "Meta description present and optimal"}, checkMetaDescription},
		{Definition{"MS-03", MetadataSchema, SeverityMedium, "Open Graph tags complete"}, checkOpenGraph},
		{Definition{"MS-04", MetadataSchema, SeverityLow, "Twitter Card tags present"}, checkTwitterCard},
		{Definition{"MS-05", MetadataSchema, SeverityHigh, "JSON-LD structured data present"}, checkJSONLDPresent},
		{Definition{"MS-06", MetadataSchema, SeverityMedium, "Schema.org type appropriate"}, checkSchemaType},
		{Definition{"MS-07", MetadataSchema, SeverityMedium, "Author/publisher marked up"}, checkAuthorPublisher},
		{Definition{"MS-08", MetadataSchema, SeverityMedium, "Date published/modified present"}, checkDatePresent},
		{Definition{"MS-09", MetadataSchema, SeverityLow, "Breadcrumb markup present"}, checkBreadcrumb},
		{Definition{"MS-10", MetadataSchema, SeverityMedium, "FAQ/HowTo schema when applicable"}, checkFAQHowTo},
	}
}

// lengthCheck grades a text field against an optimal character window.
func lengthCheck(value, label, tag string, min, max int) outcome {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return outcome{status: StatusFail, description: fmt.Sprintf("No %s found.", label),
			recommendation: fmt.Sprintf("Add a %s (%d-%d characters).", tag, min, max)}
	}
	o := outcome{affected: []string{value}}
	switch {
	case n < min:
		o.status = StatusWarn
		o.description = fmt.Sprintf("%s: %d characters. Too short.", label, n)
		o.recommendation = fmt.Sprintf("Extend your %s to at least %d characters.", label, min)
	case n > max:
		o.status = StatusWarn
		o.description = fmt.Sprintf("%s: %d characters. Too long.", label, n)
		o.recommendation = fmt.Sprintf("Shorten your %s to %d characters or fewer.", label, max)
	default:
		o.status = StatusPass
		o.description = fmt.Sprintf("%s: %d characters. Optimal length.", label, n)
	}
	return o
}

func checkTitleTag(in *input) outcome {
	return lengthCheck(in.doc.Metadata.Title, "title", "descriptive <title> tag", 30, 60)
}

func checkMetaDescription(in *input) outcome {
	return lengthCheck(in.doc.Metadata.Description, "meta description", "meta description", 120, 160)
}

func checkOpenGraph(in *input) outcome {
	m := in.doc.Metadata
	tags := []struct {
		label string
		value string
	}{{"og:title", m.OGTitle}, {"og:description", m.OGDescription}, {"og:image", m.OGImage}, {"og:url", m.OGURL}}
	var missing []string
	for _, t := range tags {
		if t.value == "" {
			missing = append(missing, t.label)
		}
	}
	present := len(tags) - len(missing)
	o := outcome{description: fmt.Sprintf("%d/%d Open Graph tags present.", present, len(tags)), affected: missing}
	switch {
	case len(missing) == 0:
		o.status = StatusPass
	case present >= 2:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	if len(missing) > 0 {
		o.description += " Missing: " + strings.Join(missing, ", ") + "."
		o.recommendation = "Add missing OG tags: " + strings.Join(missing, ", ") + "."
	}
	return o
}

func checkTwitterCard(in *input) outcome {
	m := in.doc.Metadata
	var missing []string
	if m.TwitterCard == "" {
		missing = append(missing, "twitter:card")
	}
	if m.TwitterTitle == "" {
		missing = append(missing, "twitter:title")
	}
	if m.TwitterDescription == "" {
		missing = append(missing, "twitter:description")
	}
	present := 3 - len(missing)
	return outcome{
		status:         grade(present, 3, 1),
		description:    fmt.Sprintf("%d/3 Twitter Card tags present.", present),
		recommendation: unless(present == 3, "Add missing Twitter Card meta tags for better social sharing."),
		affected:       missing,
	}
}

func checkJSONLDPresent(in *input) outcome {
	valid := len(validBlocks(in.doc))
	if valid > 0 {
		return outcome{status: StatusPass, description: fmt.Sprintf("Found %d valid JSON-LD block(s).", valid)}
	}
	return outcome{status: StatusFail, description: "No valid JSON-LD structured data found.",
		recommendation: "Add JSON-LD structured data to help search engines and AI models understand your content."}
}

func checkSchemaType(in *input) outcome {
	blocks := validBlocks(in.doc)
	if len(blocks) == 0 {
		return outcome{status: StatusNA, description: "No structured data to evaluate."}
	}
	var types []string
	unknown := false
	for _, sd := range blocks {
		for _, t := range sd.Types() {
			types = append(types, t)
			if t == "Unknown" {
				unknown = true
			}
		}
	}
	if len(types) > 0 && !unknown {
		return outcome{status: StatusPass, description: "Schema type(s): " + strings.Join(types, ", ") + ".", affected: types}
	}
	return outcome{status: StatusWarn, description: "Schema type(s): " + strings.Join(types, ", ") + ".",
		recommendation: "Ensure all structured data blocks have a valid @type property.", affected: types}
}

func checkAuthorPublisher(in *input) outcome {
	author := anyBlockHas(in.doc, "author", "creator") || in.doc.Metadata.Author != ""
	publisher := anyBlockHas(in.doc, "publisher")
	var missing []string
	if !author {
		missing = append(missing, "author")
	}
	if !publisher {
		missing = append(missing, "publisher")
	}
	o := outcome{affected: missing,
		description: fmt.Sprintf("Author: %s. Publisher: %s.", presence(author), presence(publisher))}
	switch {
	case author && publisher:
		o.status = StatusPass
	case author || publisher:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	switch {
	case !author:
		o.recommendation = "Add author information in structured data or meta tags."
	case !publisher:
		o.recommendation = "Add publisher information in structured data."
	}
	return o
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}

func checkDatePresent(in *input) outcome {
	m := in.doc.Metadata
	published := anyBlockHas(in.doc, "datePublished") || m.DatePublished != ""
	modified := anyBlockHas(in.doc, "dateModified") || m.DateModified != ""
	desc := fmt.Sprintf("datePublished: %s. dateModified: %s.", presence(published), presence(modified))
	if published || modified {
		return outcome{status: StatusPass, description: desc}
	}
	return outcome{status: StatusFail, description: desc,
		recommendation: "Add datePublished and dateModified to your structured data."}
}

func checkBreadcrumb(in *input) outcome {
	if anyBlockOfType(in.doc, "BreadcrumbList") {
		return outcome{status: StatusPass, description: "BreadcrumbList schema detected."}
	}
	return outcome{status: StatusWarn, description: "No breadcrumb markup found.",
		recommendation: "Add BreadcrumbList structured data to improve navigation context."}
}

func checkFAQHowTo(in *input) outcome {
	faq := faqContentRe.MatchString(in.text)
	howTo := howToContentRe.MatchString(in.text)
	if !faq && !howTo {
		return outcome{status: StatusNA, description: "Content does not appear to contain FAQ or HowTo patterns."}
	}
	var issues []string
	if faq && !anyBlockOfType(in.doc, "FAQPage") {
		issues = append(issues, "FAQ content detected but no FAQPage schema")
	}
	if howTo && !anyBlockOfType(in.doc, "HowTo") {
		issues = append(issues, "HowTo content detected but no HowTo schema")
	}
	if len(issues) == 0 {
		return outcome{status: StatusPass, description: "Appropriate schema markup found for content type."}
	}
	return outcome{status: StatusWarn,
		description:    strings.Join(issues, ". ") + ".",
		recommendation: "Add FAQPage or HowTo schema markup to match your content structure.",
		affected:       issues}
}
