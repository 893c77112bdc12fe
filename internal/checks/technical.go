package checks

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const maxPageBytes = 2 << 20

var restrictiveTokens = []string{"noindex", "none", "nofollow"}

func technicalChecks() []check {
	return []check{
		{Definition{"TA-01", TechnicalAccess, SeverityCritical, "Server-side rendering"}, checkServerRendered},
		{Definition{"TA-02", TechnicalAccess, SeverityCritical, "Robots & AI crawler directives"}, checkRobotsDirectives},
		{Definition{"TA-03", TechnicalAccess, SeverityHigh, "AI crawler meta rules"}, checkCrawlerRules},
		{Definition{"TA-04", TechnicalAccess, SeverityMedium, "Canonical URL set"}, checkCanonical},
		{Definition{"TA-05", TechnicalAccess, SeverityMedium, "Page load weight"}, checkPageWeight},
		{Definition{"TA-06", TechnicalAccess, SeverityLow, "Inline CSS/JS minimal"}, checkInlineAssets},
		{Definition{"TA-07", TechnicalAccess, SeverityMedium, "Content-to-code ratio"}, checkContentToCode},
		{Definition{"TA-08", TechnicalAccess, SeverityHigh, "No content behind interactions"}, checkHiddenContent},
		{Definition{"TA-09", TechnicalAccess, SeverityMedium, "Image alt text coverage"}, checkAltText},
		{Definition{"TA-10", TechnicalAccess, SeverityMedium, "Structured data valid"}, checkStructuredDataValid},
	}
}

func checkServerRendered(in *input) outcome {
	wc := in.doc.WordCount
	o := outcome{}
	switch {
	case wc > 100:
		o.status = StatusPass
		o.description = fmt.Sprintf("Content is present in initial HTML (%d words detected).", wc)
		return o
	case wc > 50:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.description = fmt.Sprintf("Only %d words found in HTML. Content may be JavaScript-rendered.", wc)
	o.recommendation = "Ensure content is server-side rendered or pre-rendered so AI crawlers can access it without JavaScript."
	return o
}

func containsAny(s string, tokens ...string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func sortedDirectiveBots(in *input) []string {
	bots := make([]string, 0, len(in.doc.Metadata.AIDirectives))
	for bot := range in.doc.Metadata.AIDirectives {
		bots = append(bots, bot)
	}
	sort.Strings(bots)
	return bots
}

func checkRobotsDirectives(in *input) outcome {
	meta := in.doc.Metadata
	robots := strings.ToLower(meta.Robots)
	var issues []string
	if strings.Contains(robots, "noindex") {
		issues = append(issues, "noindex directive found in robots meta")
	}
	if strings.Contains(robots, "nofollow") {
		issues = append(issues, "nofollow directive found in robots meta")
	}
	if meta.RobotsNoAI {
		issues = append(issues, "noai directive blocks AI access")
	}
	for _, bot := range sortedDirectiveBots(in) {
		content := meta.AIDirectives[bot]
		if containsAny(strings.ToLower(content), restrictiveTokens...) {
			issues = append(issues, fmt.Sprintf("%s restricted: %s", bot, content))
		}
	}
	if len(issues) == 0 {
		return outcome{status: StatusPass, description: "No restrictive robots or AI crawler directives found."}
	}
	return outcome{status: StatusFail,
		description:    fmt.Sprintf("Found %d restrictive directive(s).", len(issues)),
		recommendation: "Review robots directives. Remove noindex/noai restrictions if you want AI models to access your content.",
		affected:       issues}
}

func checkCrawlerRules(in *input) outcome {
	bots := sortedDirectiveBots(in)
	if len(bots) == 0 {
		return outcome{status: StatusPass,
			description:    "No AI-specific crawler directives found in meta tags.",
			recommendation: "Verify your robots.txt file allows AI crawlers if you want your content to be discoverable by AI."}
	}
	status := StatusWarn
	for _, bot := range bots {
		if containsAny(strings.ToLower(in.doc.Metadata.AIDirectives[bot]), "noindex", "none", "nofollow", "disallow") {
			status = StatusFail
			break
		}
	}
	return outcome{status: status,
		description:    fmt.Sprintf("Found %d AI-specific meta directive(s). Review to ensure they are not overly restrictive.", len(bots)),
		recommendation: "Review AI crawler directives. Verify your robots.txt allows GPTBot, Google-Extended, ClaudeBot, and other AI crawlers.",
		affected:       bots}
}

func checkCanonical(in *input) outcome {
	canonical := in.doc.Metadata.Canonical
	if canonical == "" {
		return outcome{status: StatusWarn, description: "No canonical URL found.",
			recommendation: `Add a <link rel="canonical"> tag to prevent duplicate content issues.`}
	}
	u, err := url.Parse(canonical)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return outcome{status: StatusPass, description: "Canonical URL: " + canonical}
	}
	return outcome{status: StatusFail,
		description:    "Canonical URL is not a valid URL: " + canonical,
		recommendation: "The canonical URL must be a fully qualified URL starting with http:// or https://.",
		affected:       []string{canonical}}
}

func checkPageWeight(in *input) outcome {
	bytes := in.doc.TotalBytes
	kb := (bytes + 512) / 1024
	size := fmt.Sprintf("%dKB", kb)
	if kb >= 1024 {
		size = fmt.Sprintf("%.2fMB", float64(bytes)/(1<<20))
	}
	if bytes < maxPageBytes {
		return outcome{status: StatusPass, description: "HTML size: " + size + "."}
	}
	return outcome{status: StatusFail, description: "HTML size: " + size + ".",
		recommendation: "Reduce HTML size below 2MB. Remove unnecessary inline assets and optimize content delivery."}
}

func checkInlineAssets(in *input) outcome {
	pct := in.doc.InlinePercentage
	o := outcome{description: fmt.Sprintf("Inline CSS/JS: %.2f%% of total page size.", pct)}
	switch {
	case pct < 20:
		o.status = StatusPass
	case pct < 35:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(pct < 20, "Move inline CSS and JavaScript to external files to improve content-to-code ratio.")
	return o
}

func checkContentToCode(in *input) outcome {
	ratio := in.doc.ContentToCodeRatio
	o := outcome{description: fmt.Sprintf("Content-to-code ratio: %.2f%%.", ratio)}
	switch {
	case ratio > 25:
		o.status = StatusPass
	case ratio > 15:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(ratio > 25, "Increase the ratio of visible content to HTML code. Remove unnecessary markup and inline assets.")
	return o
}

func checkHiddenContent(in *input) outcome {
	found := in.doc.HiddenIndicators
	o := outcome{affected: found}
	switch {
	case len(found) == 0:
		o.status = StatusPass
		o.description = "Content appears to be directly accessible in the HTML without requiring user interaction."
		return o
	case len(found) <= 2:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.description = fmt.Sprintf("Found %d pattern(s) that may hide content from AI crawlers.", len(found))
	o.recommendation = "Ensure important content is not hidden behind tabs, accordions, or CSS display:none. AI crawlers may not trigger JavaScript interactions."
	return o
}

func checkAltText(in *input) outcome {
	images := in.doc.Images
	if len(images) == 0 {
		return outcome{status: StatusNA, description: "No images found on the page."}
	}
	var missing []string
	for _, img := range images {
		if !img.HasAlt || strings.TrimSpace(img.Alt) == "" {
			missing = append(missing, img.Src)
		}
	}
	coverage := float64(len(images)-len(missing)) / float64(len(images)) * 100
	o := outcome{
		description: fmt.Sprintf("%.0f%% of images have alt text (%d/%d).", coverage, len(images)-len(missing), len(images)),
		affected:    limit(missing, 5),
	}
	switch {
	case coverage > 90:
		o.status = StatusPass
	case coverage > 70:
		o.status = StatusWarn
	default:
		o.status = StatusFail
	}
	o.recommendation = unless(coverage > 90, "Add descriptive alt text to all meaningful images.")
	return o
}

func checkStructuredDataValid(in *input) outcome {
	blocks := in.doc.StructuredData
	if len(blocks) == 0 {
		return outcome{status: StatusNA, description: "No JSON-LD structured data found."}
	}
	var errs []string
	for i, sd := range blocks {
		if !sd.Valid {
			errs = append(errs, fmt.Sprintf("block %d: %s", i+1, sd.Error))
		}
	}
	if len(errs) == 0 {
		return outcome{status: StatusPass, description: fmt.Sprintf("All %d JSON-LD block(s) are valid JSON.", len(blocks))}
	}
	return outcome{status: StatusFail,
		description:    fmt.Sprintf("%d of %d JSON-LD block(s) failed to parse.", len(errs), len(blocks)),
		recommendation: "Fix JSON syntax errors in structured data blocks.",
		affected:       errs}
}
