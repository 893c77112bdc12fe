package extract

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	// MaxHTMLBytes bounds the input accepted by Extract.
	MaxHTMLBytes = 10 << 20
	// MinHTMLChars is the smallest input worth analysing.
	MinHTMLChars = 50
)

var (
	anyTagRe = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

	strippedSelectors = []string{
		"script", "style", "noscript", "svg", "iframe", "template",
		`[style*="display:none"]`, `[style*="display: none"]`,
		`[style*="visibility:hidden"]`, `[style*="visibility: hidden"]`,
		`[aria-hidden="true"]`,
		`[class*="cookie"]`, `[id*="cookie"]`, `[class*="consent"]`, `[id*="consent"]`,
		`[class*="gdpr"]`, `[id*="gdpr"]`, `[class*="privacy-banner"]`, `[id*="privacy-banner"]`,
		".cc-banner", "#onetrust-banner-sdk", ".cookie-notice", "#cookie-law-info-bar",
		"header", "footer", "nav", "aside",
		`[role="navigation"]`, `[role="banner"]`, `[role="contentinfo"]`,
	}

	hiddenPatterns = []struct {
		re    *regexp.Regexp
		label string
	}{
		{regexp.MustCompile(`(?i)display:\s*none`), "display:none CSS rules"},
		{regexp.MustCompile(`(?i)visibility:\s*hidden`), "visibility:hidden CSS rules"},
		{regexp.MustCompile(`(?i)aria-hidden="true"`), `aria-hidden="true" elements`},
		{regexp.MustCompile(`(?i)class="[^"]*collapse[^"]*"`), "collapsed/accordion elements"},
		{regexp.MustCompile(`(?i)<details[^>]*>`), "<details> elements (expandable sections)"},
	}
)

// Validate checks that raw looks like an HTML document worth analysing.
func Validate(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ExtractionError{Reason: "HTML content is required"}
	}
	if len(raw) > MaxHTMLBytes {
		return &ExtractionError{Reason: "HTML content exceeds 10 MB"}
	}
	if len(raw) < MinHTMLChars {
		return &ExtractionError{Reason: "HTML content is too short for meaningful analysis (minimum 50 characters)"}
	}
	lower := strings.ToLower(raw)
	for _, marker := range []string{"<html", "<body", "<head", "<!doctype"} {
		if strings.Contains(lower, marker) {
			return nil
		}
	}
	if anyTagRe.MatchString(raw) {
		return nil
	}
	return &ExtractionError{Reason: "content does not appear to contain valid HTML"}
}

// Extract converts raw HTML into a Document. sourceURL may be empty for
// uploads and pasted content.
func Extract(ctx context.Context, raw string, sourceURL string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw = strings.TrimPrefix(raw, "\ufeff")
	if err := Validate(raw); err != nil {
		return nil, err
	}

	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, &ExtractionError{Reason: err.Error()}
	}

	var base *url.URL
	if sourceURL != "" {
		base, _ = url.Parse(sourceURL)
	}

	out := &Document{SourceURL: sourceURL, RawHTML: raw, TotalBytes: len(raw)}
	out.Metadata, out.StructuredData, out.Language = extractHead(root)

	full := goquery.NewDocumentFromNode(root)
	extractStructure(full, out, base)
	inline := inlineBytes(full)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A second tree is cleaned of chrome and hidden nodes for text analysis.
	clean, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, &ExtractionError{Reason: err.Error()}
	}
	for _, sel := range strippedSelectors {
		clean.Find(sel).Remove()
	}
	out.Text = mainText(clean, raw, base)
	clean.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := CollapseWhitespace(s.Text())
		if wc := CountWords(text); wc > 0 {
			out.Paragraphs = append(out.Paragraphs, Paragraph{Text: text, WordCount: wc})
		}
	})
	out.WordCount = CountWords(out.Text)

	if out.TotalBytes > 0 {
		out.ContentToCodeRatio = round2(float64(len(out.Text)) / float64(out.TotalBytes) * 100)
		out.InlinePercentage = round2(float64(inline) / float64(out.TotalBytes) * 100)
	}
	out.HiddenIndicators = hiddenIndicators(raw)

	if out.Metadata.Title == "" {
		for _, h := range out.Headings {
			if h.Level == 1 && h.Text != "" {
				out.Metadata.Title = h.Text
				break
			}
		}
	}
	return out, nil
}

// mainText prefers explicit main-content containers, then the readability
// article, then the whole cleaned body.
func mainText(clean *goquery.Document, raw string, base *url.URL) string {
	for _, sel := range []string{"main", "article", `[role="main"]`} {
		if s := clean.Find(sel).First(); s.Length() > 0 {
			if text := CollapseWhitespace(blockText(s)); text != "" {
				return text
			}
		}
	}
	pageURL := base
	if pageURL == nil {
		pageURL = &url.URL{}
	}
	if article, err := readability.FromReader(strings.NewReader(raw), pageURL); err == nil {
		if text := CollapseWhitespace(article.TextContent); text != "" {
			return text
		}
	}
	return CollapseWhitespace(blockText(clean.Find("body")))
}

// blockText joins text nodes with spaces so adjacent block elements do not
// fuse their words together.
func blockText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		var f func(*html.Node)
		f = func(n *html.Node) {
			if n.Type == html.TextNode {
				b.WriteString(n.Data)
				b.WriteByte(' ')
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				f(c)
			}
		}
		f(n)
	}
	return b.String()
}

func inlineBytes(doc *goquery.Document) int {
	total := 0
	doc.Find("style, script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if strings.EqualFold(s.AttrOr("type", ""), "application/ld+json") {
			return
		}
		total += len(s.Text())
	})
	return total
}

func hiddenIndicators(raw string) []string {
	var out []string
	for _, p := range hiddenPatterns {
		if n := len(p.re.FindAllStringIndex(raw, -1)); n > 0 {
			out = append(out, fmt.Sprintf("%d instance(s) of %s", n, p.label))
		}
	}
	return out
}
