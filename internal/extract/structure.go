package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	nonDescriptiveAnchors = map[string]bool{
		"click here": true, "read more": true, "learn more": true, "here": true, "link": true,
	}
	landmarkRoles = []string{"main", "navigation", "banner", "contentinfo", "complementary", "search", "form", "region"}
)

func extractStructure(doc *goquery.Document, out *Document, base *url.URL) {
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level, _ := strconv.Atoi(strings.TrimPrefix(goquery.NodeName(s), "h"))
		out.Headings = append(out.Headings, Heading{
			Level: level,
			Text:  CollapseWhitespace(s.Text()),
			ID:    s.AttrOr("id", ""),
		})
	})

	has := func(sel string) bool { return doc.Find(sel).Length() > 0 }
	out.Semantic = Semantic{
		Main:    has("main"),
		Article: has("article"),
		Section: has("section"),
		Aside:   has("aside"),
		Nav:     has("nav"),
		Header:  has("header"),
		Footer:  has("footer"),
		Figure:  has("figure"),
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt, hasAlt := s.Attr("alt")
		out.Images = append(out.Images, Image{Src: s.AttrOr("src", ""), Alt: alt, HasAlt: hasAlt})
	})

	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		out.Tables = append(out.Tables, Table{
			HasThead: s.Find("thead").Length() > 0,
			HasTh:    s.Find("th").Length() > 0,
			Rows:     s.Find("tr").Length(),
		})
	})

	out.Lists = Lists{
		Ordered:    doc.Find("ol").Length(),
		Unordered:  doc.Find("ul").Length(),
		Definition: doc.Find("dl").Length(),
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		text := CollapseWhitespace(s.Text())
		out.Links = append(out.Links, Link{
			Href:        href,
			Text:        text,
			Internal:    isInternalLink(href, base),
			Descriptive: len(text) > 3 && !nonDescriptiveAnchors[strings.ToLower(text)],
			Rel:         s.AttrOr("rel", ""),
		})
	})

	for _, role := range landmarkRoles {
		if has(`[role="` + role + `"]`) {
			out.ARIALandmarks = append(out.ARIALandmarks, role)
		}
	}
}

// isInternalLink treats relative references as internal, and absolute ones
// as internal only when they point at the page's own host.
func isInternalLink(href string, base *url.URL) bool {
	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		return true
	}
	if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "./") || strings.HasPrefix(href, "../") {
		return true
	}
	if base == nil || base.Host == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Hostname(), base.Hostname())
}
