package extract

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
)

var aiCrawlers = []string{"GPTBot", "Google-Extended", "PerplexityBot", "ClaudeBot", "anthropic-ai", "CCBot"}

// extractHead walks the parsed tree once and collects head-level signals:
// title, meta tags, canonical and alternate links, JSON-LD blocks and the
// document language.
func extractHead(root *html.Node) (Metadata, []StructuredData, string) {
	meta := Metadata{AIDirectives: map[string]string{}}
	var blocks []StructuredData
	var htmlLang, contentLang, httpEquivType string

	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html":
				if lang := attr(n, "lang"); lang != "" {
					htmlLang = lang
				} else if lang := attr(n, "xml:lang"); lang != "" {
					htmlLang = lang
				}
			case "title":
				if meta.Title == "" {
					meta.Title = CollapseWhitespace(nodeText(n))
				}
			case "meta":
				name := strings.TrimSpace(attr(n, "name"))
				property := strings.ToLower(strings.TrimSpace(attr(n, "property")))
				content := strings.TrimSpace(attr(n, "content"))
				if cs := attr(n, "charset"); cs != "" && meta.Charset == "" {
					meta.Charset = cs
				}
				switch strings.ToLower(attr(n, "http-equiv")) {
				case "content-language":
					contentLang = content
				case "content-type":
					httpEquivType = content
				}
				applyMeta(&meta, strings.ToLower(name), name, property, content)
			case "link":
				rel := strings.ToLower(attr(n, "rel"))
				switch {
				case rel == "canonical" && meta.Canonical == "":
					meta.Canonical = strings.TrimSpace(attr(n, "href"))
				case rel == "alternate" && attr(n, "hreflang") != "":
					meta.Hreflang = append(meta.Hreflang, Hreflang{Lang: attr(n, "hreflang"), Href: attr(n, "href")})
				}
			case "script":
				if strings.EqualFold(strings.TrimSpace(attr(n, "type")), "application/ld+json") {
					blocks = append(blocks, parseJSONLD(nodeText(n)))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(root)

	if meta.Charset == "" {
		if i := strings.Index(strings.ToLower(httpEquivType), "charset="); i >= 0 {
			meta.Charset = strings.TrimSpace(strings.SplitN(httpEquivType[i+len("charset="):], ";", 2)[0])
		}
	}
	if meta.Charset == "" {
		meta.Charset = "UTF-8"
	}
	if strings.Contains(strings.ToLower(meta.Robots), "noai") {
		meta.RobotsNoAI = true
	}
	if len(meta.AIDirectives) == 0 {
		meta.AIDirectives = nil
	}

	lang := htmlLang
	if lang == "" {
		lang = contentLang
	}
	return meta, blocks, normalizeLanguage(lang)
}

func applyMeta(meta *Metadata, lowerName, rawName, property, content string) {
	key := lowerName
	if key == "" {
		key = property
	}
	switch key {
	case "description":
		setOnce(&meta.Description, content)
	case "robots":
		setOnce(&meta.Robots, content)
	case "og:title":
		setOnce(&meta.OGTitle, content)
	case "og:description":
		setOnce(&meta.OGDescription, content)
	case "og:image":
		setOnce(&meta.OGImage, content)
	case "og:url":
		setOnce(&meta.OGURL, content)
	case "og:type":
		setOnce(&meta.OGType, content)
	case "twitter:card":
		setOnce(&meta.TwitterCard, content)
	case "twitter:title":
		setOnce(&meta.TwitterTitle, content)
	case "twitter:description":
		setOnce(&meta.TwitterDescription, content)
	case "author", "article:author":
		setOnce(&meta.Author, content)
	case "article:published_time", "date":
		setOnce(&meta.DatePublished, content)
	case "article:modified_time":
		setOnce(&meta.DateModified, content)
	}
	for _, bot := range aiCrawlers {
		if rawName == bot {
			meta.AIDirectives[bot] = content
		}
	}
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func parseJSONLD(raw string) StructuredData {
	var data any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &data); err != nil {
		return StructuredData{Valid: false, Error: err.Error()}
	}
	return StructuredData{Valid: true, Data: data}
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return b.String()
}
