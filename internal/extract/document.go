package extract

// Document is the normalized model of one HTML page. It never carries live
// DOM nodes; every field is plain data safe to hand to other stages.
type Document struct {
	SourceURL          string           `json:"sourceUrl,omitempty"`
	Metadata           Metadata         `json:"metadata"`
	StructuredData     []StructuredData `json:"structuredData"`
	Headings           []Heading        `json:"headings"`
	Semantic           Semantic         `json:"semantic"`
	Images             []Image          `json:"images"`
	Tables             []Table          `json:"tables"`
	Lists              Lists            `json:"lists"`
	Links              []Link           `json:"links"`
	ARIALandmarks      []string         `json:"ariaLandmarks"`
	Language           string           `json:"language,omitempty"`
	Text               string           `json:"-"`
	Paragraphs         []Paragraph      `json:"-"`
	WordCount          int              `json:"wordCount"`
	ContentToCodeRatio float64          `json:"contentToCodeRatio"`
	InlinePercentage   float64          `json:"inlinePercentage"`
	TotalBytes         int              `json:"totalBytes"`
	HiddenIndicators   []string         `json:"hiddenIndicators"`
	RawHTML            string           `json:"-"`
}

// Metadata holds head-level signals.
type Metadata struct {
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Robots             string            `json:"robots,omitempty"`
	Canonical          string            `json:"canonical,omitempty"`
	OGTitle            string            `json:"ogTitle,omitempty"`
	OGDescription      string            `json:"ogDescription,omitempty"`
	OGImage            string            `json:"ogImage,omitempty"`
	OGURL              string            `json:"ogUrl,omitempty"`
	OGType             string            `json:"ogType,omitempty"`
	TwitterCard        string            `json:"twitterCard,omitempty"`
	TwitterTitle       string            `json:"twitterTitle,omitempty"`
	TwitterDescription string            `json:"twitterDescription,omitempty"`
	Author             string            `json:"author,omitempty"`
	DatePublished      string            `json:"datePublished,omitempty"`
	DateModified       string            `json:"dateModified,omitempty"`
	Charset            string            `json:"charset,omitempty"`
	Hreflang           []Hreflang        `json:"hreflang,omitempty"`
	AIDirectives       map[string]string `json:"aiDirectives,omitempty"`
	RobotsNoAI         bool              `json:"robotsNoAI,omitempty"`
}

// Hreflang is one alternate-language link.
type Hreflang struct {
	Lang string `json:"lang"`
	Href string `json:"href"`
}

// StructuredData is one JSON-LD block.
type StructuredData struct {
	Valid bool   `json:"valid"`
	Data  any    `json:"-"`
	Error string `json:"error,omitempty"`
}

// Heading is one h1..h6 element in document order.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id,omitempty"`
}

// Semantic records which HTML5 sectioning elements are present.
type Semantic struct {
	Main    bool `json:"main"`
	Article bool `json:"article"`
	Section bool `json:"section"`
	Aside   bool `json:"aside"`
	Nav     bool `json:"nav"`
	Header  bool `json:"header"`
	Footer  bool `json:"footer"`
	Figure  bool `json:"figure"`
}

// Image is one img element.
type Image struct {
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
	HasAlt bool   `json:"hasAlt"`
}

// Table is one table element.
type Table struct {
	HasThead bool `json:"hasThead"`
	HasTh    bool `json:"hasTh"`
	Rows     int  `json:"rows"`
}

// Lists counts list containers.
type Lists struct {
	Ordered    int `json:"ordered"`
	Unordered  int `json:"unordered"`
	Definition int `json:"definition"`
}

// Link is one anchor with an href.
type Link struct {
	Href        string `json:"href"`
	Text        string `json:"text"`
	Internal    bool   `json:"internal"`
	Descriptive bool   `json:"descriptive"`
	Rel         string `json:"rel,omitempty"`
}

// Paragraph is one non-empty p element from the cleaned body.
type Paragraph struct {
	Text      string `json:"text"`
	WordCount int    `json:"wordCount"`
}

// Preview is the early projection available right after extraction.
type Preview struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Language     string `json:"language,omitempty"`
	WordCount    int    `json:"wordCount"`
	HeadingCount int    `json:"headingCount"`
}

// Preview returns the UI-facing summary of the document.
func (d *Document) Preview() Preview {
	if d == nil {
		return Preview{}
	}
	return Preview{
		Title:        d.Metadata.Title,
		Description:  d.Metadata.Description,
		Language:     d.Language,
		WordCount:    d.WordCount,
		HeadingCount: len(d.Headings),
	}
}

// ValidStructuredData returns the JSON-LD blocks that parsed.
func (d *Document) ValidStructuredData() []StructuredData {
	var out []StructuredData
	for _, sd := range d.StructuredData {
		if sd.Valid {
			out = append(out, sd)
		}
	}
	return out
}

// Types returns the @type values declared by the block, including @graph members.
// Blocks without a type report "Unknown".
func (s StructuredData) Types() []string {
	var out []string
	for _, node := range s.nodes() {
		switch t := node["@type"].(type) {
		case string:
			out = append(out, t)
		case []any:
			for _, v := range t {
				if str, ok := v.(string); ok {
					out = append(out, str)
				}
			}
		default:
			out = append(out, "Unknown")
		}
	}
	return out
}

// HasField reports whether any node in the block has a non-empty value for key.
func (s StructuredData) HasField(key string) bool {
	return s.Field(key) != ""
}

// Field returns the first string value for key, or a marker for non-string values.
func (s StructuredData) Field(key string) string {
	for _, node := range s.nodes() {
		v, ok := node[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		default:
			return "present"
		}
	}
	return ""
}

func (s StructuredData) nodes() []map[string]any {
	var out []map[string]any
	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			if graph, ok := val["@graph"].([]any); ok {
				for _, g := range graph {
					walk(g)
				}
				return
			}
			out = append(out, val)
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(s.Data)
	return out
}
