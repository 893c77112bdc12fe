package checks

// CatalogVersion identifies the check catalog. It is stored with every
// analysis so scores from different catalogs are never compared blindly.
const CatalogVersion = "1.1.0"

// Category is one of the five fixed scoring categories.
type Category string

const (
	ContentStructure Category = "contentStructure"
	ContentClarity   Category = "contentClarity"
	TechnicalAccess  Category = "technicalAccess"
	MetadataSchema   Category = "metadataSchema"
	AISignals        Category = "aiSignals"
)

// Categories returns the category keys in report order.
func Categories() []Category {
	return []Category{ContentStructure, ContentClarity, TechnicalAccess, MetadataSchema, AISignals}
}

func (c Category) Valid() bool {
	switch c {
	case ContentStructure, ContentClarity, TechnicalAccess, MetadataSchema, AISignals:
		return true
	}
	return false
}

// Label is the human readable category name.
func (c Category) Label() string {
	switch c {
	case ContentStructure:
		return "Content Structure"
	case ContentClarity:
		return "Content Clarity"
	case TechnicalAccess:
		return "Technical Accessibility"
	case MetadataSchema:
		return "Metadata & Schema"
	case AISignals:
		return "AI-Specific Signals"
	}
	return string(c)
}

// Severity ranks how much a failing check matters.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// Rank orders severities, critical highest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Status is the outcome of one check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
	StatusNA   Status = "na"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPass, StatusWarn, StatusFail, StatusNA:
		return true
	}
	return false
}

// Result is the evaluation of one check against one document.
type Result struct {
	ID               string   `json:"id"`
	Category         Category `json:"category"`
	Severity         Severity `json:"severity"`
	Status           Status   `json:"status"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Recommendation   string   `json:"recommendation,omitempty"`
	AffectedElements []string `json:"affectedElements,omitempty"`
}

// Report groups results by category. Every category key is always present.
type Report map[Category][]Result

// All flattens the report in category order.
func (r Report) All() []Result {
	var out []Result
	for _, c := range Categories() {
		out = append(out, r[c]...)
	}
	return out
}

// Find returns the result with the given id.
func (r Report) Find(id string) (Result, bool) {
	for _, results := range r {
		for _, res := range results {
			if res.ID == id {
				return res, true
			}
		}
	}
	return Result{}, false
}

// Group rebuilds a report from a flat result list, dropping results with
// an unknown category.
func Group(results []Result) Report {
	out := make(Report, len(Categories()))
	for _, c := range Categories() {
		out[c] = []Result{}
	}
	for _, res := range results {
		if !res.Category.Valid() {
			continue
		}
		out[res.Category] = append(out[res.Category], res)
	}
	return out
}
