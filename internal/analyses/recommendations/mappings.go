package recommendations

type checkMeta struct {
	group    string
	audience string
	effort   Effort
	impact   Impact
	example  *CodeExample
}

var impactPoints = map[Impact]int{ImpactHigh: 15, ImpactMedium: 10, ImpactLow: 5}

func meta(group, audience string, effort Effort, impact Impact) checkMeta {
	return checkMeta{group: group, audience: audience, effort: effort, impact: impact}
}

func withExample(m checkMeta, before, after string) checkMeta {
	m.example = &CodeExample{Before: before, After: after}
	return m
}

var checkMetas = map[string]checkMeta{
	"CS-01": withExample(meta(GroupStructural, AudienceDevelopment, EffortQuick, ImpactHigh),
		"<h1>First Title</h1>\n<h1>Second Title</h1>", "<h1>Main Page Title</h1>\n<h2>Section Title</h2>"),
	"CS-02": withExample(meta(GroupStructural, AudienceDevelopment, EffortQuick, ImpactHigh),
		"<h1>Title</h1>\n<h3>Subsection</h3>", "<h1>Title</h1>\n<h2>Section</h2>\n<h3>Subsection</h3>"),
	"CS-03": withExample(meta(GroupStructural, AudienceDevelopment, EffortModerate, ImpactMedium),
		`<div class="content">...</div>`, "<main>\n  <article>...</article>\n</main>"),
	"CS-04": meta(GroupStructural, AudienceContent, EffortModerate, ImpactMedium),
	"CS-05": withExample(meta(GroupContent, AudienceContent, EffortQuick, ImpactLow),
		"Feature A, Feature B, Feature C", "<ul>\n  <li>Feature A</li>\n  <li>Feature B</li>\n  <li>Feature C</li>\n</ul>"),
	"CS-06": withExample(meta(GroupStructural, AudienceDevelopment, EffortQuick, ImpactMedium),
		"<table>\n  <tr><td>Name</td><td>Value</td></tr>\n</table>",
		"<table>\n  <thead><tr><th>Name</th><th>Value</th></tr></thead>\n  <tbody><tr><td>Example</td><td>123</td></tr></tbody>\n</table>"),
	"CS-07": meta(GroupContent, AudienceContent, EffortModerate, ImpactLow),
	"CS-08": meta(GroupContent, AudienceContent, EffortSignificant, ImpactMedium),
	"CS-09": meta(GroupStructural, AudienceDevelopment, EffortModerate, ImpactMedium),
	"CS-10": meta(GroupContent, AudienceContent, EffortModerate, ImpactLow),

	"CC-01": meta(GroupContent, AudienceContent, EffortSignificant, ImpactHigh),
	"CC-02": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"CC-03": meta(GroupContent, AudienceContent, EffortModerate, ImpactLow),
	"CC-04": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"CC-05": meta(GroupContent, AudienceContent, EffortSignificant, ImpactHigh),
	"CC-06": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"CC-07": meta(GroupContent, AudienceContent, EffortQuick, ImpactLow),
	"CC-08": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"CC-09": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"CC-10": meta(GroupContent, AudienceContent, EffortQuick, ImpactLow),
	"CC-11": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),

	"TA-01": meta(GroupTechnical, AudienceDevelopment, EffortSignificant, ImpactHigh),
	"TA-02": withExample(meta(GroupTechnical, AudienceDevelopment, EffortQuick, ImpactHigh),
		`<meta name="robots" content="noindex, noai">`, `<meta name="robots" content="index, follow">`),
	"TA-03": meta(GroupTechnical, AudienceDevelopment, EffortQuick, ImpactHigh),
	"TA-04": withExample(meta(GroupTechnical, AudienceDevelopment, EffortQuick, ImpactMedium),
		"<!-- No canonical -->", `<link rel="canonical" href="https://example.com/page">`),
	"TA-05": meta(GroupTechnical, AudienceDevelopment, EffortModerate, ImpactMedium),
	"TA-06": meta(GroupTechnical, AudienceDevelopment, EffortModerate, ImpactLow),
	"TA-07": meta(GroupTechnical, AudienceDevelopment, EffortModerate, ImpactMedium),
	"TA-08": meta(GroupTechnical, AudienceDevelopment, EffortModerate, ImpactHigh),
	"TA-09": withExample(meta(GroupTechnical, AudienceDevelopment, EffortModerate, ImpactMedium),
		`<img src="photo.jpg">`, `<img src="photo.jpg" alt="Description of the image content">`),
	"TA-10": meta(GroupTechnical, AudienceDevelopment, EffortQuick, ImpactMedium),

	"MS-01": withExample(meta(GroupTechnical, AudienceContent, EffortQuick, ImpactHigh),
		"<title>My Page</title>", "<title>Descriptive Page Title - Brand Name (30-60 chars)</title>"),
	"MS-02": withExample(meta(GroupTechnical, AudienceContent, EffortQuick, ImpactHigh),
		"<!-- No meta description -->", `<meta name="description" content="Clear description of page content in 120-160 characters...">`),
	"MS-03": meta(GroupTechnical, AudienceDevelopment, EffortQuick, ImpactMedium),
	"MS-04": meta(GroupTechnical, AudienceDevelopment, EffortQuick, ImpactLow),
	"MS-05": meta(GroupTechnical, AudienceDevelopment, EffortModerate, ImpactHigh),
	"MS-06": meta(GroupTechnical, AudienceDevelopment, EffortModerate, ImpactMedium),
	"MS-07": meta(GroupTechnical, AudienceDevelopment, EffortQuick, ImpactMedium),
	"MS-08": meta(GroupTechnical, AudienceDevelopment, EffortQuick, ImpactMedium),
	"MS-09": meta(GroupTechnical, AudienceDevelopment, EffortModerate, ImpactLow),
	"MS-10": meta(GroupTechnical, AudienceDevelopment, EffortModerate, ImpactMedium),

	"AS-01": meta(GroupContent, AudienceContent, EffortModerate, ImpactHigh),
	"AS-02": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"AS-03": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"AS-04": meta(GroupContent, AudienceContent, EffortQuick, ImpactMedium),
	"AS-05": meta(GroupContent, AudienceContent, EffortSignificant, ImpactHigh),
	"AS-06": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"AS-07": meta(GroupContent, AudienceContent, EffortModerate, ImpactLow),
	"AS-08": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"AS-09": meta(GroupContent, AudienceContent, EffortModerate, ImpactLow),
	"AS-10": meta(GroupContent, AudienceDevelopment, EffortModerate, ImpactMedium),

	"AIO-01": meta(GroupStructural, AudienceContent, EffortModerate, ImpactHigh),
	"AIO-02": withExample(meta(GroupTechnical, AudienceDevelopment, EffortModerate, ImpactMedium),
		`<!-- no FAQ markup -->`, `<script type="application/ld+json">{"@type":"FAQPage","mainEntity":[{"@type":"Question","name":"...","acceptedAnswer":{"@type":"Answer","text":"..."}}]}</script>`),
	"AIO-03": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"AIO-04": meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium),
	"AIO-05": meta(GroupTechnical, AudienceDevelopment, EffortQuick, ImpactLow),
}

func metaFor(checkID string) checkMeta {
	if m, ok := checkMetas[checkID]; ok {
		return m
	}
	return meta(GroupContent, AudienceContent, EffortModerate, ImpactMedium)
}
