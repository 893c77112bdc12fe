package scoring

// Grade is the letter bucket for an overall score.
type Grade struct {
	Letter  string `json:"letter"`
	Label   string `json:"label"`
	Summary string `json:"summary"`
}

var gradeTable = []struct {
	min int
	Grade
}{
	{95, Grade{"A+", "Excellent", "This content is exceptionally well-optimized for AI readability."}},
	{90, Grade{"A", "Great", "This content is highly readable and well-structured for AI models."}},
	{85, Grade{"B+", "Very Good", "This content is very good with minor improvements possible."}},
	{80, Grade{"B", "Good", "This content is good but has room for improvement."}},
	{75, Grade{"C+", "Above Average", "This content has several areas that could be improved for AI readability."}},
	{70, Grade{"C", "Average", "This content needs moderate improvements for better AI comprehension."}},
	{60, Grade{"D", "Below Average", "This content has significant issues affecting AI readability."}},
	{0, Grade{"F", "Poor", "This content requires major improvements for AI models to effectively understand it."}},
}

// GradeFor maps a 0..100 score to its bucket. A score equal to a bucket's
// lower bound belongs to that bucket.
func GradeFor(score int) Grade {
	score = clamp(score)
	for _, g := range gradeTable {
		if score >= g.min {
			return g.Grade
		}
	}
	return gradeTable[len(gradeTable)-1].Grade
}

// Letters lists the grade letters from best to worst.
func Letters() []string {
	out := make([]string, 0, len(gradeTable))
	for _, g := range gradeTable {
		out = append(out, g.Letter)
	}
	return out
}
