package quota

import "strings"

// DefaultLimit applies to every role without an explicit entry.
const DefaultLimit = 100

// DefaultLimits returns the stored-record ceiling per role.
func DefaultLimits() map[string]int {
	return map[string]int{
		"admin":           500,
		"project_manager": 250,
	}
}

func limitFor(limits map[string]int, role string) int {
	if limits == nil {
		limits = DefaultLimits()
	}
	if n, ok := limits[strings.ToLower(strings.TrimSpace(role))]; ok && n > 0 {
		return n
	}
	return DefaultLimit
}
