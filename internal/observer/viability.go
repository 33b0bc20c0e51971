package observer

import "strings"

// placeholderPatterns are markers of incomplete code. Matched
// case-insensitively.
var placeholderPatterns = []string{
	"todo",
	"fixme",
	"not implemented",
	"notimplementederror",
	"placeholder",
	"your code here",
	"// stub",
	"# stub",
}

// CheckViability is a cheap local heuristic for whether code looks
// complete: non-empty and free of placeholder markers. It augments the
// model-backed alignment check without an outbound call.
func CheckViability(code string) bool {
	if strings.TrimSpace(code) == "" {
		return false
	}
	lower := strings.ToLower(code)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}
