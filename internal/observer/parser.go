package observer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/triadd/internal/task"
)

// ParseCriteria extracts a four-section criteria record from raw model
// output. Two shapes are accepted, in order:
//
//  1. a JSON object embedded anywhere in the text (models often wrap the
//     payload in prose or a code fence)
//  2. labeled plain-text sections (REQUIREMENTS / FORBIDDEN /
//     MINIMUM_VIABLE / SUCCESS_CRITERIA), items one per line
//
// Returns ErrNoCriteriaSections when neither shape is found.
func ParseCriteria(text string) (*task.Criteria, error) {
	if c, ok := parseJSONCriteria(text); ok {
		return c, nil
	}
	if c, ok := parseLabeledCriteria(text); ok {
		return c, nil
	}
	return nil, ErrNoCriteriaSections
}

// stringList unmarshals either a JSON array of strings or a single string
// (split on newlines). Models are inconsistent about which they emit.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*s = items
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("expected string or string array: %s", data)
	}
	for _, line := range strings.Split(single, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			*s = append(*s, line)
		}
	}
	return nil
}

type jsonCriteria struct {
	Requirements    stringList `json:"requirements"`
	Forbidden       stringList `json:"forbidden"`
	MinimumViable   stringList `json:"minimum_viable"`
	SuccessCriteria stringList `json:"success_criteria"`
}

// parseJSONCriteria scans the text for a JSON object carrying at least one
// of the four section keys.
func parseJSONCriteria(text string) (*task.Criteria, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, false
	}

	var parsed jsonCriteria
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, false
	}

	c := &task.Criteria{
		Requirements:    parsed.Requirements,
		Forbidden:       parsed.Forbidden,
		MinimumViable:   parsed.MinimumViable,
		SuccessCriteria: parsed.SuccessCriteria,
	}
	c.Normalize()
	if c.IsEmpty() {
		return nil, false
	}
	return c, true
}

// sectionFor maps a header line to its section name, or "" when the line
// is not a header. Headers tolerate numbering, markdown and underscores vs
// spaces.
func sectionFor(line string) string {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "REQUIREMENTS"):
		return "requirements"
	case strings.Contains(upper, "FORBIDDEN"):
		return "forbidden"
	case strings.Contains(upper, "MINIMUM_VIABLE"), strings.Contains(upper, "MINIMUM VIABLE"):
		return "minimum_viable"
	case strings.Contains(upper, "SUCCESS_CRITERIA"), strings.Contains(upper, "SUCCESS CRITERIA"):
		return "success_criteria"
	}
	return ""
}

// parseLabeledCriteria scans for labeled sections, collecting item lines
// under the most recent header. Text before the first header is ignored.
func parseLabeledCriteria(text string) (*task.Criteria, bool) {
	sections := map[string][]string{}
	current := ""
	sawHeader := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if name := sectionFor(line); name != "" {
			current = name
			sawHeader = true
			// Inline item on the header line: "REQUIREMENTS: do X"
			if idx := strings.Index(line, ":"); idx >= 0 {
				if rest := strings.TrimSpace(line[idx+1:]); rest != "" {
					sections[current] = append(sections[current], cleanItem(rest))
				}
			}
			continue
		}
		if current == "" || line == "" {
			continue
		}
		sections[current] = append(sections[current], cleanItem(line))
	}

	if !sawHeader {
		return nil, false
	}

	c := &task.Criteria{
		Requirements:    sections["requirements"],
		Forbidden:       sections["forbidden"],
		MinimumViable:   sections["minimum_viable"],
		SuccessCriteria: sections["success_criteria"],
	}
	c.Normalize()
	if c.IsEmpty() {
		return nil, false
	}
	return c, true
}

// cleanItem strips list markers from an item line.
func cleanItem(line string) string {
	line = strings.TrimLeft(line, "-*• \t")
	return strings.TrimSpace(line)
}
