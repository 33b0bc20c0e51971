package task

import (
	"fmt"
	"strings"
	"time"
)

// State represents the lifecycle state of a task.
type State string

const (
	StateCreated             State = "created"
	StateDecomposing         State = "decomposing"
	StateAwaitingSubmission  State = "awaiting_submission"
	StateAwaitingReview      State = "awaiting_review"
	StateApproved            State = "approved"
	StateFailedMaxIterations State = "failed_max_iterations"
)

// ValidTransitions defines allowed state transitions.
var ValidTransitions = map[State][]State{
	StateCreated:             {StateDecomposing},
	StateDecomposing:         {StateAwaitingSubmission},
	StateAwaitingSubmission:  {StateAwaitingReview},
	StateAwaitingReview:      {StateApproved, StateAwaitingSubmission, StateFailedMaxIterations},
	StateApproved:            {}, // terminal
	StateFailedMaxIterations: {}, // terminal
}

// CanTransitionTo checks if a transition from the current state to target is valid.
func (s State) CanTransitionTo(target State) bool {
	allowed, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateApproved || s == StateFailedMaxIterations
}

// DefaultMaxIterations is the retry budget for rejected submissions.
const DefaultMaxIterations = 3

// Criteria is the structured acceptance-criteria record produced by
// decomposition. All four sections are present (possibly empty) once
// decomposition succeeds, and the record is immutable after it is
// attached to a task.
type Criteria struct {
	Requirements    []string `json:"requirements"`
	Forbidden       []string `json:"forbidden"`
	MinimumViable   []string `json:"minimum_viable"`
	SuccessCriteria []string `json:"success_criteria"`
}

// Normalize trims items, drops blanks, and replaces nil sections with
// empty slices so the four-section shape invariant holds regardless of how
// the record was built.
func (c *Criteria) Normalize() {
	clean := func(items []string) []string {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	c.Requirements = clean(c.Requirements)
	c.Forbidden = clean(c.Forbidden)
	c.MinimumViable = clean(c.MinimumViable)
	c.SuccessCriteria = clean(c.SuccessCriteria)
}

// IsEmpty returns true if no section carries any content.
func (c *Criteria) IsEmpty() bool {
	return len(c.Requirements) == 0 && len(c.Forbidden) == 0 &&
		len(c.MinimumViable) == 0 && len(c.SuccessCriteria) == 0
}

// Format renders the criteria as plain text for prompts and status output.
func (c *Criteria) Format() string {
	var b strings.Builder
	writeSection := func(name string, items []string) {
		fmt.Fprintf(&b, "%s:\n", name)
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	writeSection("Requirements", c.Requirements)
	writeSection("Forbidden", c.Forbidden)
	writeSection("Minimum Viable", c.MinimumViable)
	writeSection("Success Criteria", c.SuccessCriteria)
	return b.String()
}

func (c *Criteria) clone() *Criteria {
	if c == nil {
		return nil
	}
	return &Criteria{
		Requirements:    append([]string{}, c.Requirements...),
		Forbidden:       append([]string{}, c.Forbidden...),
		MinimumViable:   append([]string{}, c.MinimumViable...),
		SuccessCriteria: append([]string{}, c.SuccessCriteria...),
	}
}

// Submission is one Writer code drop. Never mutated after creation.
type Submission struct {
	Index       int       `json:"index"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Review is one Validator verdict on a submission. Never mutated after creation.
type Review struct {
	SubmissionIndex int       `json:"submission_index"`
	Feedback        string    `json:"feedback"`
	Approved        bool      `json:"approved"`
	CreatedAt       time.Time `json:"created_at"`
}
