package task

import (
	"strings"
	"testing"
)

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		to    State
		valid bool
	}{
		{"created to decomposing", StateCreated, StateDecomposing, true},
		{"created to awaiting_submission", StateCreated, StateAwaitingSubmission, false},
		{"decomposing to awaiting_submission", StateDecomposing, StateAwaitingSubmission, true},
		{"decomposing to created", StateDecomposing, StateCreated, false},
		{"awaiting_submission to awaiting_review", StateAwaitingSubmission, StateAwaitingReview, true},
		{"awaiting_submission to approved", StateAwaitingSubmission, StateApproved, false},
		{"awaiting_review to approved", StateAwaitingReview, StateApproved, true},
		{"awaiting_review to awaiting_submission", StateAwaitingReview, StateAwaitingSubmission, true},
		{"awaiting_review to failed", StateAwaitingReview, StateFailedMaxIterations, true},
		{"approved to anything", StateApproved, StateAwaitingSubmission, false},
		{"failed to anything", StateFailedMaxIterations, StateAwaitingSubmission, false},
		{"approved to decomposing", StateApproved, StateDecomposing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
				t.Errorf("CanTransitionTo(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.valid)
			}
		})
	}
}

func TestStateIsTerminal(t *testing.T) {
	terminal := []State{StateApproved, StateFailedMaxIterations}
	active := []State{StateCreated, StateDecomposing, StateAwaitingSubmission, StateAwaitingReview}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("IsTerminal(%s) = false, want true", s)
		}
	}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("IsTerminal(%s) = true, want false", s)
		}
	}
}

func TestCriteriaNormalize(t *testing.T) {
	c := &Criteria{
		Requirements:    []string{"  implement parser  ", "", "handle errors"},
		Forbidden:       []string{"   "},
		SuccessCriteria: []string{"tests pass"},
	}
	c.Normalize()

	if len(c.Requirements) != 2 {
		t.Fatalf("Requirements length = %d, want 2", len(c.Requirements))
	}
	if c.Requirements[0] != "implement parser" {
		t.Errorf("Requirements[0] = %q, want trimmed text", c.Requirements[0])
	}
	if len(c.Forbidden) != 0 {
		t.Errorf("Forbidden length = %d, want 0 after dropping blanks", len(c.Forbidden))
	}
}

func TestCriteriaIsEmpty(t *testing.T) {
	empty := &Criteria{}
	if !empty.IsEmpty() {
		t.Error("empty criteria should report IsEmpty")
	}

	nonEmpty := &Criteria{MinimumViable: []string{"compiles"}}
	if nonEmpty.IsEmpty() {
		t.Error("criteria with a minimum_viable item should not report IsEmpty")
	}
}

func TestCriteriaFormat(t *testing.T) {
	c := &Criteria{
		Requirements: []string{"do the thing"},
		Forbidden:    []string{"no network calls"},
	}
	out := c.Format()

	if !strings.Contains(out, "Requirements:") {
		t.Errorf("formatted criteria missing Requirements header:\n%s", out)
	}
	if !strings.Contains(out, "do the thing") {
		t.Errorf("formatted criteria missing requirement item:\n%s", out)
	}
	if !strings.Contains(out, "no network calls") {
		t.Errorf("formatted criteria missing forbidden item:\n%s", out)
	}
}
