package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task owns one request's lifecycle: current state, attached criteria,
// submission and review history, and the iteration budget. Methods are not
// safe for concurrent use; the orchestrator serializes access per task ID.
type Task struct {
	ID             string       `json:"id"`
	Request        string       `json:"request"`
	State          State        `json:"state"`
	Criteria       *Criteria    `json:"criteria,omitempty"`
	Submissions    []Submission `json:"submissions"`
	Reviews        []Review     `json:"reviews"`
	IterationCount int          `json:"iteration_count"`
	MaxIterations  int          `json:"max_iterations"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// New creates a task in the created state. maxIterations <= 0 selects
// DefaultMaxIterations.
func New(request string, maxIterations int) (*Task, error) {
	if request == "" {
		return nil, ErrEmptyRequest
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	now := time.Now().UTC()
	return &Task{
		ID:            uuid.NewString(),
		Request:       request,
		State:         StateCreated,
		Submissions:   []Submission{},
		Reviews:       []Review{},
		MaxIterations: maxIterations,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// transition moves the task to target after checking the transition table.
func (t *Task) transition(target State) error {
	if !t.State.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, target)
	}
	t.State = target
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// BeginDecomposition moves a freshly created task into decomposing.
func (t *Task) BeginDecomposition() error {
	if t.State != StateCreated {
		return fmt.Errorf("%w: task %s is %s, expected %s", ErrInvalidState, t.ID, t.State, StateCreated)
	}
	return t.transition(StateDecomposing)
}

// AttachCriteria records the decomposition result and opens the task for
// submissions. A task whose decomposition failed stays in decomposing and
// may be retried; criteria already attached are immutable.
func (t *Task) AttachCriteria(c *Criteria) error {
	if c == nil {
		return ErrNilCriteria
	}
	if t.Criteria != nil {
		return fmt.Errorf("%w: task %s", ErrCriteriaAttached, t.ID)
	}
	if t.State != StateDecomposing {
		return fmt.Errorf("%w: task %s is %s, expected %s", ErrInvalidState, t.ID, t.State, StateDecomposing)
	}
	attached := c.clone()
	attached.Normalize()
	if err := t.transition(StateAwaitingSubmission); err != nil {
		return err
	}
	t.Criteria = attached
	return nil
}

// AddSubmission appends a Writer submission and moves the task to
// awaiting_review. Rejected when the task is not awaiting a submission so
// duplicate or out-of-order calls cannot corrupt the history.
func (t *Task) AddSubmission(code, description string) (*Submission, error) {
	if code == "" {
		return nil, ErrEmptyCode
	}
	if t.State != StateAwaitingSubmission {
		return nil, fmt.Errorf("%w: task %s is %s, expected %s", ErrInvalidState, t.ID, t.State, StateAwaitingSubmission)
	}
	sub := Submission{
		Index:       len(t.Submissions),
		Code:        code,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := t.transition(StateAwaitingReview); err != nil {
		return nil, err
	}
	t.Submissions = append(t.Submissions, sub)
	return &sub, nil
}

// AddReview appends a Validator verdict for the submission at
// submissionIndex and applies the transition table: approval terminates the
// task, rejection loops back to awaiting_submission until the iteration
// budget is exhausted. A review for a superseded submission index is
// rejected without mutating anything. Returns the resulting state.
func (t *Task) AddReview(submissionIndex int, feedback string, approved bool) (State, error) {
	if t.State != StateAwaitingReview {
		return t.State, fmt.Errorf("%w: task %s is %s, expected %s", ErrInvalidState, t.ID, t.State, StateAwaitingReview)
	}
	latest := len(t.Submissions) - 1
	if submissionIndex != latest {
		return t.State, fmt.Errorf("%w: got index %d, latest is %d", ErrStaleReview, submissionIndex, latest)
	}

	next := StateApproved
	if !approved {
		if t.IterationCount+1 < t.MaxIterations {
			next = StateAwaitingSubmission
		} else {
			next = StateFailedMaxIterations
		}
	}
	if err := t.transition(next); err != nil {
		return t.State, err
	}

	t.Reviews = append(t.Reviews, Review{
		SubmissionIndex: submissionIndex,
		Feedback:        feedback,
		Approved:        approved,
		CreatedAt:       time.Now().UTC(),
	})
	if !approved {
		t.IterationCount++
	}
	return t.State, nil
}

// LatestSubmission returns the most recent submission, or nil if none exists.
func (t *Task) LatestSubmission() *Submission {
	if len(t.Submissions) == 0 {
		return nil
	}
	sub := t.Submissions[len(t.Submissions)-1]
	return &sub
}

// LatestReview returns the most recent review, or nil if none exists.
func (t *Task) LatestReview() *Review {
	if len(t.Reviews) == 0 {
		return nil
	}
	rev := t.Reviews[len(t.Reviews)-1]
	return &rev
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (t *Task) Clone() *Task {
	clone := *t
	clone.Criteria = t.Criteria.clone()
	clone.Submissions = append([]Submission{}, t.Submissions...)
	clone.Reviews = append([]Review{}, t.Reviews...)
	return &clone
}
