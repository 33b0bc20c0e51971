package orchestrator

import (
	"context"

	"github.com/fyrsmithlabs/triadd/internal/observer"
	"github.com/fyrsmithlabs/triadd/internal/task"
)

// Decomposer produces acceptance criteria for a raw request.
// Implemented by *observer.Decomposer.
type Decomposer interface {
	Decompose(ctx context.Context, request string) (*task.Criteria, error)
}

// AlignmentChecker produces an advisory alignment verdict for a submission.
// Implemented by *observer.Checker.
type AlignmentChecker interface {
	CheckAlignment(ctx context.Context, criteria *task.Criteria, code, description string) (*observer.Alignment, error)
}

// NextAction tells the external driver whose turn it is.
const (
	ActionRetryDecomposition = "Decomposition failed; call retry_decomposition or start a new task."
	ActionWriterSubmit       = "Writer: submit code with submit_code."
	ActionValidatorReview    = "Validator: review the latest submission with submit_review."
	ActionWriterRevise       = "Writer: address the feedback and resubmit with submit_code."
	ActionTaskComplete       = "Task complete; no further action required."
	ActionTaskFailed         = "Iteration budget exhausted; start a new task to continue."
)

// nextActionFor maps a task state to the instruction for the next actor.
func nextActionFor(state task.State) string {
	switch state {
	case task.StateDecomposing:
		return ActionRetryDecomposition
	case task.StateAwaitingSubmission:
		return ActionWriterSubmit
	case task.StateAwaitingReview:
		return ActionValidatorReview
	case task.StateApproved:
		return ActionTaskComplete
	case task.StateFailedMaxIterations:
		return ActionTaskFailed
	}
	return ""
}

// Advisory is the best-effort pre-review verdict attached to a submission
// result. Informational only: it never drives a transition.
type Advisory struct {
	Aligned bool     `json:"aligned"`
	Viable  bool     `json:"viable"`
	Reasons []string `json:"reasons,omitempty"`
}

// StartResult is returned by StartTask and RetryDecomposition. When
// decomposition fails the result still carries the task ID and its
// (retriable) decomposing state alongside the error.
type StartResult struct {
	TaskID     string         `json:"task_id"`
	State      task.State     `json:"state"`
	Criteria   *task.Criteria `json:"criteria,omitempty"`
	NextAction string         `json:"next_action"`
}

// SubmitResult is returned by SubmitCode.
type SubmitResult struct {
	Accepted        bool       `json:"accepted"`
	TaskID          string     `json:"task_id"`
	State           task.State `json:"state"`
	SubmissionIndex int        `json:"submission_index"`
	NextAction      string     `json:"next_action"`
	Advisory        *Advisory  `json:"advisory,omitempty"`
}

// ReviewResult is returned by SubmitReview.
type ReviewResult struct {
	TaskID         string     `json:"task_id"`
	Status         task.State `json:"status"`
	IterationCount int        `json:"iteration_count"`
	NextAction     string     `json:"next_action"`
}

// StatusResult is a read-only task snapshot plus the pending action.
type StatusResult struct {
	Task       *task.Task `json:"task"`
	NextAction string     `json:"next_action"`
}

// StopResult is returned by ForceStop.
type StopResult struct {
	TaskID      string     `json:"task_id"`
	State       task.State `json:"state"`
	BestCode    string     `json:"best_code,omitempty"`
	Submissions int        `json:"submissions"`
	Reviews     int        `json:"reviews"`
}
