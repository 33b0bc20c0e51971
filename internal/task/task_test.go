package task

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenTask(t *testing.T) *Task {
	t.Helper()
	tk, err := New("build a parser", 3)
	require.NoError(t, err)
	require.NoError(t, tk.BeginDecomposition())
	require.NoError(t, tk.AttachCriteria(&Criteria{Requirements: []string{"parse input"}}))
	return tk
}

func TestNew(t *testing.T) {
	tk, err := New("build a parser", 0)
	require.NoError(t, err)

	assert.NotEmpty(t, tk.ID)
	assert.Equal(t, StateCreated, tk.State)
	assert.Equal(t, DefaultMaxIterations, tk.MaxIterations)
	assert.Empty(t, tk.Submissions)
	assert.Empty(t, tk.Reviews)
	assert.Zero(t, tk.IterationCount)
}

func TestNewEmptyRequest(t *testing.T) {
	_, err := New("", 3)
	assert.ErrorIs(t, err, ErrEmptyRequest)
}

func TestAttachCriteria(t *testing.T) {
	tk, err := New("build a parser", 3)
	require.NoError(t, err)

	// Attaching before decomposition started is rejected.
	err = tk.AttachCriteria(&Criteria{Requirements: []string{"x"}})
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, tk.BeginDecomposition())
	require.NoError(t, tk.AttachCriteria(&Criteria{Requirements: []string{"parse input"}}))
	assert.Equal(t, StateAwaitingSubmission, tk.State)
	require.NotNil(t, tk.Criteria)

	// Criteria are immutable once attached.
	err = tk.AttachCriteria(&Criteria{Requirements: []string{"other"}})
	assert.ErrorIs(t, err, ErrCriteriaAttached)
}

func TestAttachCriteriaNil(t *testing.T) {
	tk, err := New("build a parser", 3)
	require.NoError(t, err)
	require.NoError(t, tk.BeginDecomposition())

	assert.ErrorIs(t, tk.AttachCriteria(nil), ErrNilCriteria)
	assert.Equal(t, StateDecomposing, tk.State, "failed attach must leave the task retriable")
}

func TestApprovalOnFirstSubmission(t *testing.T) {
	tk := newOpenTask(t)

	sub, err := tk.AddSubmission("package main", "initial version")
	require.NoError(t, err)
	assert.Equal(t, 0, sub.Index)
	assert.Equal(t, StateAwaitingReview, tk.State)

	state, err := tk.AddReview(sub.Index, "looks good", true)
	require.NoError(t, err)
	assert.Equal(t, StateApproved, state)
	assert.Zero(t, tk.IterationCount, "approval must not consume an iteration")
	assert.True(t, tk.State.IsTerminal())
}

func TestRejectionLoopExhaustsBudget(t *testing.T) {
	tk := newOpenTask(t)

	// Two rejections loop back to awaiting_submission.
	for i := 0; i < 2; i++ {
		sub, err := tk.AddSubmission("package main", "attempt")
		require.NoError(t, err)

		state, err := tk.AddReview(sub.Index, "missing error handling", false)
		require.NoError(t, err)
		assert.Equal(t, StateAwaitingSubmission, state)
		assert.Equal(t, i+1, tk.IterationCount)
	}

	// Third rejection exhausts the budget.
	sub, err := tk.AddSubmission("package main", "attempt")
	require.NoError(t, err)
	state, err := tk.AddReview(sub.Index, "still missing error handling", false)
	require.NoError(t, err)
	assert.Equal(t, StateFailedMaxIterations, state)
	assert.Equal(t, 3, tk.IterationCount)

	// Terminal task rejects further submissions.
	_, err = tk.AddSubmission("package main", "too late")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApprovalAfterRejection(t *testing.T) {
	tk := newOpenTask(t)

	sub, err := tk.AddSubmission("v1", "")
	require.NoError(t, err)
	_, err = tk.AddReview(sub.Index, "rework", false)
	require.NoError(t, err)

	sub, err = tk.AddSubmission("v2", "")
	require.NoError(t, err)
	assert.Equal(t, 1, sub.Index)

	state, err := tk.AddReview(sub.Index, "approved", true)
	require.NoError(t, err)
	assert.Equal(t, StateApproved, state)
	assert.Equal(t, 1, tk.IterationCount)
	assert.Len(t, tk.Reviews, 2)
}

func TestStaleReviewRejected(t *testing.T) {
	tk := newOpenTask(t)

	sub, err := tk.AddSubmission("v1", "")
	require.NoError(t, err)
	_, err = tk.AddReview(sub.Index, "rework", false)
	require.NoError(t, err)

	_, err = tk.AddSubmission("v2", "")
	require.NoError(t, err)

	// Review for the superseded submission must not mutate anything.
	before := tk.IterationCount
	_, err = tk.AddReview(0, "late verdict", true)
	assert.ErrorIs(t, err, ErrStaleReview)
	assert.Equal(t, StateAwaitingReview, tk.State)
	assert.Equal(t, before, tk.IterationCount)
	assert.Len(t, tk.Reviews, 1)
}

func TestReviewOutsideAwaitingReview(t *testing.T) {
	tk := newOpenTask(t)

	_, err := tk.AddReview(0, "nothing to review", true)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, StateAwaitingSubmission, tk.State)
}

func TestEmptySubmissionRejected(t *testing.T) {
	tk := newOpenTask(t)

	_, err := tk.AddSubmission("", "empty")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyCode))
	assert.Equal(t, StateAwaitingSubmission, tk.State)
	assert.Empty(t, tk.Submissions)
}

func TestLatestAccessors(t *testing.T) {
	tk := newOpenTask(t)
	assert.Nil(t, tk.LatestSubmission())
	assert.Nil(t, tk.LatestReview())

	_, err := tk.AddSubmission("v1", "")
	require.NoError(t, err)
	_, err = tk.AddReview(0, "rework", false)
	require.NoError(t, err)
	_, err = tk.AddSubmission("v2", "")
	require.NoError(t, err)

	require.NotNil(t, tk.LatestSubmission())
	assert.Equal(t, "v2", tk.LatestSubmission().Code)
	require.NotNil(t, tk.LatestReview())
	assert.False(t, tk.LatestReview().Approved)
}

func TestCloneIsolation(t *testing.T) {
	tk := newOpenTask(t)
	_, err := tk.AddSubmission("v1", "")
	require.NoError(t, err)

	clone := tk.Clone()
	clone.Submissions[0].Code = "mutated"
	clone.Criteria.Requirements[0] = "mutated"
	clone.State = StateApproved

	assert.Equal(t, "v1", tk.Submissions[0].Code)
	assert.Equal(t, "parse input", tk.Criteria.Requirements[0])
	assert.Equal(t, StateAwaitingReview, tk.State)
}
