package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/triadd/internal/orchestrator"
	"github.com/fyrsmithlabs/triadd/internal/session"
	"github.com/fyrsmithlabs/triadd/internal/task"
)

type fixedDecomposer struct{}

func (fixedDecomposer) Decompose(ctx context.Context, request string) (*task.Criteria, error) {
	return &task.Criteria{Requirements: []string{"do " + request}}, nil
}

func newTestService(t *testing.T) (*orchestrator.Service, *session.Registry) {
	t.Helper()
	sessions := session.NewRegistry(nil)
	svc, err := orchestrator.NewService(task.NewMemoryRepository(), fixedDecomposer{}, nil, sessions, nil, orchestrator.Config{}, nil)
	require.NoError(t, err)
	return svc, sessions
}

func TestNewServer(t *testing.T) {
	svc, sessions := newTestService(t)

	srv, err := NewServer(nil, svc, sessions)
	require.NoError(t, err)
	assert.NotNil(t, srv.mcp)
	assert.NotNil(t, srv.metrics)
}

func TestNewServerValidation(t *testing.T) {
	svc, sessions := newTestService(t)

	_, err := NewServer(DefaultConfig(), nil, sessions)
	assert.Error(t, err)

	_, err = NewServer(DefaultConfig(), svc, nil)
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "triadd", cfg.Name)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.NotNil(t, cfg.Logger)
}

func TestRetriableErrorCarriesTaskID(t *testing.T) {
	base := errors.New("model unreachable")
	result := &orchestrator.StartResult{
		TaskID:     "6aa0c0de-0000-4000-8000-000000000001",
		State:      task.StateDecomposing,
		NextAction: orchestrator.ActionRetryDecomposition,
	}

	err := retriableError(result, base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), result.TaskID)
	assert.Contains(t, err.Error(), orchestrator.ActionRetryDecomposition)
	assert.ErrorIs(t, err, base)
}

func TestSnapshotOf(t *testing.T) {
	svc, _ := newTestService(t)

	start, err := svc.StartTask(context.Background(), "build a parser")
	require.NoError(t, err)

	status, err := svc.TaskStatus(context.Background(), start.TaskID)
	require.NoError(t, err)

	snap := snapshotOf(status)
	assert.Equal(t, start.TaskID, snap.ID)
	assert.Equal(t, "build a parser", snap.Request)
	assert.Equal(t, string(task.StateAwaitingSubmission), snap.State)
	assert.Equal(t, orchestrator.ActionWriterSubmit, snap.NextAction)
	assert.Zero(t, snap.Submissions)
	assert.Equal(t, task.DefaultMaxIterations, snap.MaxIterations)
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", task.ErrNotFound, "not_found"},
		{"invalid state", task.ErrInvalidState, "invalid_state"},
		{"stale review", task.ErrStaleReview, "invalid_state"},
		{"session", session.ErrNotRegistered, "session_error"},
		{"empty input", task.ErrEmptyCode, "validation_error"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categorizeError(tt.err))
		})
	}
}
