package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triadd/internal/orchestrator"
	"github.com/fyrsmithlabs/triadd/internal/session"
	"github.com/fyrsmithlabs/triadd/internal/task"
)

type fixedDecomposer struct{}

func (fixedDecomposer) Decompose(ctx context.Context, request string) (*task.Criteria, error) {
	return &task.Criteria{Requirements: []string{"do " + request}}, nil
}

func newTestServer(t *testing.T) (*Server, *orchestrator.Service, *session.Registry) {
	t.Helper()
	sessions := session.NewRegistry(nil)
	svc, err := orchestrator.NewService(task.NewMemoryRepository(), fixedDecomposer{}, nil, sessions, nil, orchestrator.Config{}, nil)
	require.NoError(t, err)

	srv, err := NewServer(svc, sessions, zap.NewNop(), nil)
	require.NoError(t, err)
	return srv, svc, sessions
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(nil, nil, zap.NewNop(), nil)
	assert.Error(t, err)

	svc, err := orchestrator.NewService(task.NewMemoryRepository(), fixedDecomposer{}, nil, nil, nil, orchestrator.Config{}, nil)
	require.NoError(t, err)
	_, err = NewServer(svc, nil, nil, nil)
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestTasksEndpoints(t *testing.T) {
	srv, svc, _ := newTestServer(t)

	start, err := svc.StartTask(context.Background(), "build a parser")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var list []orchestrator.StatusResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, start.TaskID, list[0].Task.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+start.TaskID, nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/missing", nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAgentsEndpoint(t *testing.T) {
	srv, _, sessions := newTestServer(t)
	require.NoError(t, sessions.Register(session.RoleWriter, "wri-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp AgentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "wri-1", resp.WriterID)
	assert.False(t, resp.Ready)
}
