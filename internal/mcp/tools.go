package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triadd/internal/orchestrator"
	"github.com/fyrsmithlabs/triadd/internal/session"
	"github.com/fyrsmithlabs/triadd/internal/task"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.registerTaskTools()
	s.registerSubmissionTools()
	s.registerSessionTools()
}

// taskSnapshot is the wire form of a task returned by status tools.
type taskSnapshot struct {
	ID             string         `json:"id" jsonschema:"Task identifier"`
	Request        string         `json:"request" jsonschema:"Original user request"`
	State          string         `json:"state" jsonschema:"Current lifecycle state"`
	Criteria       *task.Criteria `json:"criteria,omitempty" jsonschema:"Decomposed acceptance criteria"`
	Submissions    int            `json:"submissions" jsonschema:"Number of code submissions so far"`
	Reviews        int            `json:"reviews" jsonschema:"Number of reviews so far"`
	IterationCount int            `json:"iteration_count" jsonschema:"Rejected review count"`
	MaxIterations  int            `json:"max_iterations" jsonschema:"Iteration budget"`
	NextAction     string         `json:"next_action" jsonschema:"Instruction for the next actor"`
	CreatedAt      time.Time      `json:"created_at" jsonschema:"Creation time"`
	UpdatedAt      time.Time      `json:"updated_at" jsonschema:"Last update time"`
}

func snapshotOf(r *orchestrator.StatusResult) taskSnapshot {
	t := r.Task
	return taskSnapshot{
		ID:             t.ID,
		Request:        t.Request,
		State:          string(t.State),
		Criteria:       t.Criteria,
		Submissions:    len(t.Submissions),
		Reviews:        len(t.Reviews),
		IterationCount: t.IterationCount,
		MaxIterations:  t.MaxIterations,
		NextAction:     r.NextAction,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// ===== TASK TOOLS =====

type startTaskInput struct {
	Request string `json:"request" jsonschema:"required,The user request to decompose into acceptance criteria"`
}

type startTaskOutput struct {
	TaskID     string         `json:"task_id" jsonschema:"New task identifier"`
	State      string         `json:"state" jsonschema:"Task state after decomposition"`
	Criteria   *task.Criteria `json:"criteria,omitempty" jsonschema:"Decomposed acceptance criteria"`
	NextAction string         `json:"next_action" jsonschema:"Instruction for the next actor"`
}

type retryDecompositionInput struct {
	TaskID string `json:"task_id" jsonschema:"required,Task stuck in the decomposing state"`
}

type taskStatusInput struct {
	TaskID string `json:"task_id" jsonschema:"required,Task identifier"`
}

type listTasksInput struct{}

type listTasksOutput struct {
	Tasks []taskSnapshot `json:"tasks" jsonschema:"All known tasks ordered by creation time"`
	Count int            `json:"count" jsonschema:"Number of tasks returned"`
}

type forceStopInput struct {
	TaskID string `json:"task_id" jsonschema:"required,Task to stop"`
}

type forceStopOutput struct {
	TaskID      string `json:"task_id" jsonschema:"Task identifier"`
	State       string `json:"state" jsonschema:"Task state at stop time"`
	BestCode    string `json:"best_code,omitempty" jsonschema:"Latest submitted code if any"`
	Submissions int    `json:"submissions" jsonschema:"Number of submissions recorded"`
	Reviews     int    `json:"reviews" jsonschema:"Number of reviews recorded"`
}

func startResultOutput(r *orchestrator.StartResult) startTaskOutput {
	if r == nil {
		return startTaskOutput{}
	}
	return startTaskOutput{
		TaskID:     r.TaskID,
		State:      string(r.State),
		Criteria:   r.Criteria,
		NextAction: r.NextAction,
	}
}

// retriableError embeds the task ID and pending action into the error
// text. The SDK surfaces only the error on failure, so without this the
// caller would have to rediscover the retriable task via list_tasks.
func retriableError(r *orchestrator.StartResult, err error) error {
	return fmt.Errorf("task %s is retriable (%s): %w", r.TaskID, r.NextAction, err)
}

func (s *Server) registerTaskTools() {
	// start_task
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "start_task",
		Description: "Create a task from a user request and decompose it into acceptance criteria",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args startTaskInput) (*mcp.CallToolResult, startTaskOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "start_task")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "start_task")
			s.metrics.RecordInvocation(ctx, "start_task", time.Since(start), toolErr)
		}()

		result, err := s.svc.StartTask(ctx, args.Request)
		if err != nil {
			toolErr = err
			// Decomposition failures still surface the retriable task ID.
			if result != nil {
				return nil, startResultOutput(result), retriableError(result, err)
			}
			return nil, startTaskOutput{}, err
		}
		return nil, startResultOutput(result), nil
	})

	// retry_decomposition
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "retry_decomposition",
		Description: "Retry criteria decomposition for a task whose previous attempt failed",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args retryDecompositionInput) (*mcp.CallToolResult, startTaskOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "retry_decomposition")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "retry_decomposition")
			s.metrics.RecordInvocation(ctx, "retry_decomposition", time.Since(start), toolErr)
		}()

		result, err := s.svc.RetryDecomposition(ctx, args.TaskID)
		if err != nil {
			toolErr = err
			if result != nil {
				return nil, startResultOutput(result), retriableError(result, err)
			}
			return nil, startTaskOutput{}, err
		}
		return nil, startResultOutput(result), nil
	})

	// get_task_status
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_task_status",
		Description: "Get the current state, criteria, and history counts for a task",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args taskStatusInput) (*mcp.CallToolResult, taskSnapshot, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "get_task_status")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "get_task_status")
			s.metrics.RecordInvocation(ctx, "get_task_status", time.Since(start), toolErr)
		}()

		result, err := s.svc.TaskStatus(ctx, args.TaskID)
		if err != nil {
			toolErr = err
			return nil, taskSnapshot{}, err
		}
		return nil, snapshotOf(result), nil
	})

	// list_tasks
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List all tasks with their states and pending actions",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listTasksInput) (*mcp.CallToolResult, listTasksOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "list_tasks")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "list_tasks")
			s.metrics.RecordInvocation(ctx, "list_tasks", time.Since(start), toolErr)
		}()

		results, err := s.svc.ListTasks(ctx)
		if err != nil {
			toolErr = err
			return nil, listTasksOutput{}, err
		}
		out := listTasksOutput{Tasks: make([]taskSnapshot, 0, len(results))}
		for _, r := range results {
			out.Tasks = append(out.Tasks, snapshotOf(r))
		}
		out.Count = len(out.Tasks)
		return nil, out, nil
	})

	// force_stop
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "force_stop",
		Description: "Emergency stop: report the best code so far and clear agent registrations",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args forceStopInput) (*mcp.CallToolResult, forceStopOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "force_stop")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "force_stop")
			s.metrics.RecordInvocation(ctx, "force_stop", time.Since(start), toolErr)
		}()

		result, err := s.svc.ForceStop(ctx, args.TaskID)
		if err != nil {
			toolErr = err
			return nil, forceStopOutput{}, err
		}
		return nil, forceStopOutput{
			TaskID:      result.TaskID,
			State:       string(result.State),
			BestCode:    result.BestCode,
			Submissions: result.Submissions,
			Reviews:     result.Reviews,
		}, nil
	})
}

// ===== SUBMISSION TOOLS =====

type submitCodeInput struct {
	TaskID      string `json:"task_id" jsonschema:"required,Task in the awaiting_submission state"`
	Code        string `json:"code" jsonschema:"required,The code being submitted"`
	Description string `json:"description,omitempty" jsonschema:"What the code does and why"`
	SessionID   string `json:"session_id,omitempty" jsonschema:"Writer session identifier"`
}

type submitCodeOutput struct {
	Accepted        bool                   `json:"accepted" jsonschema:"Whether the submission was recorded"`
	TaskID          string                 `json:"task_id" jsonschema:"Task identifier"`
	State           string                 `json:"state" jsonschema:"Task state after submission"`
	SubmissionIndex int                    `json:"submission_index" jsonschema:"Index of the recorded submission"`
	NextAction      string                 `json:"next_action" jsonschema:"Instruction for the next actor"`
	Advisory        *orchestrator.Advisory `json:"advisory,omitempty" jsonschema:"Advisory alignment verdict for the validator"`
}

type submitReviewInput struct {
	TaskID          string `json:"task_id" jsonschema:"required,Task in the awaiting_review state"`
	SubmissionIndex *int   `json:"submission_index,omitempty" jsonschema:"Submission being reviewed (defaults to the latest)"`
	Feedback        string `json:"feedback,omitempty" jsonschema:"Review feedback for the writer"`
	Approved        bool   `json:"approved" jsonschema:"required,Whether the submission is approved"`
	SessionID       string `json:"session_id,omitempty" jsonschema:"Validator session identifier"`
}

type submitReviewOutput struct {
	TaskID         string `json:"task_id" jsonschema:"Task identifier"`
	Status         string `json:"status" jsonschema:"Task state after the review"`
	IterationCount int    `json:"iteration_count" jsonschema:"Rejected review count"`
	NextAction     string `json:"next_action" jsonschema:"Instruction for the next actor"`
}

func (s *Server) registerSubmissionTools() {
	// submit_code
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "submit_code",
		Description: "Writer submits code for the current task iteration",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args submitCodeInput) (*mcp.CallToolResult, submitCodeOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "submit_code")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "submit_code")
			s.metrics.RecordInvocation(ctx, "submit_code", time.Since(start), toolErr)
		}()

		result, err := s.svc.SubmitCode(ctx, args.TaskID, args.Code, args.Description, args.SessionID)
		if err != nil {
			toolErr = err
			return nil, submitCodeOutput{}, err
		}
		return nil, submitCodeOutput{
			Accepted:        result.Accepted,
			TaskID:          result.TaskID,
			State:           string(result.State),
			SubmissionIndex: result.SubmissionIndex,
			NextAction:      result.NextAction,
			Advisory:        result.Advisory,
		}, nil
	})

	// submit_review
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "submit_review",
		Description: "Validator approves or rejects the latest submission",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args submitReviewInput) (*mcp.CallToolResult, submitReviewOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "submit_review")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "submit_review")
			s.metrics.RecordInvocation(ctx, "submit_review", time.Since(start), toolErr)
		}()

		index := -1
		if args.SubmissionIndex != nil {
			index = *args.SubmissionIndex
		}
		result, err := s.svc.SubmitReview(ctx, args.TaskID, index, args.Feedback, args.Approved, args.SessionID)
		if err != nil {
			toolErr = err
			return nil, submitReviewOutput{}, err
		}
		return nil, submitReviewOutput{
			TaskID:         result.TaskID,
			Status:         string(result.Status),
			IterationCount: result.IterationCount,
			NextAction:     result.NextAction,
		}, nil
	})
}

// ===== SESSION TOOLS =====

type registerAgentInput struct {
	Role      string `json:"role" jsonschema:"required,Agent role: writer or validator"`
	SessionID string `json:"session_id" jsonschema:"required,Unique session identifier for this agent"`
}

type registerAgentOutput struct {
	Role       string `json:"role" jsonschema:"Registered role"`
	Registered bool   `json:"registered" jsonschema:"Whether registration succeeded"`
	Ready      bool   `json:"ready" jsonschema:"True once both writer and validator are registered"`
}

type fetchStateInput struct{}

type fetchStateOutput struct {
	WriterID    string         `json:"writer_id,omitempty" jsonschema:"Registered writer session"`
	ValidatorID string         `json:"validator_id,omitempty" jsonschema:"Registered validator session"`
	Ready       bool           `json:"ready" jsonschema:"True once both roles are registered"`
	Tasks       []taskSnapshot `json:"tasks" jsonschema:"All known tasks"`
}

func (s *Server) registerSessionTools() {
	// register_agent
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "register_agent",
		Description: "Register a writer or validator agent session (writer must register first)",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args registerAgentInput) (*mcp.CallToolResult, registerAgentOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "register_agent")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "register_agent")
			s.metrics.RecordInvocation(ctx, "register_agent", time.Since(start), toolErr)
		}()

		role := session.Role(args.Role)
		if err := s.sessions.Register(role, args.SessionID); err != nil {
			toolErr = err
			return nil, registerAgentOutput{}, err
		}
		snap := s.sessions.State()
		s.logger.Info("agent registered",
			zap.String("role", args.Role),
			zap.String("session_id", args.SessionID))
		return nil, registerAgentOutput{
			Role:       args.Role,
			Registered: true,
			Ready:      snap.WriterID != "" && snap.ValidatorID != "",
		}, nil
	})

	// fetch_state
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "fetch_state",
		Description: "Fetch the coordination state: registered agents and all tasks",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fetchStateInput) (*mcp.CallToolResult, fetchStateOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "fetch_state")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "fetch_state")
			s.metrics.RecordInvocation(ctx, "fetch_state", time.Since(start), toolErr)
		}()

		snap := s.sessions.State()
		results, err := s.svc.ListTasks(ctx)
		if err != nil {
			toolErr = err
			return nil, fetchStateOutput{}, err
		}
		out := fetchStateOutput{
			WriterID:    snap.WriterID,
			ValidatorID: snap.ValidatorID,
			Ready:       snap.WriterID != "" && snap.ValidatorID != "",
			Tasks:       make([]taskSnapshot, 0, len(results)),
		}
		for _, r := range results {
			out.Tasks = append(out.Tasks, snapshotOf(r))
		}
		return nil, out, nil
	})
}
