package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triadd/internal/observer"
	"github.com/fyrsmithlabs/triadd/internal/session"
	"github.com/fyrsmithlabs/triadd/internal/task"
	"github.com/fyrsmithlabs/triadd/internal/worklog"
)

// Config configures the orchestrator service.
type Config struct {
	// MaxIterations is the retry budget for rejected submissions
	// (default: task.DefaultMaxIterations).
	MaxIterations int `koanf:"max_iterations"`
}

// Service is the submission/review gateway. Tasks are isolated from each
// other: a per-task mutex serializes all operations touching one task ID,
// and no operation holds that lock across more than one outbound call.
type Service struct {
	repo          task.Repository
	decomposer    Decomposer
	checker       AlignmentChecker
	sessions      *session.Registry
	worklog       *worklog.Manager
	logger        *zap.Logger
	maxIterations int

	taskLocks sync.Map // task ID -> *sync.Mutex
}

// NewService creates the gateway. checker, sessions and wl are optional:
// a nil checker skips the advisory pre-review, a nil sessions registry
// disables role enforcement, and a nil worklog disables the audit trail.
func NewService(repo task.Repository, decomposer Decomposer, checker AlignmentChecker, sessions *session.Registry, wl *worklog.Manager, cfg Config, logger *zap.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("task repository is required")
	}
	if decomposer == nil {
		return nil, fmt.Errorf("decomposer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = task.DefaultMaxIterations
	}

	return &Service{
		repo:          repo,
		decomposer:    decomposer,
		checker:       checker,
		sessions:      sessions,
		worklog:       wl,
		logger:        logger,
		maxIterations: maxIterations,
	}, nil
}

// lockTask returns the mutex guarding one task's read-modify-write cycles.
func (s *Service) lockTask(id string) *sync.Mutex {
	mu, _ := s.taskLocks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// authorize enforces role ownership when a session registry is configured.
func (s *Service) authorize(role session.Role, sessionID string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Authorize(role, sessionID)
}

// StartTask creates a task and drives it through decomposition. On
// decomposition failure the returned result still identifies the task,
// which stays in the decomposing state and can be retried with
// RetryDecomposition.
func (s *Service) StartTask(ctx context.Context, request string) (*StartResult, error) {
	t, err := task.New(request, s.maxIterations)
	if err != nil {
		return nil, err
	}
	if err := t.BeginDecomposition(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.worklog.Append("start_task", t.ID, map[string]any{"request": request})
	s.logger.Info("task created",
		zap.String("task_id", t.ID),
		zap.Int("max_iterations", t.MaxIterations))

	return s.decompose(ctx, t.ID)
}

// RetryDecomposition re-runs decomposition for a task left in the
// decomposing state by an earlier failure.
func (s *Service) RetryDecomposition(ctx context.Context, taskID string) (*StartResult, error) {
	s.worklog.Append("retry_decomposition", taskID, nil)
	return s.decompose(ctx, taskID)
}

// decompose runs the single outbound decomposition call under the task
// lock and attaches the result.
func (s *Service) decompose(ctx context.Context, taskID string) (*StartResult, error) {
	mu := s.lockTask(taskID)
	mu.Lock()
	defer mu.Unlock()

	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.State != task.StateDecomposing {
		return nil, fmt.Errorf("%w: task %s is %s, expected %s",
			task.ErrInvalidState, t.ID, t.State, task.StateDecomposing)
	}

	criteria, err := s.decomposer.Decompose(ctx, t.Request)
	if err != nil {
		s.worklog.Append("decomposition_failed", t.ID, map[string]any{"error": err.Error()})
		s.logger.Warn("decomposition failed, task retriable",
			zap.String("task_id", t.ID),
			zap.Error(err))
		return &StartResult{
			TaskID:     t.ID,
			State:      task.StateDecomposing,
			NextAction: ActionRetryDecomposition,
		}, err
	}

	if err := t.AttachCriteria(criteria); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.worklog.Append("criteria_attached", t.ID, criteria)
	s.logger.Info("criteria attached",
		zap.String("task_id", t.ID),
		zap.Int("requirements", len(criteria.Requirements)))

	return &StartResult{
		TaskID:     t.ID,
		State:      t.State,
		Criteria:   t.Criteria,
		NextAction: nextActionFor(t.State),
	}, nil
}

// SubmitCode records a Writer submission and moves the task to
// awaiting_review. The advisory alignment/viability check runs after the
// submission is durably recorded; its failure is silently dropped and its
// verdict never blocks the Validator review.
func (s *Service) SubmitCode(ctx context.Context, taskID, code, description, sessionID string) (*SubmitResult, error) {
	if err := s.authorize(session.RoleWriter, sessionID); err != nil {
		return nil, err
	}

	mu := s.lockTask(taskID)
	mu.Lock()
	defer mu.Unlock()

	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	sub, err := t.AddSubmission(code, description)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.worklog.Append("submit_code", t.ID, map[string]any{
		"submission_index": sub.Index,
		"description":      description,
	})
	s.worklog.Snapshot(fmt.Sprintf("submission_%d", sub.Index), sub)
	s.logger.Info("submission recorded",
		zap.String("task_id", t.ID),
		zap.Int("submission_index", sub.Index))

	result := &SubmitResult{
		Accepted:        true,
		TaskID:          t.ID,
		State:           t.State,
		SubmissionIndex: sub.Index,
		NextAction:      nextActionFor(t.State),
	}
	result.Advisory = s.advise(ctx, t, sub)
	return result, nil
}

// advise runs the best-effort pre-review check. Returns nil when the
// checker is absent or errors: the task proceeds to Validator review
// either way.
func (s *Service) advise(ctx context.Context, t *task.Task, sub *task.Submission) *Advisory {
	if s.checker == nil {
		return nil
	}

	verdict, err := s.checker.CheckAlignment(ctx, t.Criteria, sub.Code, sub.Description)
	if err != nil {
		s.logger.Warn("alignment check unavailable, proceeding to review",
			zap.String("task_id", t.ID),
			zap.Error(err))
		return nil
	}

	advisory := &Advisory{
		Aligned: verdict.Aligned,
		Viable:  observer.CheckViability(sub.Code),
		Reasons: verdict.Reasons,
	}
	s.logger.Info("submission advisory",
		zap.String("task_id", t.ID),
		zap.Bool("aligned", advisory.Aligned),
		zap.Bool("viable", advisory.Viable))
	return advisory
}

// SubmitReview records a Validator verdict and applies the transition
// table. submissionIndex < 0 targets the latest submission; an explicit
// index that is not the latest is rejected, so a late review from a
// superseded iteration cannot corrupt state. Reaching the iteration cap
// is a normal, reportable outcome, not an error.
func (s *Service) SubmitReview(ctx context.Context, taskID string, submissionIndex int, feedback string, approved bool, sessionID string) (*ReviewResult, error) {
	if err := s.authorize(session.RoleValidator, sessionID); err != nil {
		return nil, err
	}

	mu := s.lockTask(taskID)
	mu.Lock()
	defer mu.Unlock()

	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	latest := t.LatestSubmission()
	if latest == nil {
		return nil, fmt.Errorf("%w: task %s has no submission to review",
			task.ErrInvalidState, t.ID)
	}
	if submissionIndex < 0 {
		submissionIndex = latest.Index
	}

	status, err := t.AddReview(submissionIndex, feedback, approved)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.worklog.Append("submit_review", t.ID, map[string]any{
		"submission_index": submissionIndex,
		"approved":         approved,
		"feedback":         feedback,
		"status":           status,
	})
	s.logger.Info("review recorded",
		zap.String("task_id", t.ID),
		zap.Bool("approved", approved),
		zap.String("status", string(status)),
		zap.Int("iteration_count", t.IterationCount))

	next := nextActionFor(status)
	if status == task.StateAwaitingSubmission {
		next = ActionWriterRevise
	}
	return &ReviewResult{
		TaskID:         t.ID,
		Status:         status,
		IterationCount: t.IterationCount,
		NextAction:     next,
	}, nil
}

// TaskStatus returns a snapshot of one task.
func (s *Service) TaskStatus(ctx context.Context, taskID string) (*StatusResult, error) {
	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Task: t, NextAction: nextActionFor(t.State)}, nil
}

// ListTasks returns snapshots of all tasks ordered by creation time.
func (s *Service) ListTasks(ctx context.Context) ([]*StatusResult, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*StatusResult, 0, len(tasks))
	for _, t := range tasks {
		results = append(results, &StatusResult{Task: t, NextAction: nextActionFor(t.State)})
	}
	return results, nil
}

// ForceStop is the user-triggered emergency stop: it reports the best code
// recorded so far and clears agent registrations so a fresh Writer and
// Validator can join. Task history is left intact for audit; terminal
// tasks are reported as-is.
func (s *Service) ForceStop(ctx context.Context, taskID string) (*StopResult, error) {
	mu := s.lockTask(taskID)
	mu.Lock()
	defer mu.Unlock()

	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	best := ""
	if sub := t.LatestSubmission(); sub != nil {
		best = sub.Code
	}

	if s.sessions != nil {
		s.sessions.Reset()
	}
	s.worklog.Append("force_stop", t.ID, map[string]any{
		"state":       t.State,
		"submissions": len(t.Submissions),
	})
	s.logger.Info("force stop",
		zap.String("task_id", t.ID),
		zap.String("state", string(t.State)))

	return &StopResult{
		TaskID:      t.ID,
		State:       t.State,
		BestCode:    best,
		Submissions: len(t.Submissions),
		Reviews:     len(t.Reviews),
	}, nil
}

// IsNotFound reports whether err is the unknown-task error.
func IsNotFound(err error) bool {
	return errors.Is(err, task.ErrNotFound)
}

// IsInvalidState reports whether err is a state-machine precondition
// violation (including stale reviews).
func IsInvalidState(err error) bool {
	return errors.Is(err, task.ErrInvalidState) || errors.Is(err, task.ErrStaleReview) ||
		errors.Is(err, task.ErrInvalidTransition)
}
