package task

import "errors"

// Validation errors.
var (
	ErrEmptyRequest = errors.New("request text is required")
	ErrEmptyCode    = errors.New("code is required")
	ErrNilCriteria  = errors.New("criteria cannot be nil")
)

// Lifecycle errors.
var (
	ErrNotFound          = errors.New("task not found")
	ErrAlreadyExists     = errors.New("task already exists")
	ErrInvalidState      = errors.New("operation not valid in current task state")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrStaleReview       = errors.New("review targets a superseded submission")
	ErrCriteriaAttached  = errors.New("criteria are immutable once attached")
)
