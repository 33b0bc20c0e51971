// Package session tracks which external chat session holds the Writer and
// Validator roles. The two roles share nothing but the task they operate
// on, so this is a registry of capability holders, not an agent
// abstraction.
package session

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Role identifies an external driving agent.
type Role string

const (
	RoleWriter    Role = "writer"
	RoleValidator Role = "validator"
)

var (
	ErrEmptySessionID = errors.New("session_id is required")
	ErrUnknownRole    = errors.New("unknown role")
	ErrRoleTaken      = errors.New("role already registered")
	ErrWriterFirst    = errors.New("writer must register before validator")
	ErrNotRegistered  = errors.New("role not registered")
	ErrWrongRole      = errors.New("caller does not hold the required role")
)

// Snapshot is a point-in-time view of registrations.
type Snapshot struct {
	WriterID    string `json:"writer_id,omitempty"`
	ValidatorID string `json:"validator_id,omitempty"`
}

// Registry holds one Writer slot and one Validator slot. Safe for
// concurrent use.
type Registry struct {
	mu          sync.RWMutex
	writerID    string
	validatorID string
	logger      *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Register claims a role for the given session. Each role can be held by
// exactly one session, and the Validator can only join after the Writer.
func (r *Registry) Register(role Role, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch role {
	case RoleWriter:
		if r.writerID != "" {
			return fmt.Errorf("%w: writer is %s", ErrRoleTaken, r.writerID)
		}
		r.writerID = sessionID
	case RoleValidator:
		if r.validatorID != "" {
			return fmt.Errorf("%w: validator is %s", ErrRoleTaken, r.validatorID)
		}
		if r.writerID == "" {
			return ErrWriterFirst
		}
		r.validatorID = sessionID
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	r.logger.Info("agent registered",
		zap.String("role", string(role)),
		zap.String("session_id", sessionID))
	return nil
}

// Authorize checks that sessionID holds the required role. An empty
// sessionID is allowed through when the role is registered: callers that
// do not identify themselves are trusted, matching the loose coupling of
// the chat transports driving this server.
func (r *Registry) Authorize(role Role, sessionID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var holder string
	switch role {
	case RoleWriter:
		holder = r.writerID
	case RoleValidator:
		holder = r.validatorID
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	if holder == "" {
		return fmt.Errorf("%w: %s", ErrNotRegistered, role)
	}
	if sessionID != "" && sessionID != holder {
		return fmt.Errorf("%w: %s required", ErrWrongRole, role)
	}
	return nil
}

// State returns a snapshot of current registrations.
func (r *Registry) State() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{WriterID: r.writerID, ValidatorID: r.validatorID}
}

// Reset clears both registrations.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writerID = ""
	r.validatorID = ""
	r.logger.Info("agent registrations cleared")
}
