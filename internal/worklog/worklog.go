// Package worklog keeps an append-only audit trail of workflow events on
// disk. Each process run writes into its own session directory so
// concurrent orchestrators never share files. The log is write-only from
// the orchestrator's perspective: nothing is ever replayed back into task
// state, which keeps in-memory tasks the single source of truth.
package worklog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const logFileName = "workflow.log"

// Entry is one audit record in the JSONL event log.
type Entry struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	TaskID    string    `json:"task_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Manager appends workflow events to a per-run session directory.
// Safe for concurrent use. A nil *Manager is a valid no-op writer, so
// callers can treat the worklog as optional without nil checks.
type Manager struct {
	mu     sync.Mutex
	dir    string
	runID  string
	logger *zap.Logger
}

// NewManager creates the session directory <root>/<timestamp>_<runID> and
// returns a manager writing into it.
func NewManager(root string, logger *zap.Logger) (*Manager, error) {
	if root == "" {
		return nil, fmt.Errorf("worklog root directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	runID := uuid.NewString()[:8]
	dir := filepath.Join(root, fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), runID))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating worklog directory %s: %w", dir, err)
	}

	logger.Info("worklog initialized",
		zap.String("dir", dir),
		zap.String("run_id", runID))

	return &Manager{dir: dir, runID: runID, logger: logger}, nil
}

// Dir returns the session directory, or "" for the no-op manager.
func (m *Manager) Dir() string {
	if m == nil {
		return ""
	}
	return m.dir
}

// Append writes one event to the JSONL log. Audit failures are logged and
// swallowed; the audit trail must never block the workflow.
func (m *Manager) Append(event, taskID string, data any) {
	if m == nil {
		return
	}

	entry := Entry{
		RunID:     m.runID,
		Timestamp: time.Now().UTC(),
		Event:     event,
		TaskID:    taskID,
		Data:      data,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		m.logger.Warn("worklog entry not serializable",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(m.dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		m.logger.Warn("worklog open failed", zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		m.logger.Warn("worklog append failed", zap.Error(err))
	}
}

// Snapshot writes data to a uniquely named JSON file in the session
// directory. Files are created exclusively and never overwritten.
func (m *Manager) Snapshot(name string, data any) {
	if m == nil {
		return
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		m.logger.Warn("worklog snapshot not serializable",
			zap.String("name", name),
			zap.Error(err))
		return
	}

	path := filepath.Join(m.dir, fmt.Sprintf("%s_%s.json", name, time.Now().Format("20060102_150405.000")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		m.logger.Warn("worklog snapshot open failed",
			zap.String("path", path),
			zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(payload); err != nil {
		m.logger.Warn("worklog snapshot write failed",
			zap.String("path", path),
			zap.Error(err))
	}
}
