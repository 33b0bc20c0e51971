package task

import (
	"context"
	"sort"
	"sync"
)

// Repository stores tasks.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, t *Task) error
	List(ctx context.Context) ([]*Task, error)
}

// MemoryRepository is an in-memory implementation of Repository.
// It is thread-safe and suitable for single-instance deployments.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewMemoryRepository creates a new in-memory task repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tasks: make(map[string]*Task),
	}
}

// Create stores a new task.
func (r *MemoryRepository) Create(ctx context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.ID]; exists {
		return ErrAlreadyExists
	}
	// Store a copy to prevent external mutation
	r.tasks[t.ID] = t.Clone()
	return nil
}

// Get retrieves a task by ID.
func (r *MemoryRepository) Get(ctx context.Context, id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tasks[id]
	if !exists {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

// Update modifies an existing task.
func (r *MemoryRepository) Update(ctx context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.ID]; !exists {
		return ErrNotFound
	}
	r.tasks[t.ID] = t.Clone()
	return nil
}

// List returns all tasks ordered by creation time.
func (r *MemoryRepository) List(ctx context.Context) ([]*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		result = append(result, t.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
