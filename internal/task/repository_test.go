package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryCreateGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	tk, err := New("build a parser", 3)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tk))

	got, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)
	assert.Equal(t, tk.Request, got.Request)

	assert.ErrorIs(t, repo.Create(ctx, tk), ErrAlreadyExists)
}

func TestMemoryRepositoryGetNotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryUpdate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	tk, err := New("build a parser", 3)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tk))

	require.NoError(t, tk.BeginDecomposition())
	require.NoError(t, repo.Update(ctx, tk))

	got, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDecomposing, got.State)

	orphan, err := New("never stored", 3)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Update(ctx, orphan), ErrNotFound)
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	tk, err := New("build a parser", 3)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tk))

	// Mutating the retrieved task must not affect stored state.
	got, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	got.State = StateApproved

	again, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCreated, again.State)
}

func TestMemoryRepositoryListOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, err := New("first", 3)
	require.NoError(t, err)
	second, err := New("second", 3)
	require.NoError(t, err)
	second.CreatedAt = first.CreatedAt.Add(time.Second)

	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "first", tasks[0].Request)
	assert.Equal(t, "second", tasks[1].Request)
}
