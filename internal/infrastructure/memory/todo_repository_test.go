package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"github.com/hijjiri/todo-api/internal/domain/todo/todotest"
)

func TestTodoRepository_Contract(t *testing.T) {
	todotest.RunRepositoryContract(t, func(t *testing.T) domain_todo.Repository {
		return NewTodoRepository()
	})
}

func TestTodoRepository_ConcurrentCreate(t *testing.T) {
	todotest.RunConcurrentCreate(t, NewTodoRepository(), 64)
}

func TestTodoRepository_FirstIDIsOne(t *testing.T) {
	t.Parallel()

	repo := NewTodoRepository()
	task := "Buy milk"

	got, err := repo.Create(context.Background(), domain_todo.NewTodo{Task: &task}.Build(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}

func TestTodoRepository_DeleteKeepsOrder(t *testing.T) {
	t.Parallel()

	repo := NewTodoRepository()
	ctx := context.Background()

	for _, s := range []string{"A", "B", "C"} {
		task := s
		_, err := repo.Create(ctx, domain_todo.NewTodo{Task: &task}.Build(time.Now()))
		require.NoError(t, err)
	}
	require.NoError(t, repo.Delete(ctx, 2))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, int64(3), list[1].ID)
}

func TestTodoRepository_UpdateBumpsUpdatedAt(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(time.Minute)

	repo := NewTodoRepository()
	repo.now = func() time.Time { return later }

	task := "A"
	in, err := repo.Create(context.Background(), domain_todo.NewTodo{Task: &task}.Build(created))
	require.NoError(t, err)

	done := true
	got, err := repo.Update(context.Background(), in.ID, domain_todo.Patch{Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, later, got.UpdatedAt)
}
