// Package todotest は todo.Repository 実装に共通のテストを提供する。
package todotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hijjiri/todo-api/internal/domain/todo"
)

// RunRepositoryContract は newRepo が返す空のリポジトリに対して契約を検証する。
func RunRepositoryContract(t *testing.T, newRepo func(t *testing.T) todo.Repository) {
	t.Helper()

	t.Run("list empty", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("create assigns unique ids", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a := mustCreate(t, repo, "A", false)
		b := mustCreate(t, repo, "B", true)

		assert.Positive(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, "B", b.Task)
		assert.True(t, b.Completed)

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, []string{"A", "B"}, tasks(list))
	})

	t.Run("create then get round trips", func(t *testing.T) {
		repo := newRepo(t)

		created := mustCreate(t, repo, "A", false)

		got, err := repo.Get(context.Background(), created.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(created, got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
			t.Errorf("todo mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("absent id is not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Get(ctx, 999)
		assert.ErrorIs(t, err, todo.ErrNotFound)

		done := true
		_, err = repo.Update(ctx, 999, todo.Patch{Completed: &done})
		assert.ErrorIs(t, err, todo.ErrNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, 999), todo.ErrNotFound)
	})

	t.Run("update touches only supplied fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created := mustCreate(t, repo, "Buy milk", true)

		task := "X"
		got, err := repo.Update(ctx, created.ID, todo.Patch{Task: &task})
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "X", got.Task)
		assert.True(t, got.Completed)

		done := false
		got, err = repo.Update(ctx, created.ID, todo.Patch{Completed: &done})
		require.NoError(t, err)
		assert.Equal(t, "X", got.Task)
		assert.False(t, got.Completed)

		stored, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "X", stored.Task)
		assert.False(t, stored.Completed)
	})

	t.Run("empty patch returns record unchanged", func(t *testing.T) {
		repo := newRepo(t)

		created := mustCreate(t, repo, "A", false)

		got, err := repo.Update(context.Background(), created.ID, todo.Patch{})
		require.NoError(t, err)
		assert.Equal(t, created.Task, got.Task)
		assert.Equal(t, created.Completed, got.Completed)
	})

	t.Run("delete is permanent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created := mustCreate(t, repo, "A", false)
		require.NoError(t, repo.Delete(ctx, created.ID))

		_, err := repo.Get(ctx, created.ID)
		assert.ErrorIs(t, err, todo.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, created.ID), todo.ErrNotFound)

		list, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a := mustCreate(t, repo, "A", false)
		b := mustCreate(t, repo, "B", false)
		require.NoError(t, repo.Delete(ctx, a.ID))

		c := mustCreate(t, repo, "C", false)
		assert.NotEqual(t, a.ID, c.ID)
		assert.NotEqual(t, b.ID, c.ID)
		assert.Greater(t, c.ID, b.ID)
	})

	t.Run("returned records are not aliased", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created := mustCreate(t, repo, "A", false)
		created.Task = "mutated by caller"

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Task)
	})

	t.Run("ping", func(t *testing.T) {
		repo := newRepo(t)
		assert.NoError(t, repo.Ping(context.Background()))
	})
}

// RunConcurrentCreate は並行 Create で ID が重複しないことを確かめる。
func RunConcurrentCreate(t *testing.T, repo todo.Repository, n int) {
	t.Helper()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool, n)
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := repo.Create(context.Background(), todo.NewTodo{Task: strPtr(fmt.Sprintf("task-%d", i))}.Build(time.Now()))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			seen[got.ID] = true
		}(i)
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, seen, n)
}

func mustCreate(t *testing.T, repo todo.Repository, task string, completed bool) *todo.Todo {
	t.Helper()

	in := todo.NewTodo{Task: &task, Completed: &completed}
	got, err := repo.Create(context.Background(), in.Build(time.Now()))
	require.NoError(t, err)
	return got
}

func tasks(list []*todo.Todo) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.Task)
	}
	return out
}

func strPtr(s string) *string { return &s }
