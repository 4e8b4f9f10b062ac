// Package memory はプロセス内だけで完結する Todo リポジトリ。再起動で消える。
package memory

import (
	"context"
	"sync"
	"time"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
)

// TodoRepository は挿入順を保つスライスと単調増加の ID カウンタで Todo を持つ。
// 削除後も ID は再利用しない。
type TodoRepository struct {
	mu    sync.RWMutex
	next  int64
	items []*domain_todo.Todo
	now   func() time.Time
}

func NewTodoRepository() *TodoRepository {
	return &TodoRepository{
		next: 1,
		now:  time.Now,
	}
}

// Create は ID を採番して末尾に追加する。
func (r *TodoRepository) Create(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := t.Clone()
	stored.ID = r.next
	r.next++
	r.items = append(r.items, stored)

	return stored.Clone(), nil
}

// List は挿入順で全件返す。
func (r *TodoRepository) List(ctx context.Context) ([]*domain_todo.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	todos := make([]*domain_todo.Todo, 0, len(r.items))
	for _, t := range r.items {
		todos = append(todos, t.Clone())
	}
	return todos, nil
}

func (r *TodoRepository) Get(ctx context.Context, id int64) (*domain_todo.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, domain_todo.ErrNotFound
	}
	return r.items[i].Clone(), nil
}

func (r *TodoRepository) Update(ctx context.Context, id int64, p domain_todo.Patch) (*domain_todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, domain_todo.ErrNotFound
	}
	r.items[i].Apply(p, r.now())
	return r.items[i].Clone(), nil
}

// Delete は順序を保ったまま取り除く。
func (r *TodoRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return domain_todo.ErrNotFound
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return nil
}

// Ping は常に成功する。
func (r *TodoRepository) Ping(ctx context.Context) error {
	return nil
}

// indexOf は呼び出し側でロック済みであること。
func (r *TodoRepository) indexOf(id int64) int {
	for i, t := range r.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}
