package todo

import (
	"errors"
	"strings"
	"time"
)

// Todo は Todo 集約のルートエンティティ。
type Todo struct {
	ID        int64
	Task      string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTodo は作成リクエストの入力。nil は「未指定」。
type NewTodo struct {
	Task      *string `validate:"required,min=1,max=255"`
	Completed *bool
}

// Patch は部分更新の入力。nil のフィールドは変更しない。
type Patch struct {
	Task      *string `validate:"omitempty,min=1,max=255"`
	Completed *bool
}

// IsEmpty は何も変更しない Patch かどうか。
func (p Patch) IsEmpty() bool {
	return p.Task == nil && p.Completed == nil
}

// Normalize は task の前後の空白を落とす。空白だけの task は未指定として扱う。
func (n NewTodo) Normalize() NewTodo {
	n.Task = trimTask(n.Task)
	if n.Task != nil && *n.Task == "" {
		n.Task = nil
	}
	return n
}

// Normalize は task の前後の空白を落とす。空白だけの task は空文字になり、検証で弾かれる。
func (p Patch) Normalize() Patch {
	p.Task = trimTask(p.Task)
	return p
}

func trimTask(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// ---- ドメインエラー（sentinel error） ----

var (
	// 指定 ID の Todo が存在しない。
	ErrNotFound = errors.New("todo not found")
)

// ---- ファクトリ ----

// Build は検証済みの NewTodo から永続化前の Todo を作る。
// completed 未指定時は false。
func (n NewTodo) Build(now time.Time) *Todo {
	t := &Todo{
		CreatedAt: now,
		UpdatedAt: now,
	}
	if n.Task != nil {
		t.Task = *n.Task
	}
	if n.Completed != nil {
		t.Completed = *n.Completed
	}
	return t
}

// Apply は Patch の指定フィールドだけを上書きする。変更があれば UpdatedAt を進める。
func (t *Todo) Apply(p Patch, now time.Time) {
	if p.IsEmpty() {
		return
	}
	if p.Task != nil {
		t.Task = *p.Task
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	t.UpdatedAt = now
}

// Clone は呼び出し側に渡す用のコピー。
func (t *Todo) Clone() *Todo {
	c := *t
	return &c
}

// ValidID は ID が採番されうる値かどうか。
func ValidID(id int64) bool {
	return id > 0
}
