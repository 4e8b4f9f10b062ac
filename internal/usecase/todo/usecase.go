package todo_usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
)

// ===== エラー（Handler側で errors.Is / errors.As する） =====

var (
	ErrNotFound = domain_todo.ErrNotFound
)

// ===== 外部に公開する Usecase インターフェース =====

// Usecase は Record Store の契約。どのリポジトリ実装でも同じ振る舞いになる。
type Usecase interface {
	List(ctx context.Context) ([]*domain_todo.Todo, error)
	Create(ctx context.Context, in domain_todo.NewTodo) (*domain_todo.Todo, error)
	Get(ctx context.Context, id int64) (*domain_todo.Todo, error)
	Update(ctx context.Context, id int64, p domain_todo.Patch) (*domain_todo.Todo, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// ===== 実装 =====

type usecase struct {
	repo   domain_todo.Repository
	logger *zap.Logger
	now    func() time.Time
}

func New(repo domain_todo.Repository, logger *zap.Logger) Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &usecase{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// List ユースケース
func (u *usecase) List(ctx context.Context) ([]*domain_todo.Todo, error) {
	todos, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []*domain_todo.Todo{}
	}
	return todos, nil
}

// Create ユースケース
func (u *usecase) Create(ctx context.Context, in domain_todo.NewTodo) (*domain_todo.Todo, error) {
	in = in.Normalize()
	if err := domain_todo.ValidateNew(in); err != nil {
		return nil, err
	}

	t, err := u.repo.Create(ctx, in.Build(u.now()))
	if err != nil {
		return nil, err
	}

	u.logger.Info("todo created", zap.Int64("id", t.ID))
	return t, nil
}

// Get ユースケース。ありえない ID は問い合わせずに NotFound。
func (u *usecase) Get(ctx context.Context, id int64) (*domain_todo.Todo, error) {
	if !domain_todo.ValidID(id) {
		return nil, ErrNotFound
	}
	return u.repo.Get(ctx, id)
}

// Update ユースケース。存在確認を先に行い、その後で入力を検証する。
func (u *usecase) Update(ctx context.Context, id int64, p domain_todo.Patch) (*domain_todo.Todo, error) {
	if !domain_todo.ValidID(id) {
		return nil, ErrNotFound
	}
	if _, err := u.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	p = p.Normalize()
	if err := domain_todo.ValidatePatch(p); err != nil {
		return nil, err
	}

	t, err := u.repo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}

	u.logger.Info("todo updated", zap.Int64("id", id))
	return t, nil
}

// Delete ユースケース
func (u *usecase) Delete(ctx context.Context, id int64) error {
	if !domain_todo.ValidID(id) {
		return ErrNotFound
	}
	if err := u.repo.Delete(ctx, id); err != nil {
		return err
	}

	u.logger.Info("todo deleted", zap.Int64("id", id))
	return nil
}

// Ping はストアの疎通確認。
func (u *usecase) Ping(ctx context.Context) error {
	return u.repo.Ping(ctx)
}
