package todo

import "context"

// Repository は Todo の永続化の契約。メモリ版と DB 版の両方がこれを満たす。
//
// Get / Update / Delete は対象が無ければ ErrNotFound を返す。
// 入力の検証は呼び出し側（usecase）の責務。
type Repository interface {
	List(ctx context.Context) ([]*Todo, error)
	Create(ctx context.Context, t *Todo) (*Todo, error)
	Get(ctx context.Context, id int64) (*Todo, error)
	Update(ctx context.Context, id int64, p Patch) (*Todo, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}
