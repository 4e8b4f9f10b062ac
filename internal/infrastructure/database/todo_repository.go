package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
)

// todoRow は todos テーブルの 1 行。
type todoRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Task      string `gorm:"size:255;not null"`
	Completed bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (todoRow) TableName() string { return "todos" }

func fromDomain(t *domain_todo.Todo) todoRow {
	return todoRow{
		ID:        t.ID,
		Task:      t.Task,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (r todoRow) toDomain() *domain_todo.Todo {
	return &domain_todo.Todo{
		ID:        r.ID,
		Task:      r.Task,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// TodoRepository は todos テーブルを gorm 経由で扱う。ID は DB の auto increment。
type TodoRepository struct {
	db        *gorm.DB
	tx        *TxManager
	logger    *zap.Logger
	readRetry RetryPolicy
	tracer    trace.Tracer
	now       func() time.Time
}

func NewTodoRepository(db *gorm.DB, logger *zap.Logger) *TodoRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoRepository{
		db:        db,
		tx:        NewTxManager(db, logger),
		logger:    logger,
		readRetry: DefaultReadRetry,
		tracer:    otel.Tracer("github.com/hijjiri/todo-api/internal/infrastructure/database"),
		now:       time.Now,
	}
}

// conn は ctx に Tx があればそれを、無ければ通常の DB を返す。
func (r *TodoRepository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *TodoRepository) startSpan(ctx context.Context, op string, id int64) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, "todos."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.operation", op)),
	)
	if id != 0 {
		span.SetAttributes(attribute.Int64("todo.id", id))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain_todo.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Create は INSERT して採番済みの Todo を返す。
func (r *TodoRepository) Create(ctx context.Context, t *domain_todo.Todo) (_ *domain_todo.Todo, err error) {
	ctx, span := r.startSpan(ctx, "create", 0)
	defer func() { endSpan(span, err) }()

	row := fromDomain(t)
	row.ID = 0
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}
	return row.toDomain(), nil
}

// List は id 昇順で全件返す。一時的なエラーは再試行する。
func (r *TodoRepository) List(ctx context.Context) (_ []*domain_todo.Todo, err error) {
	ctx, span := r.startSpan(ctx, "list", 0)
	defer func() { endSpan(span, err) }()

	var rows []todoRow
	err = doWithRetry(ctx, r.readRetry, func() error {
		rows = rows[:0]
		return r.conn(ctx).Order("id").Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("select todos: %w", err)
	}

	todos := make([]*domain_todo.Todo, 0, len(rows))
	for _, row := range rows {
		todos = append(todos, row.toDomain())
	}
	return todos, nil
}

func (r *TodoRepository) Get(ctx context.Context, id int64) (_ *domain_todo.Todo, err error) {
	ctx, span := r.startSpan(ctx, "get", id)
	defer func() { endSpan(span, err) }()

	var row todoRow
	err = doWithRetry(ctx, r.readRetry, func() error {
		return r.conn(ctx).First(&row, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain_todo.ErrNotFound
		}
		return nil, fmt.Errorf("select todo %d: %w", id, err)
	}
	return row.toDomain(), nil
}

// Update は SELECT と UPDATE を 1 トランザクションで行う。
func (r *TodoRepository) Update(ctx context.Context, id int64, p domain_todo.Patch) (_ *domain_todo.Todo, err error) {
	ctx, span := r.startSpan(ctx, "update", id)
	defer func() { endSpan(span, err) }()

	var updated *domain_todo.Todo
	err = r.tx.WithinTx(ctx, func(ctx context.Context) error {
		conn := r.conn(ctx)

		var row todoRow
		if err := conn.First(&row, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain_todo.ErrNotFound
			}
			return fmt.Errorf("select todo %d: %w", id, err)
		}

		t := row.toDomain()
		if p.IsEmpty() {
			updated = t
			return nil
		}

		t.Apply(p, r.now())
		row = fromDomain(t)
		if err := conn.Save(&row).Error; err != nil {
			return fmt.Errorf("update todo %d: %w", id, err)
		}
		updated = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete は物理削除。論理削除はしない。
func (r *TodoRepository) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := r.startSpan(ctx, "delete", id)
	defer func() { endSpan(span, err) }()

	res := r.conn(ctx).Delete(&todoRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete todo %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain_todo.ErrNotFound
	}
	return nil
}

// Ping は DB への疎通確認。ヘルスチェックから呼ばれる。
func (r *TodoRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
