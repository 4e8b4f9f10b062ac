package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/hijjiri/todo-api/internal/config"
	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"github.com/hijjiri/todo-api/internal/domain/todo/todotest"
)

// openTestDB はテストごとに一時ディレクトリの SQLite を開いてマイグレーションする。
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(config.DBConfig{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "todo.db"),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestTodoRepository_Contract(t *testing.T) {
	todotest.RunRepositoryContract(t, func(t *testing.T) domain_todo.Repository {
		return NewTodoRepository(openTestDB(t), zaptest.NewLogger(t))
	})
}

func TestTodoRepository_ConcurrentCreate(t *testing.T) {
	todotest.RunConcurrentCreate(t, NewTodoRepository(openTestDB(t), zaptest.NewLogger(t)), 16)
}

func TestTodoRepository_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")
	cfg := config.DBConfig{Driver: DriverSQLite, Path: path}
	ctx := context.Background()

	db, err := Open(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	task := "Buy milk"
	created, err := NewTodoRepository(db, nil).Create(ctx, domain_todo.NewTodo{Task: &task}.Build(time.Now()))
	require.NoError(t, err)
	require.NoError(t, Close(db))

	db, err = Open(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, Migrate(db))

	got, err := NewTodoRepository(db, nil).Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Task)
	assert.False(t, got.Completed)
}

func TestTodoRepository_CompletedDefaultsToFalseInTable(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("INSERT INTO todos (task, created_at, updated_at) VALUES (?, ?, ?)", "raw", time.Now(), time.Now()).Error)

	list, err := NewTodoRepository(db, nil).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Completed)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	repo := NewTodoRepository(db, nil)
	txm := NewTxManager(db, zaptest.NewLogger(t))
	ctx := context.Background()

	boom := errors.New("boom")
	err := txm.WithinTx(ctx, func(ctx context.Context) error {
		_, ok := TxFromContext(ctx)
		require.True(t, ok)

		task := "rolled back"
		if _, err := repo.Create(ctx, domain_todo.NewTodo{Task: &task}.Build(time.Now())); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTxManager_CommitOnSuccess(t *testing.T) {
	db := openTestDB(t)
	repo := NewTodoRepository(db, nil)
	ctx := context.Background()

	err := NewTxManager(db, nil).WithinTx(ctx, func(ctx context.Context) error {
		task := "kept"
		_, err := repo.Create(ctx, domain_todo.NewTodo{Task: &task}.Build(time.Now()))
		return err
	})
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "kept", list[0].Task)
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(config.DBConfig{Driver: "oracle"}, nil)
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := BuildMySQLDSN(config.DBConfig{
		Host:     "db",
		Port:     "3306",
		User:     "app",
		Password: "secret",
		Name:     "tododb",
	})

	assert.Contains(t, dsn, "app:secret@tcp(db:3306)/tododb?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}
