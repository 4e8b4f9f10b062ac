package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hijjiri/todo-api/internal/infrastructure/memory"
	httpadapter "github.com/hijjiri/todo-api/internal/interface/http"
	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"
)

func newTestServer(t *testing.T) *client {
	t.Helper()

	logger := zaptest.NewLogger(t)
	uc := todo_usecase.New(memory.NewTodoRepository(), logger)
	srv := httptest.NewServer(httpadapter.NewRouter(uc, httpadapter.Options{Logger: logger}))
	t.Cleanup(srv.Close)

	return newClient(srv.URL, "")
}

func TestClient_RoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestServer(t)
	ctx := context.Background()

	in, err := buildInput("Buy milk", "")
	require.NoError(t, err)

	created, err := c.create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.Completed)

	in, err = buildInput("", "true")
	require.NoError(t, err)
	updated, err := c.update(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", updated.Task)
	assert.True(t, updated.Completed)

	list, err := c.list(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, updated.ID, list[0].ID)

	msg, err := c.delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Todo deleted", msg)

	_, err = c.get(ctx, created.ID)
	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Todo not found", apiErr.Message)
}

func TestClient_ValidationError(t *testing.T) {
	t.Parallel()

	c := newTestServer(t)

	_, err := c.create(context.Background(), todoInput{})
	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.NotEmpty(t, apiErr.Errors["task"])
}

func TestBuildInput(t *testing.T) {
	t.Parallel()

	in, err := buildInput("", "")
	require.NoError(t, err)
	assert.Nil(t, in.Task)
	assert.Nil(t, in.Completed)

	_, err = buildInput("", "maybe")
	assert.Error(t, err)
}
