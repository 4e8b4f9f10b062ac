package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	base := 50 * time.Millisecond
	max := 500 * time.Millisecond

	assert.Equal(t, 50*time.Millisecond, backoff(base, max, 1))
	assert.Equal(t, 100*time.Millisecond, backoff(base, max, 2))
	assert.Equal(t, 200*time.Millisecond, backoff(base, max, 3))
	assert.Equal(t, 400*time.Millisecond, backoff(base, max, 4))
	assert.Equal(t, max, backoff(base, max, 5))
	assert.Equal(t, max, backoff(base, max, 10))
}

func TestIsRetryableDBErr(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		err  error
		want bool
	}{
		"bad conn":          {err: driver.ErrBadConn, want: true},
		"wrapped bad conn":  {err: fmt.Errorf("select: %w", driver.ErrBadConn), want: true},
		"mysql deadlock":    {err: &mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found"}, want: true},
		"mysql lock wait":   {err: &mysqldriver.MySQLError{Number: 1205}, want: true},
		"mysql dup entry":   {err: &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}, want: false},
		"sqlite locked":     {err: errors.New("database is locked"), want: true},
		"canceled":          {err: context.Canceled, want: false},
		"deadline":          {err: fmt.Errorf("q: %w", context.DeadlineExceeded), want: false},
		"syntax error":      {err: errors.New("near \"SELEC\": syntax error"), want: false},
		"connection reset":  {err: errors.New("read tcp: connection reset by peer"), want: true},
		"invalid conn":      {err: mysqldriver.ErrInvalidConn, want: true},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, isRetryableDBErr(tc.err))
		})
	}
}

func TestDoWithRetry(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	t.Run("succeeds after transient errors", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := doWithRetry(context.Background(), policy, func() error {
			calls++
			if calls < 3 {
				return driver.ErrBadConn
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := doWithRetry(context.Background(), policy, func() error {
			calls++
			return driver.ErrBadConn
		})
		require.ErrorIs(t, err, driver.ErrBadConn)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		t.Parallel()

		permanent := errors.New("syntax error")
		calls := 0
		err := doWithRetry(context.Background(), policy, func() error {
			calls++
			return permanent
		})
		require.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		err := doWithRetry(ctx, policy, func() error {
			calls++
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}
