package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	owner *fakeBeginner
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.owner.commits++
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.owner.rollbacks++
	return nil
}

type fakeBeginner struct {
	begins    int
	commits   int
	rollbacks int
	beginErr  error
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	b.begins++
	return &fakeTx{owner: b}, nil
}

func TestWithTxCommits(t *testing.T) {
	b := &fakeBeginner{}
	err := WithTx(context.Background(), b, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, b.begins)
	require.Equal(t, 1, b.commits)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{}
	boom := errors.New("boom")
	err := WithTx(context.Background(), b, func(pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, b.begins)
	require.Zero(t, b.commits)
	require.Equal(t, 1, b.rollbacks)
}

func TestWithTxReplaysSerializationFailures(t *testing.T) {
	b := &fakeBeginner{}
	calls := 0
	err := WithTx(context.Background(), b, func(pgx.Tx) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("post voucher: %w", &pgconn.PgError{Code: "40001"})
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, 1, b.commits)
}

func TestWithTxGivesUpAfterMaxAttempts(t *testing.T) {
	b := &fakeBeginner{}
	err := WithTx(context.Background(), b, func(pgx.Tx) error {
		return &pgconn.PgError{Code: "40P01"}
	})
	require.True(t, Retryable(err))
	require.Equal(t, MaxAttempts, b.begins)
}

func TestWithTxBeginFailure(t *testing.T) {
	b := &fakeBeginner{beginErr: errors.New("no conn")}
	err := WithTx(context.Background(), b, func(pgx.Tx) error { return nil })
	require.ErrorContains(t, err, "begin tx")
}

func TestRetryable(t *testing.T) {
	require.False(t, Retryable(nil))
	require.False(t, Retryable(errors.New("x")))
	require.False(t, Retryable(&pgconn.PgError{Code: "23505"}))
	require.True(t, Retryable(&pgconn.PgError{Code: "40001"}))
}
