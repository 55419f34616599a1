package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Beginner starts transactions; satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// MaxAttempts bounds how often a transaction is replayed after a
// serialization failure or deadlock.
const MaxAttempts = 3

// WithTx runs fn in a RepeatableRead transaction and commits when fn returns
// nil. fn is replayed from scratch when Postgres aborts the transaction with
// a serialization failure or deadlock, so it must not keep state across calls.
func WithTx(ctx context.Context, db Beginner, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err = runTx(ctx, db, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
		if !Retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func runTx(ctx context.Context, db Beginner, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit tx: %w", err)
	}
	return nil
}

// Retryable reports whether err is a serialization failure or deadlock.
func Retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
