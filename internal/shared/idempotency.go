package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// IdempotencyDB is the slice of pgx used by the idempotency store.
type IdempotencyDB interface {
	Execer
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IdempotencyStore persists request keys per operation together with the
// resource they were used on and whether the request finished.
type IdempotencyStore struct {
	db  IdempotencyDB
	now func() time.Time
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(db IdempotencyDB) *IdempotencyStore {
	return &IdempotencyStore{db: db, now: time.Now}
}

var (
	// ErrIdempotencyConflict indicates the key already completed for the same resource; the
	// caller should replay the stored outcome.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
	// ErrIdempotencyKeyReused indicates the key was first used on another resource.
	ErrIdempotencyKeyReused = errors.New("idempotency key already used for a different resource")
	// ErrIdempotencyInProgress indicates the first request holding the key has not finished.
	ErrIdempotencyInProgress = errors.New("idempotent request still in progress")
)

// Claim reserves key for operation on resource. A fresh key returns nil.
// A known key returns ErrIdempotencyConflict, ErrIdempotencyKeyReused or
// ErrIdempotencyInProgress.
func (s *IdempotencyStore) Claim(ctx context.Context, key, operation, resource string) error {
	if s == nil || s.db == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if operation == "" {
		return errors.New("idempotency operation required")
	}
	tag, err := s.db.Exec(ctx, `INSERT INTO idempotency_keys (module, key, resource, created_at)
VALUES ($1, $2, $3, $4) ON CONFLICT (module, key) DO NOTHING`, operation, key, resource, s.now())
	if err != nil {
		return fmt.Errorf("claim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var stored string
	var completed bool
	err = s.db.QueryRow(ctx, `SELECT resource, completed_at IS NOT NULL FROM idempotency_keys
WHERE module = $1 AND key = $2`, operation, key).Scan(&stored, &completed)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// released by a failing request between the insert and the read
		return ErrIdempotencyInProgress
	case err != nil:
		return fmt.Errorf("load idempotency key: %w", err)
	case stored != resource:
		return ErrIdempotencyKeyReused
	case !completed:
		return ErrIdempotencyInProgress
	}
	return ErrIdempotencyConflict
}

// Complete marks a claimed key as finished so later requests replay it.
func (s *IdempotencyStore) Complete(ctx context.Context, key, operation string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `UPDATE idempotency_keys SET completed_at = $3 WHERE module = $1 AND key = $2`,
		operation, key, s.now())
	return err
}

// Release drops an unfinished claim so a failed request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key, operation string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE module = $1 AND key = $2 AND completed_at IS NULL`,
		operation, key)
	return err
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil || s.db == nil {
		return nil
	}
	cutoff := s.now().Add(-olderThan)
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}
