package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/shared"
)

// Repository reads the chart of accounts.
type Repository interface {
	Get(ctx context.Context, id int64) (Account, error)
	List(ctx context.Context, activeOnly bool) ([]Account, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a pgx backed chart repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, code, name, group_name, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.Code, &a.Name, &a.GroupName, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY code`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) ListByIDs(ctx context.Context, ids []int64) ([]Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1) ORDER BY code`, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Account, error) {
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.GroupName, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
