package integrity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx integrity repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Amounts are compared at cent precision, below the 0.005 posting tolerance.
func (r *repository) UnbalancedPosted(ctx context.Context) ([]Violation, error) {
	return r.collect(ctx, KindUnbalanced, `SELECT v.id, v.voucher_number, 0, SUM(lt.debit)::text, SUM(lt.credit)::text
FROM vouchers v JOIN ledger_transactions lt ON lt.voucher_id = v.id
WHERE v.status = 'posted'
GROUP BY v.id, v.voucher_number
HAVING ABS(SUM(lt.debit) - SUM(lt.credit)) >= 0.005`)
}

func (r *repository) UnreversedCancelled(ctx context.Context) ([]Violation, error) {
	return r.collect(ctx, KindUnreversed, `SELECT v.id, v.voucher_number, lt.account_id, SUM(lt.debit)::text, SUM(lt.credit)::text
FROM vouchers v JOIN ledger_transactions lt ON lt.voucher_id = v.id
WHERE v.status = 'cancelled'
GROUP BY v.id, v.voucher_number, lt.account_id
HAVING SUM(lt.debit) <> SUM(lt.credit)`)
}

func (r *repository) PostedWithoutRows(ctx context.Context) ([]Violation, error) {
	return r.collect(ctx, KindMissingRows, `SELECT v.id, v.voucher_number, 0, '0', '0'
FROM vouchers v
WHERE v.status = 'posted'
  AND NOT EXISTS (SELECT 1 FROM ledger_transactions lt WHERE lt.voucher_id = v.id)`)
}

func (r *repository) collect(ctx context.Context, kind Kind, query string) ([]Violation, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Violation, error) {
		v := Violation{Kind: kind}
		err := row.Scan(&v.VoucherID, &v.VoucherNumber, &v.AccountID, &v.Debit, &v.Credit)
		return v, err
	})
}
