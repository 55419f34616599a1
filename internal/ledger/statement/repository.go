package statement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads materialized ledger rows.
type Repository interface {
	ListRows(ctx context.Context, accountID int64, from, to *time.Time) ([]Row, error)
	BalanceBefore(ctx context.Context, accountID int64, before time.Time) (decimal.Decimal, error)
	Counterparts(ctx context.Context, accountID int64, voucherIDs []int64) (map[int64][]Counterpart, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx statement repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// ListRows returns the account's rows in posting order. Row ids are never part
// of the ordering.
func (r *repository) ListRows(ctx context.Context, accountID int64, from, to *time.Time) ([]Row, error) {
	where := []string{"lt.account_id = $1"}
	args := []any{accountID}
	if from != nil {
		args = append(args, pgtype.Date{Time: *from, Valid: true})
		where = append(where, fmt.Sprintf("lt.transaction_date >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, pgtype.Date{Time: *to, Valid: true})
		where = append(where, fmt.Sprintf("lt.transaction_date <= $%d", len(args)))
	}
	query := `SELECT lt.id, lt.voucher_id, v.voucher_number, vt.name, vt.code, lt.transaction_date,
lt.debit, lt.credit, lt.narration, lt.created_at, lt.insert_seq, lt.line_no
FROM ledger_transactions lt
JOIN vouchers v ON v.id = lt.voucher_id
JOIN voucher_types vt ON vt.id = v.voucher_type_id
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY lt.transaction_date, lt.created_at, lt.insert_seq`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var row Row
		var narration pgtype.Text
		if err := rows.Scan(&row.TransactionID, &row.VoucherID, &row.VoucherNumber, &row.VoucherTypeName, &row.VoucherTypeCode,
			&row.TransactionDate, &row.Debit, &row.Credit, &narration, &row.CreatedAt, &row.InsertSeq, &row.LineNo); err != nil {
			return nil, err
		}
		row.Narration = narration.String
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) BalanceBefore(ctx context.Context, accountID int64, before time.Time) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(debit - credit), 0)::text
FROM ledger_transactions WHERE account_id = $1 AND transaction_date < $2`, accountID, pgtype.Date{Time: before, Valid: true}).Scan(&balance)
	return balance, err
}

// Counterparts lists, per voucher, the distinct accounts other than accountID.
func (r *repository) Counterparts(ctx context.Context, accountID int64, voucherIDs []int64) (map[int64][]Counterpart, error) {
	out := make(map[int64][]Counterpart, len(voucherIDs))
	if len(voucherIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT lt.voucher_id, lt.account_id, COALESCE(a.name, '')
FROM ledger_transactions lt
LEFT JOIN accounts a ON a.id = lt.account_id
WHERE lt.voucher_id = ANY($1) AND lt.account_id <> $2
ORDER BY lt.voucher_id, lt.account_id`, voucherIDs, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var voucherID int64
		var cp Counterpart
		if err := rows.Scan(&voucherID, &cp.AccountID, &cp.Name); err != nil {
			return nil, err
		}
		out[voucherID] = append(out[voucherID], cp)
	}
	return out, rows.Err()
}
