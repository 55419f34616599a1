package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/shared"
	"github.com/odyssey-erp/practice-ledger/internal/platform/db"
)

// errStaleStatus reports that a conditional status update matched no row.
var errStaleStatus = errors.New("ledger: voucher status changed concurrently")

// Repository exposes voucher persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Voucher, error)
	List(ctx context.Context, filter ListFilter) ([]Voucher, int, error)
	ListTypes(ctx context.Context) ([]VoucherType, error)
	ListLedgerTransactions(ctx context.Context, voucherID int64) ([]LedgerTransaction, error)
}

// TxRepository exposes the operations available inside a voucher transaction.
type TxRepository interface {
	GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error)
	GetType(ctx context.Context, id int64) (VoucherType, error)
	NextNumber(ctx context.Context, typeID int64) (int64, error)
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	UpdateHeader(ctx context.Context, id int64, in HeaderInput) error
	ReplaceEntries(ctx context.Context, voucherID int64, entries []EntryInput) ([]Entry, error)
	TransitionStatus(ctx context.Context, id int64, from, to Status, total decimal.Decimal, at time.Time) error
	DeleteVoucher(ctx context.Context, id int64, expected Status) error
	InsertLedgerTransactions(ctx context.Context, rows []LedgerTransaction) ([]LedgerTransaction, error)
	ListLedgerTransactions(ctx context.Context, voucherID int64) ([]LedgerTransaction, error)
	DeleteLedgerTransactions(ctx context.Context, voucherID int64) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx voucher repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// queryer is satisfied by both the pool and a transaction.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const voucherColumns = `id, voucher_number, voucher_date, COALESCE(reference_number, ''), COALESCE(narration, ''),
voucher_type_id, status, total_amount, COALESCE(created_by, 0), posted_at, cancelled_at, created_at, updated_at`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.Number, &v.Date, &v.ReferenceNumber, &v.Narration, &v.TypeID, &v.Status,
		&v.TotalAmount, &v.CreatedBy, &v.PostedAt, &v.CancelledAt, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) Get(ctx context.Context, id int64) (Voucher, error) {
	return getVoucher(ctx, r.db, id, false)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Voucher, int, error) {
	where := []string{"1=1"}
	args := []any{}
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.TypeID != 0 {
		add("voucher_type_id = $%d", filter.TypeID)
	}
	if filter.From != nil {
		add("voucher_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("voucher_date <= $%d", *filter.To)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add("(voucher_number ILIKE $%[1]d OR narration ILIKE $%[1]d OR reference_number ILIKE $%[1]d)", "%"+s+"%")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vouchers WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT %s FROM vouchers WHERE %s ORDER BY voucher_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		voucherColumns, clause, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := attachEntries(ctx, r.db, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) ListTypes(ctx context.Context) ([]VoucherType, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, code FROM voucher_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VoucherType
	for rows.Next() {
		var t VoucherType
		if err := rows.Scan(&t.ID, &t.Name, &t.Code); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) ListLedgerTransactions(ctx context.Context, voucherID int64) ([]LedgerTransaction, error) {
	return listLedgerTransactions(ctx, r.db, voucherID)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	return getVoucher(ctx, r.tx, id, true)
}

func (r *txRepository) GetType(ctx context.Context, id int64) (VoucherType, error) {
	var t VoucherType
	err := r.tx.QueryRow(ctx, `SELECT id, name, code FROM voucher_types WHERE id=$1`, id).Scan(&t.ID, &t.Name, &t.Code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VoucherType{}, shared.ErrVoucherTypeNotFound
		}
		return VoucherType{}, err
	}
	return t, nil
}

func (r *txRepository) NextNumber(ctx context.Context, typeID int64) (int64, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `INSERT INTO voucher_sequences (voucher_type_id, last_value) VALUES ($1, 1)
ON CONFLICT (voucher_type_id) DO UPDATE SET last_value = voucher_sequences.last_value + 1
RETURNING last_value`, typeID).Scan(&next)
	return next, err
}

func (r *txRepository) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO vouchers (voucher_number, voucher_date, reference_number, narration, voucher_type_id, status, total_amount, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		v.Number, v.Date, nullString(v.ReferenceNumber), nullString(v.Narration), v.TypeID, string(v.Status), toNumeric(v.TotalAmount), nullInt(v.CreatedBy))
	if err := row.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Voucher{}, shared.ErrDuplicateNumber
		}
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) UpdateHeader(ctx context.Context, id int64, in HeaderInput) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers SET voucher_date=$2, reference_number=$3, narration=$4, voucher_type_id=$5, updated_at=NOW()
WHERE id=$1 AND status='draft'`, id, in.Date, nullString(in.ReferenceNumber), nullString(in.Narration), in.TypeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errStaleStatus
	}
	return nil
}

func (r *txRepository) ReplaceEntries(ctx context.Context, voucherID int64, entries []EntryInput) ([]Entry, error) {
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_entries WHERE voucher_id=$1`, voucherID); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for idx, e := range entries {
		entry := Entry{VoucherID: voucherID, AccountID: e.AccountID, Debit: e.Debit, Credit: e.Credit, Narration: e.Narration}
		err := r.tx.QueryRow(ctx, `INSERT INTO voucher_entries (voucher_id, account_id, debit_amount, credit_amount, narration, line_no)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, voucherID, e.AccountID, toNumeric(e.Debit), toNumeric(e.Credit), nullString(e.Narration), idx+1).
			Scan(&entry.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// TransitionStatus is a compare-and-set on the status column, so two racing
// callers can never both leave the expected state.
func (r *txRepository) TransitionStatus(ctx context.Context, id int64, from, to Status, total decimal.Decimal, at time.Time) error {
	var stamp string
	switch to {
	case StatusPosted:
		stamp = ", posted_at=$5"
	case StatusCancelled:
		stamp = ", cancelled_at=$5"
	default:
		return fmt.Errorf("ledger: unsupported target status %q", to)
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers SET status=$3, total_amount=$4`+stamp+`, updated_at=$5
WHERE id=$1 AND status=$2`, id, string(from), string(to), toNumeric(total), at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errStaleStatus
	}
	return nil
}

func (r *txRepository) DeleteVoucher(ctx context.Context, id int64, expected Status) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_entries WHERE voucher_id=$1`, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM vouchers WHERE id=$1 AND status=$2`, id, string(expected))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errStaleStatus
	}
	return nil
}

func (r *txRepository) InsertLedgerTransactions(ctx context.Context, rows []LedgerTransaction) ([]LedgerTransaction, error) {
	out := make([]LedgerTransaction, 0, len(rows))
	for _, row := range rows {
		err := r.tx.QueryRow(ctx, `INSERT INTO ledger_transactions (voucher_id, account_id, transaction_date, debit, credit, narration, batch_id, line_no)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, insert_seq`, row.VoucherID, row.AccountID, row.TransactionDate, toNumeric(row.Debit), toNumeric(row.Credit),
			row.Narration, row.BatchID, row.LineNo).Scan(&row.ID, &row.CreatedAt, &row.InsertSeq)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *txRepository) ListLedgerTransactions(ctx context.Context, voucherID int64) ([]LedgerTransaction, error) {
	return listLedgerTransactions(ctx, r.tx, voucherID)
}

func (r *txRepository) DeleteLedgerTransactions(ctx context.Context, voucherID int64) (int64, error) {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM ledger_transactions WHERE voucher_id=$1`, voucherID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func getVoucher(ctx context.Context, q queryer, id int64, lock bool) (Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id=$1`
	if lock {
		query += ` FOR UPDATE`
	}
	v, err := scanVoucher(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, shared.ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	list := []Voucher{v}
	if err := attachEntries(ctx, q, list); err != nil {
		return Voucher{}, err
	}
	return list[0], nil
}

func attachEntries(ctx context.Context, q queryer, list []Voucher) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(list))
	index := make(map[int64]int, len(list))
	for i, v := range list {
		ids = append(ids, v.ID)
		index[v.ID] = i
	}
	rows, err := q.Query(ctx, `SELECT id, voucher_id, account_id, debit_amount, credit_amount, COALESCE(narration, '')
FROM voucher_entries WHERE voucher_id = ANY($1) ORDER BY voucher_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.VoucherID, &e.AccountID, &e.Debit, &e.Credit, &e.Narration); err != nil {
			return err
		}
		i := index[e.VoucherID]
		list[i].Entries = append(list[i].Entries, e)
	}
	return rows.Err()
}

func listLedgerTransactions(ctx context.Context, q queryer, voucherID int64) ([]LedgerTransaction, error) {
	rows, err := q.Query(ctx, `SELECT id, voucher_id, account_id, transaction_date, debit, credit, narration, batch_id, line_no, created_at, insert_seq
FROM ledger_transactions WHERE voucher_id=$1 ORDER BY created_at, insert_seq`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerTransaction
	for rows.Next() {
		var t LedgerTransaction
		if err := rows.Scan(&t.ID, &t.VoucherID, &t.AccountID, &t.TransactionDate, &t.Debit, &t.Credit, &t.Narration, &t.BatchID, &t.LineNo, &t.CreatedAt, &t.InsertSeq); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func nullString(val string) any {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	return val
}

func toNumeric(v decimal.Decimal) any {
	return v.StringFixed(2)
}
