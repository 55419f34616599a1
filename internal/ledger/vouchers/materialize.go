package vouchers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// materialize writes one ledger row per entry, dated at the voucher date. It
// must run inside the posting transaction so the voucher is never half-posted.
// The store stamps created_at and the insertion id.
func materialize(ctx context.Context, tx TxRepository, v Voucher) ([]LedgerTransaction, error) {
	batch := uuid.New()
	rows := make([]LedgerTransaction, 0, len(v.Entries))
	for idx, e := range v.Entries {
		rows = append(rows, LedgerTransaction{
			VoucherID:       v.ID,
			AccountID:       e.AccountID,
			TransactionDate: dateOnly(v.Date),
			Debit:           e.Debit,
			Credit:          e.Credit,
			Narration:       firstNonEmpty(e.Narration, v.Narration),
			BatchID:         batch,
			LineNo:          idx + 1,
		})
	}
	inserted, err := tx.InsertLedgerTransactions(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("materialize voucher %s: %w", v.Number, err)
	}
	return inserted, nil
}

// reverse appends a swapped copy of every existing ledger row of the voucher,
// dated at the cancellation date. Originals are left as they are.
func reverse(ctx context.Context, tx TxRepository, v Voucher, reason string, at time.Time) ([]LedgerTransaction, error) {
	originals, err := tx.ListLedgerTransactions(ctx, v.ID)
	if err != nil {
		return nil, fmt.Errorf("load ledger rows of %s: %w", v.Number, err)
	}
	batch := uuid.New()
	narration := reversalNarration(v.Number, reason)
	rows := make([]LedgerTransaction, 0, len(originals))
	for idx, orig := range originals {
		rows = append(rows, LedgerTransaction{
			VoucherID:       v.ID,
			AccountID:       orig.AccountID,
			TransactionDate: dateOnly(at),
			Debit:           orig.Credit,
			Credit:          orig.Debit,
			Narration:       narration,
			BatchID:         batch,
			LineNo:          idx + 1,
		})
	}
	if len(rows) == 0 {
		return nil, nil
	}
	inserted, err := tx.InsertLedgerTransactions(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("reverse voucher %s: %w", v.Number, err)
	}
	return inserted, nil
}

func reversalNarration(number, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "Reversal of " + number
	}
	return fmt.Sprintf("Reversal of %s: %s", number, reason)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
