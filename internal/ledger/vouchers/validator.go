package vouchers

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/accounts"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/shared"
)

// BalanceTolerance absorbs currency rounding when comparing the two sides.
var BalanceTolerance = decimal.RequireFromString("0.005")

// AccountLookup resolves accounts for entry validation.
type AccountLookup interface {
	Lookup(ctx context.Context, id int64) (accounts.Account, error)
}

// ValidateEntries checks a proposed set of entries for structure and balance.
// Rules run in order: presence, one-sided lines, known accounts, balance.
func ValidateEntries(ctx context.Context, entries []EntryInput, chart AccountLookup) error {
	if len(entries) == 0 {
		return shared.ErrEmptyVoucher
	}
	for idx, line := range entries {
		if !oneSided(line) {
			return &shared.LineError{Index: idx, AccountID: line.AccountID, Err: shared.ErrMixedOrEmptyLine}
		}
	}
	for idx, line := range entries {
		if line.AccountID == 0 {
			return &shared.LineError{Index: idx, AccountID: line.AccountID, Err: shared.ErrUnknownAccount}
		}
		if chart == nil {
			continue
		}
		if _, err := chart.Lookup(ctx, line.AccountID); err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return &shared.LineError{Index: idx, AccountID: line.AccountID, Err: shared.ErrUnknownAccount}
			}
			return err
		}
	}
	var debit, credit decimal.Decimal
	for _, line := range entries {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	delta := debit.Sub(credit).Abs()
	if delta.GreaterThanOrEqual(BalanceTolerance) {
		return &shared.UnbalancedError{Debit: debit, Credit: credit, Delta: delta}
	}
	return nil
}

func oneSided(line EntryInput) bool {
	if line.Debit.IsNegative() || line.Credit.IsNegative() {
		return false
	}
	return line.Debit.IsPositive() != line.Credit.IsPositive()
}
