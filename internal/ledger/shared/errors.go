package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyVoucher indicates a voucher without entries.
	ErrEmptyVoucher = errors.New("ledger: voucher requires at least one entry")
	// ErrMixedOrEmptyLine indicates a line that is both debit and credit, or neither.
	ErrMixedOrEmptyLine = errors.New("ledger: entry must carry exactly one positive debit or credit")
	// ErrUnknownAccount indicates an entry account missing from the chart.
	ErrUnknownAccount = errors.New("ledger: unknown account")
	// ErrUnbalancedVoucher indicates debit != credit.
	ErrUnbalancedVoucher = errors.New("ledger: voucher debits and credits must balance")
	// ErrInvalidTransition indicates the lifecycle action is not allowed from the current status.
	ErrInvalidTransition = errors.New("ledger: invalid status transition")
	// ErrVoucherNotFound indicates a missing voucher.
	ErrVoucherNotFound = errors.New("ledger: voucher not found")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrVoucherTypeNotFound indicates a missing voucher type.
	ErrVoucherTypeNotFound = errors.New("ledger: voucher type not found")
	// ErrDuplicateNumber indicates the voucher number is already taken.
	ErrDuplicateNumber = errors.New("ledger: voucher number already exists")
	// ErrForbidden indicates the caller lacks the capability for the action.
	ErrForbidden = errors.New("ledger: action not permitted")
	// ErrVoucherTypeRequired indicates a create request without a voucher type.
	ErrVoucherTypeRequired = errors.New("ledger: voucher type required")
	// ErrVoucherIDRequired indicates a lifecycle request without a voucher id.
	ErrVoucherIDRequired = errors.New("ledger: voucher id required")
	// ErrPurgeDisabled indicates posted voucher purging is switched off.
	ErrPurgeDisabled = errors.New("ledger: purging posted vouchers is disabled")
)

// UnbalancedError reports the exact imbalance of a voucher.
type UnbalancedError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
	Delta  decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("ledger: voucher out of balance by %s (debit %s, credit %s)",
		e.Delta.StringFixed(2), e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

func (e *UnbalancedError) Unwrap() error { return ErrUnbalancedVoucher }

// TransitionError records a rejected lifecycle transition.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("ledger: invalid status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// LineError ties a validation failure to a zero-based entry index.
type LineError struct {
	Index     int
	AccountID int64
	Err       error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s (line %d, account %d)", e.Err.Error(), e.Index+1, e.AccountID)
}

func (e *LineError) Unwrap() error { return e.Err }
