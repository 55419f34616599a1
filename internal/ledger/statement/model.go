package statement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/accounts"
)

// Side restricts a statement to debit or credit lines.
type Side string

const (
	SideAny    Side = ""
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Filter holds presentation filters applied after the running balance is
// accumulated. They hide lines but never change the balance of the ones shown.
type Filter struct {
	Search    string           `json:"search,omitempty"`
	TypeCode  string           `json:"type_code,omitempty"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
	Side      Side             `json:"side,omitempty"`
}

// Query selects the ledger view of one account.
type Query struct {
	AccountID int64      `json:"account_id"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
	Filter    Filter     `json:"filter"`
	// CarryOpening seeds the running balance with everything before From.
	CarryOpening bool `json:"carry_opening,omitempty"`
}

// Row is a ledger transaction joined with its voucher header.
type Row struct {
	TransactionID   int64
	VoucherID       int64
	VoucherNumber   string
	VoucherTypeName string
	VoucherTypeCode string
	TransactionDate time.Time
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	Narration       string
	CreatedAt       time.Time
	InsertSeq       int64
	LineNo          int
}

// Counterpart is another account touched by the same voucher.
type Counterpart struct {
	AccountID int64
	Name      string
}

// Line is one rendered statement row.
type Line struct {
	Date           time.Time       `json:"date"`
	VoucherID      int64           `json:"voucher_id"`
	VoucherNumber  string          `json:"voucher_number"`
	VoucherType    string          `json:"voucher_type"`
	VoucherCode    string          `json:"voucher_type_code"`
	Particulars    string          `json:"particulars"`
	Narration      string          `json:"narration,omitempty"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// Statement is the projected ledger of one account.
type Statement struct {
	Account        accounts.Account `json:"account"`
	Query          Query            `json:"query"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	Lines          []Line           `json:"lines"`
	TotalDebit     decimal.Decimal  `json:"total_debit"`
	TotalCredit    decimal.Decimal  `json:"total_credit"`
	ClosingBalance decimal.Decimal  `json:"closing_balance"`
}

// FormatBalance renders a signed balance as an absolute amount with its side,
// e.g. "5000.00 Dr" or "250.00 Cr".
func FormatBalance(balance decimal.Decimal) string {
	side := "Dr"
	if balance.IsNegative() {
		side = "Cr"
	}
	return balance.Abs().StringFixed(2) + " " + side
}
