package vouchers

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MultipleEntries labels vouchers without a unique two-party reading.
	MultipleEntries = "Multiple entries"
	// NoLedgerEntries labels vouchers without usable lines.
	NoLedgerEntries = "No ledger entries"
)

// Tile is the list/card rendering of a voucher.
type Tile struct {
	ID          int64           `json:"id"`
	Number      string          `json:"voucher_number"`
	Date        time.Time       `json:"voucher_date"`
	TypeID      int64           `json:"voucher_type_id"`
	Status      Status          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Primary     string          `json:"primary"`
	Secondary   string          `json:"secondary,omitempty"`
}

// NewTile renders a voucher for list display using resolved account names.
func NewTile(v Voucher, names map[int64]string) Tile {
	primary, secondary := Summarize(v.Entries, names)
	total := v.TotalAmount
	if v.Status == StatusDraft {
		total, _ = Totals(v.Entries)
	}
	return Tile{
		ID:          v.ID,
		Number:      v.Number,
		Date:        v.Date,
		TypeID:      v.TypeID,
		Status:      v.Status,
		TotalAmount: total,
		Primary:     primary,
		Secondary:   secondary,
	}
}

// Summarize reads a voucher as "debit account / credit account" when it has
// exactly one pure debit line and one pure credit line.
func Summarize(entries []Entry, names map[int64]string) (primary, secondary string) {
	var debits, credits []Entry
	for _, e := range entries {
		switch {
		case e.Debit.IsPositive() && e.Credit.IsZero():
			debits = append(debits, e)
		case e.Credit.IsPositive() && e.Debit.IsZero():
			credits = append(credits, e)
		}
	}
	if len(debits) == 0 && len(credits) == 0 {
		return NoLedgerEntries, ""
	}
	if len(entries) == 2 && len(debits) == 1 && len(credits) == 1 {
		return nameOf(names, debits[0].AccountID), nameOf(names, credits[0].AccountID)
	}
	return MultipleEntries, ""
}

func nameOf(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return "-"
}
