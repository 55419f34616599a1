package vouchers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates voucher lifecycle values.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPosted    Status = "posted"
	StatusCancelled Status = "cancelled"
	// statusDeleted only appears in transition errors.
	statusDeleted Status = "deleted"
)

// VoucherType identifies the capture form that produced a voucher. It has no
// effect on posting mechanics.
type VoucherType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Voucher is the header of a balanced financial transaction.
type Voucher struct {
	ID              int64           `json:"id"`
	Number          string          `json:"voucher_number"`
	Date            time.Time       `json:"voucher_date"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Narration       string          `json:"narration,omitempty"`
	TypeID          int64           `json:"voucher_type_id"`
	Status          Status          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CreatedBy       int64           `json:"created_by,omitempty"`
	PostedAt        *time.Time      `json:"posted_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Entries         []Entry         `json:"entries,omitempty"`
}

// Entry is a single debit or credit line of a voucher.
type Entry struct {
	ID        int64           `json:"id"`
	VoucherID int64           `json:"voucher_id"`
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit_amount"`
	Credit    decimal.Decimal `json:"credit_amount"`
	Narration string          `json:"narration,omitempty"`
}

// LedgerTransaction is the immutable effect of one entry on one account.
type LedgerTransaction struct {
	ID              int64           `json:"id"`
	VoucherID       int64           `json:"voucher_id"`
	AccountID       int64           `json:"account_id"`
	TransactionDate time.Time       `json:"transaction_date"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	Narration       string          `json:"narration"`
	BatchID         uuid.UUID       `json:"batch_id"`
	LineNo          int             `json:"line_no"`
	CreatedAt       time.Time       `json:"created_at"`
	InsertSeq       int64           `json:"-"`
}

// EntryInput is a proposed voucher line.
type EntryInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Narration string
}

// CreateInput describes a new draft voucher. A blank Number is assigned from
// the voucher type sequence.
type CreateInput struct {
	Number          string
	Date            time.Time
	ReferenceNumber string
	Narration       string
	TypeID          int64
	ActorID         int64
	Entries         []EntryInput
}

// HeaderInput carries editable header fields of a draft.
type HeaderInput struct {
	Date            time.Time
	ReferenceNumber string
	Narration       string
	TypeID          int64
	ActorID         int64
}

// PostInput requests draft -> posted.
type PostInput struct {
	VoucherID int64
	ActorID   int64
}

// CancelInput requests posted -> cancelled.
type CancelInput struct {
	VoucherID int64
	ActorID   int64
	Reason    string
}

// DeleteInput requests removal of a voucher. Purge must be set to remove a
// voucher that already touched the ledger.
type DeleteInput struct {
	VoucherID int64
	ActorID   int64
	Purge     bool
	Reason    string
}

// ListFilter narrows voucher listings.
type ListFilter struct {
	Status  Status
	TypeID  int64
	From    *time.Time
	To      *time.Time
	Search  string
	Page    int
	PerPage int
}

// Totals sums the debit and credit sides of the entries.
func Totals(entries []Entry) (debit, credit decimal.Decimal) {
	for _, e := range entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

func toEntryInputs(entries []Entry) []EntryInput {
	out := make([]EntryInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryInput{AccountID: e.AccountID, Debit: e.Debit, Credit: e.Credit, Narration: e.Narration})
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
