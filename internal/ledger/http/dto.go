package ledgerhttp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/statement"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/vouchers"
	"github.com/odyssey-erp/practice-ledger/internal/platform/httpx"
)

type entryRequest struct {
	AccountID int64           `json:"account_id" validate:"gte=0"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration" validate:"max=255"`
}

type createVoucherRequest struct {
	Number          string         `json:"voucher_number" validate:"max=50"`
	Date            string         `json:"voucher_date" validate:"omitempty,datetime=2006-01-02"`
	ReferenceNumber string         `json:"reference_number" validate:"max=100"`
	Narration       string         `json:"narration" validate:"max=500"`
	TypeID          int64          `json:"voucher_type_id" validate:"required,gt=0"`
	Entries         []entryRequest `json:"entries" validate:"max=500,dive"`
}

type updateVoucherRequest struct {
	Date            string `json:"voucher_date" validate:"omitempty,datetime=2006-01-02"`
	ReferenceNumber string `json:"reference_number" validate:"max=100"`
	Narration       string `json:"narration" validate:"max=500"`
	TypeID          int64  `json:"voucher_type_id" validate:"gte=0"`
}

type replaceEntriesRequest struct {
	Entries []entryRequest `json:"entries" validate:"max=500,dive"`
}

type cancelVoucherRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

type listVouchersQuery struct {
	Status  string `validate:"omitempty,oneof=draft posted cancelled"`
	TypeID  int64  `validate:"gte=0"`
	From    string `validate:"omitempty,datetime=2006-01-02"`
	To      string `validate:"omitempty,datetime=2006-01-02"`
	Search  string `validate:"max=100"`
	Page    int    `validate:"gte=0"`
	PerPage int    `validate:"gte=0,lte=200"`
}

type statementQuery struct {
	From         string `validate:"omitempty,datetime=2006-01-02"`
	To           string `validate:"omitempty,datetime=2006-01-02"`
	Search       string `validate:"max=100"`
	TypeCode     string `validate:"max=20"`
	MinAmount    string `validate:"omitempty,numeric"`
	MaxAmount    string `validate:"omitempty,numeric"`
	Side         string `validate:"omitempty,oneof=debit credit"`
	CarryOpening bool
}

func (h *Handler) validate(v any) error {
	if err := h.validator.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %s", httpx.ErrValidation, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return h.validate(target)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", httpx.ErrValidation)
	}
	return id, nil
}

func toEntryInputs(in []entryRequest) []vouchers.EntryInput {
	out := make([]vouchers.EntryInput, 0, len(in))
	for _, e := range in {
		out = append(out, vouchers.EntryInput{
			AccountID: e.AccountID,
			Debit:     e.Debit,
			Credit:    e.Credit,
			Narration: e.Narration,
		})
	}
	return out
}

func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.DateOnly, raw)
	return t
}

func parseOptionalDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t := parseDate(raw)
	return &t
}

func parseOptionalAmount(raw string) *decimal.Decimal {
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}

func atoi(raw string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(raw))
	return n
}

func readListQuery(r *http.Request) listVouchersQuery {
	q := r.URL.Query()
	typeID, _ := strconv.ParseInt(q.Get("type_id"), 10, 64)
	return listVouchersQuery{
		Status:  strings.TrimSpace(q.Get("status")),
		TypeID:  typeID,
		From:    q.Get("from"),
		To:      q.Get("to"),
		Search:  strings.TrimSpace(q.Get("q")),
		Page:    atoi(q.Get("page")),
		PerPage: atoi(q.Get("per_page")),
	}
}

func (q listVouchersQuery) filter() vouchers.ListFilter {
	return vouchers.ListFilter{
		Status:  vouchers.Status(q.Status),
		TypeID:  q.TypeID,
		From:    parseOptionalDate(q.From),
		To:      parseOptionalDate(q.To),
		Search:  q.Search,
		Page:    q.Page,
		PerPage: q.PerPage,
	}
}

func readStatementQuery(r *http.Request) statementQuery {
	q := r.URL.Query()
	carry, _ := strconv.ParseBool(q.Get("carry_opening"))
	return statementQuery{
		From:         q.Get("from"),
		To:           q.Get("to"),
		Search:       strings.TrimSpace(q.Get("q")),
		TypeCode:     strings.TrimSpace(q.Get("type")),
		MinAmount:    q.Get("min"),
		MaxAmount:    q.Get("max"),
		Side:         q.Get("side"),
		CarryOpening: carry,
	}
}

func (q statementQuery) query(accountID int64) statement.Query {
	return statement.Query{
		AccountID: accountID,
		From:      parseOptionalDate(q.From),
		To:        parseOptionalDate(q.To),
		Filter: statement.Filter{
			Search:    q.Search,
			TypeCode:  q.TypeCode,
			MinAmount: parseOptionalAmount(q.MinAmount),
			MaxAmount: parseOptionalAmount(q.MaxAmount),
			Side:      statement.Side(q.Side),
		},
		CarryOpening: q.CarryOpening,
	}
}
