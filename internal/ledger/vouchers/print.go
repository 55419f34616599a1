package vouchers

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DetailLine is one printable voucher row.
type DetailLine struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	DebitText   string          `json:"debit_text"`
	CreditText  string          `json:"credit_text"`
	Narration   string          `json:"narration,omitempty"`
}

// Detail is the print view of a single voucher.
type Detail struct {
	Voucher         Voucher         `json:"voucher"`
	Type            VoucherType     `json:"voucher_type"`
	Lines           []DetailLine    `json:"lines"`
	TotalDebit      decimal.Decimal `json:"total_debit"`
	TotalCredit     decimal.Decimal `json:"total_credit"`
	TotalDebitText  string          `json:"total_debit_text"`
	TotalCreditText string          `json:"total_credit_text"`
}

// Detail assembles the print view of a voucher with resolved account names.
func (s *Service) Detail(ctx context.Context, id int64, tag language.Tag) (Detail, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	ids := make([]int64, 0, len(v.Entries))
	for _, e := range v.Entries {
		ids = append(ids, e.AccountID)
	}
	resolved := map[int64]string{}
	codes := map[int64]string{}
	if s.chart != nil && len(ids) > 0 {
		accts, err := s.chart.Resolve(ctx, ids)
		if err != nil {
			return Detail{}, err
		}
		for id, a := range accts {
			resolved[id] = a.Name
			codes[id] = a.Code
		}
	}
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return Detail{}, err
	}
	out := Detail{Voucher: v}
	for _, t := range types {
		if t.ID == v.TypeID {
			out.Type = t
			break
		}
	}
	p := message.NewPrinter(tag)
	for _, e := range v.Entries {
		out.Lines = append(out.Lines, DetailLine{
			AccountCode: codes[e.AccountID],
			AccountName: nameOf(resolved, e.AccountID),
			Debit:       e.Debit,
			Credit:      e.Credit,
			DebitText:   formatAmount(p, e.Debit),
			CreditText:  formatAmount(p, e.Credit),
			Narration:   e.Narration,
		})
	}
	out.TotalDebit, out.TotalCredit = Totals(v.Entries)
	out.TotalDebitText = formatAmount(p, out.TotalDebit)
	out.TotalCreditText = formatAmount(p, out.TotalCredit)
	return out, nil
}

// formatAmount groups digits per locale and leaves the empty side blank.
func formatAmount(p *message.Printer, amount decimal.Decimal) string {
	if amount.IsZero() {
		return ""
	}
	f, _ := amount.Round(2).Float64()
	return p.Sprintf("%.2f", f)
}

// DefaultLanguage is the locale used for print views.
var DefaultLanguage = language.MustParse("en-IN")
