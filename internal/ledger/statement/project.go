package statement

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	multipleParticulars = "Multiple entries"
	noParticulars       = "-"
)

// Project turns ordered ledger rows into a statement. Rows must already be
// restricted to the date range and ordered by posting sequence; opening seeds
// the running balance.
func Project(q Query, opening decimal.Decimal, rows []Row, counterparts map[int64][]Counterpart) Statement {
	out := Statement{Query: q, OpeningBalance: opening, Lines: []Line{}}
	running := opening
	for _, row := range rows {
		running = running.Add(row.Debit).Sub(row.Credit)
		line := Line{
			Date:           row.TransactionDate,
			VoucherID:      row.VoucherID,
			VoucherNumber:  row.VoucherNumber,
			VoucherType:    row.VoucherTypeName,
			VoucherCode:    row.VoucherTypeCode,
			Particulars:    particulars(counterparts[row.VoucherID], row.Narration),
			Narration:      row.Narration,
			Debit:          row.Debit,
			Credit:         row.Credit,
			RunningBalance: running,
		}
		if !q.Filter.match(line) {
			continue
		}
		out.Lines = append(out.Lines, line)
		out.TotalDebit = out.TotalDebit.Add(line.Debit)
		out.TotalCredit = out.TotalCredit.Add(line.Credit)
	}
	if n := len(out.Lines); n > 0 {
		out.ClosingBalance = out.Lines[n-1].RunningBalance
	}
	return out
}

func particulars(others []Counterpart, narration string) string {
	switch len(others) {
	case 0:
		if strings.TrimSpace(narration) != "" {
			return narration
		}
		return noParticulars
	case 1:
		if others[0].Name == "" {
			return noParticulars
		}
		return others[0].Name
	default:
		return multipleParticulars
	}
}

func (f Filter) match(line Line) bool {
	switch f.Side {
	case SideDebit:
		if !line.Debit.IsPositive() {
			return false
		}
	case SideCredit:
		if !line.Credit.IsPositive() {
			return false
		}
	}
	if code := strings.TrimSpace(f.TypeCode); code != "" && !strings.EqualFold(code, line.VoucherCode) {
		return false
	}
	amount := line.Debit
	if amount.IsZero() {
		amount = line.Credit
	}
	if f.MinAmount != nil && amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		haystack := strings.ToLower(strings.Join([]string{
			line.VoucherNumber, line.Narration, line.VoucherType, line.Particulars,
		}, "\x00"))
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
