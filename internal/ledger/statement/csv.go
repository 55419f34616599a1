package statement

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDateLayout is the display layout used for exported dates.
const DefaultDateLayout = "02-01-2006"

var csvHeader = []string{"Date", "Voucher No", "Type", "Particulars", "Debit", "Credit", "Balance"}

// WriteCSV emits the statement lines with every field double-quoted. Empty
// sides are written as 0.00.
func WriteCSV(w io.Writer, st Statement, dateLayout string) error {
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	buf := bufio.NewWriter(w)
	if err := writeQuoted(buf, csvHeader); err != nil {
		return err
	}
	for _, line := range st.Lines {
		if err := writeQuoted(buf, []string{
			line.Date.Format(dateLayout),
			line.VoucherNumber,
			line.VoucherType,
			line.Particulars,
			money(line.Debit),
			money(line.Credit),
			FormatBalance(line.RunningBalance),
		}); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// Filename returns the download name of an account export made on day.
func Filename(accountCode string, day time.Time) string {
	code := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(accountCode))
	return "ledger_" + code + "_" + day.Format(time.DateOnly) + ".csv"
}

func writeQuoted(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
