// Package integrity re-checks the ledger invariants over materialized rows.
package integrity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Kind classifies a violation.
type Kind string

const (
	// KindUnbalanced marks a posted voucher whose ledger rows do not net to zero.
	KindUnbalanced Kind = "unbalanced"
	// KindUnreversed marks a cancelled voucher with an account that does not net to zero.
	KindUnreversed Kind = "unreversed"
	// KindMissingRows marks a posted voucher without ledger rows.
	KindMissingRows Kind = "missing_rows"
)

// Violation is one broken invariant.
type Violation struct {
	Kind          Kind            `json:"kind"`
	VoucherID     int64           `json:"voucher_id"`
	VoucherNumber string          `json:"voucher_number"`
	AccountID     int64           `json:"account_id,omitempty"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

func (v Violation) String() string {
	if v.AccountID != 0 {
		return fmt.Sprintf("%s %s account %d (debit %s, credit %s)", v.Kind, v.VoucherNumber, v.AccountID,
			v.Debit.StringFixed(2), v.Credit.StringFixed(2))
	}
	return fmt.Sprintf("%s %s (debit %s, credit %s)", v.Kind, v.VoucherNumber, v.Debit.StringFixed(2), v.Credit.StringFixed(2))
}

// Report is the outcome of one scan.
type Report struct {
	CheckedAt  time.Time   `json:"checked_at"`
	Violations []Violation `json:"violations"`
}

// OK reports whether the scan found nothing.
func (r Report) OK() bool { return len(r.Violations) == 0 }

// Repository runs the individual checks.
type Repository interface {
	UnbalancedPosted(ctx context.Context) ([]Violation, error)
	UnreversedCancelled(ctx context.Context) ([]Violation, error)
	PostedWithoutRows(ctx context.Context) ([]Violation, error)
}

// Scanner runs every check concurrently.
type Scanner struct {
	repo Repository
	now  func() time.Time
}

// NewScanner constructs a Scanner.
func NewScanner(repo Repository) *Scanner {
	return &Scanner{repo: repo, now: time.Now}
}

// Scan returns all violations ordered by voucher and account.
func (s *Scanner) Scan(ctx context.Context) (Report, error) {
	checks := []func(context.Context) ([]Violation, error){
		s.repo.UnbalancedPosted,
		s.repo.UnreversedCancelled,
		s.repo.PostedWithoutRows,
	}
	results := make([][]Violation, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			found, err := check(gctx)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("integrity scan: %w", err)
	}
	report := Report{CheckedAt: s.now(), Violations: []Violation{}}
	for _, found := range results {
		report.Violations = append(report.Violations, found...)
	}
	sort.SliceStable(report.Violations, func(i, j int) bool {
		a, b := report.Violations[i], report.Violations[j]
		if a.VoucherID != b.VoucherID {
			return a.VoucherID < b.VoucherID
		}
		return a.AccountID < b.AccountID
	})
	return report, nil
}
