package statement

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/accounts"
	"github.com/odyssey-erp/practice-ledger/internal/platform/cache"
)

// AccountLookup resolves the account a statement is built for.
type AccountLookup interface {
	Lookup(ctx context.Context, id int64) (accounts.Account, error)
}

// Service builds account statements, caching them under the ledger version.
type Service struct {
	repo  Repository
	chart AccountLookup
	cache *cache.Versioned
	group singleflight.Group
}

// NewService constructs the projector. cache may be nil.
func NewService(repo Repository, chart AccountLookup, cache *cache.Versioned) *Service {
	return &Service{repo: repo, chart: chart, cache: cache}
}

// Project returns the statement of q.AccountID. Identical concurrent requests
// share a single build.
func (s *Service) Project(ctx context.Context, q Query) (Statement, error) {
	account, err := s.chart.Lookup(ctx, q.AccountID)
	if err != nil {
		return Statement{}, err
	}
	q = normalise(q)
	key, err := s.cache.BuildKey(ctx, cacheParts(q)...)
	if err != nil {
		return s.build(ctx, account, q)
	}
	result, err, _ := s.group.Do(key, func() (any, error) {
		var st Statement
		err := s.cache.FetchJSON(ctx, key, &st, func(ctx context.Context) (any, error) {
			return s.build(ctx, account, q)
		})
		return st, err
	})
	if err != nil {
		return Statement{}, err
	}
	return result.(Statement), nil
}

func (s *Service) build(ctx context.Context, account accounts.Account, q Query) (Statement, error) {
	opening := decimal.Zero
	if q.CarryOpening && q.From != nil {
		bal, err := s.repo.BalanceBefore(ctx, q.AccountID, *q.From)
		if err != nil {
			return Statement{}, fmt.Errorf("opening balance: %w", err)
		}
		opening = bal
	}
	rows, err := s.repo.ListRows(ctx, q.AccountID, q.From, q.To)
	if err != nil {
		return Statement{}, fmt.Errorf("ledger rows: %w", err)
	}
	sortRows(rows)
	seen := make(map[int64]struct{}, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.VoucherID]; ok {
			continue
		}
		seen[row.VoucherID] = struct{}{}
		ids = append(ids, row.VoucherID)
	}
	others, err := s.repo.Counterparts(ctx, q.AccountID, ids)
	if err != nil {
		return Statement{}, fmt.Errorf("counterparts: %w", err)
	}
	st := Project(q, opening, rows, others)
	st.Account = account
	return st, nil
}

// sortRows orders rows by transaction date and creation time, ties falling
// back to the store's insertion sequence. Row ids play no part.
func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.TransactionDate.Equal(b.TransactionDate) {
			return a.TransactionDate.Before(b.TransactionDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.InsertSeq < b.InsertSeq
	})
}

func normalise(q Query) Query {
	if q.From != nil {
		from := dateOnly(*q.From)
		q.From = &from
	}
	if q.To != nil {
		to := dateOnly(*q.To)
		q.To = &to
	}
	if !q.CarryOpening || q.From == nil {
		q.CarryOpening = false
	}
	return q
}

func cacheParts(q Query) []string {
	f := q.Filter
	return []string{
		"ledger", "statement", strconv.FormatInt(q.AccountID, 10),
		formatDate(q.From), formatDate(q.To), strconv.FormatBool(q.CarryOpening),
		strconv.Quote(f.Search), strconv.Quote(f.TypeCode), formatAmount(f.MinAmount), formatAmount(f.MaxAmount), string(f.Side),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func formatAmount(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
