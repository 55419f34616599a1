package statement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/accounts"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/shared"
	"github.com/odyssey-erp/practice-ledger/internal/platform/cache"
)

type memoryRepo struct {
	mu           sync.Mutex
	rows         []Row
	others       map[int64][]Counterpart
	opening      decimal.Decimal
	listCalls    int
	balanceCalls int
}

func (r *memoryRepo) ListRows(ctx context.Context, accountID int64, from, to *time.Time) ([]Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []Row
	for _, row := range r.rows {
		if from != nil && row.TransactionDate.Before(*from) {
			continue
		}
		if to != nil && row.TransactionDate.After(*to) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *memoryRepo) BalanceBefore(ctx context.Context, accountID int64, before time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balanceCalls++
	return r.opening, nil
}

func (r *memoryRepo) Counterparts(ctx context.Context, accountID int64, voucherIDs []int64) (map[int64][]Counterpart, error) {
	return r.others, nil
}

func (r *memoryRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

type chartStub map[int64]accounts.Account

func (c chartStub) Lookup(ctx context.Context, id int64) (accounts.Account, error) {
	a, ok := c[id]
	if !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func newStatementService(t *testing.T, repo *memoryRepo) (*Service, *cache.Versioned) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	versioned := cache.NewVersioned(client, time.Minute)
	chart := chartStub{1: {ID: 1, Code: "1000", Name: "Cash", IsActive: true}}
	return NewService(repo, chart, versioned), versioned
}

func sampleRepo() *memoryRepo {
	return &memoryRepo{
		rows: []Row{
			row(1, "JV-000001", day(1), "1000", "0"),
			row(1, "JV-000001", day(4), "0", "1000"),
			row(2, "REC-000001", day(6), "250", "0"),
		},
		others:  map[int64][]Counterpart{1: {{AccountID: 2, Name: "Bank"}}},
		opening: dec("400"),
	}
}

func TestServiceProjectCachesUntilBump(t *testing.T) {
	repo := sampleRepo()
	svc, versioned := newStatementService(t, repo)
	ctx := context.Background()

	first, err := svc.Project(ctx, Query{AccountID: 1})
	require.NoError(t, err)
	require.Len(t, first.Lines, 3)
	require.Equal(t, "Cash", first.Account.Name)
	require.True(t, first.ClosingBalance.Equal(dec("250")))

	second, err := svc.Project(ctx, Query{AccountID: 1})
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls())
	require.True(t, second.ClosingBalance.Equal(first.ClosingBalance))
	require.Equal(t, "Bank", second.Lines[0].Particulars)

	_, err = svc.Project(ctx, Query{AccountID: 1, Filter: Filter{Side: SideDebit}})
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls())

	require.NoError(t, versioned.Bump(ctx))
	_, err = svc.Project(ctx, Query{AccountID: 1})
	require.NoError(t, err)
	require.Equal(t, 3, repo.calls())
}

func TestServiceProjectOrdersSameDayRowsByInsertion(t *testing.T) {
	stamped := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)
	// ids run against insertion order; only created_at and the sequence count
	late := row(7, "JV-000007", day(2), "0", "40")
	late.TransactionID, late.CreatedAt, late.InsertSeq = 5, stamped, 31
	early := row(9, "PAY-000002", day(2), "100", "0")
	early.TransactionID, early.CreatedAt, early.InsertSeq = 90, stamped, 12
	later := row(4, "JV-000004", day(2), "0", "5")
	later.TransactionID, later.CreatedAt, later.InsertSeq = 1, stamped.Add(time.Millisecond), 2
	first := row(3, "JV-000003", day(1), "10", "0")
	first.TransactionID, first.CreatedAt, first.InsertSeq = 40, stamped, 99

	svc := NewService(&memoryRepo{rows: []Row{later, late, early, first}}, chartStub{1: {ID: 1, Name: "Cash"}}, nil)
	st, err := svc.Project(context.Background(), Query{AccountID: 1})
	require.NoError(t, err)

	var numbers []string
	for _, line := range st.Lines {
		numbers = append(numbers, line.VoucherNumber)
	}
	require.Equal(t, []string{"JV-000003", "PAY-000002", "JV-000007", "JV-000004"}, numbers)
	require.True(t, st.Lines[1].RunningBalance.Equal(dec("110")))
	require.True(t, st.ClosingBalance.Equal(dec("65")))
}

func TestServiceProjectOpeningIsOptIn(t *testing.T) {
	repo := sampleRepo()
	svc, _ := newStatementService(t, repo)
	ctx := context.Background()
	from := time.Date(2024, 4, 5, 13, 45, 0, 0, time.UTC)

	plain, err := svc.Project(ctx, Query{AccountID: 1, From: &from})
	require.NoError(t, err)
	require.Zero(t, repo.balanceCalls)
	require.Len(t, plain.Lines, 1)
	require.True(t, plain.Lines[0].RunningBalance.Equal(dec("250")))
	require.Equal(t, day(5), *plain.Query.From)

	carried, err := svc.Project(ctx, Query{AccountID: 1, From: &from, CarryOpening: true})
	require.NoError(t, err)
	require.Equal(t, 1, repo.balanceCalls)
	require.True(t, carried.OpeningBalance.Equal(dec("400")))
	require.True(t, carried.ClosingBalance.Equal(dec("650")))

	noFrom, err := svc.Project(ctx, Query{AccountID: 1, CarryOpening: true})
	require.NoError(t, err)
	require.False(t, noFrom.Query.CarryOpening)
	require.Equal(t, 1, repo.balanceCalls)
}

func TestServiceProjectEmptyRange(t *testing.T) {
	svc, _ := newStatementService(t, sampleRepo())
	from, to := day(20), day(25)
	st, err := svc.Project(context.Background(), Query{AccountID: 1, From: &from, To: &to})
	require.NoError(t, err)
	require.Empty(t, st.Lines)
	require.NotNil(t, st.Lines)
	require.True(t, st.ClosingBalance.IsZero())
}

func TestServiceProjectUnknownAccount(t *testing.T) {
	svc, _ := newStatementService(t, sampleRepo())
	_, err := svc.Project(context.Background(), Query{AccountID: 42})
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}

func TestServiceProjectWithoutCache(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, chartStub{1: {ID: 1, Name: "Cash"}}, nil)
	for i := 0; i < 2; i++ {
		st, err := svc.Project(context.Background(), Query{AccountID: 1})
		require.NoError(t, err)
		require.Len(t, st.Lines, 3)
	}
	require.Equal(t, 2, repo.calls())
}
