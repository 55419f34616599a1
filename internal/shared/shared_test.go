package shared

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

type recordingExecer struct {
	calls []execCall
	err   error
}

func (r *recordingExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.calls = append(r.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), r.err
}

type fakeRow struct {
	resource  string
	completed bool
	err       error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.resource
	*dest[1].(*bool) = r.completed
	return nil
}

type claimDB struct {
	recordingExecer
	tag string
	row fakeRow
}

func (c *claimDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.calls = append(c.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag(c.tag), c.err
}

func (c *claimDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.row
}

func TestIdempotencyClaim(t *testing.T) {
	cases := []struct {
		name string
		tag  string
		row  fakeRow
		want error
	}{
		{name: "fresh key", tag: "INSERT 0 1"},
		{name: "completed on same voucher", tag: "INSERT 0 0", row: fakeRow{resource: "1", completed: true}, want: ErrIdempotencyConflict},
		{name: "used on another voucher", tag: "INSERT 0 0", row: fakeRow{resource: "2", completed: true}, want: ErrIdempotencyKeyReused},
		{name: "first request still running", tag: "INSERT 0 0", row: fakeRow{resource: "1"}, want: ErrIdempotencyInProgress},
		{name: "released concurrently", tag: "INSERT 0 0", row: fakeRow{err: pgx.ErrNoRows}, want: ErrIdempotencyInProgress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := &claimDB{tag: tc.tag, row: tc.row}
			err := NewIdempotencyStore(db).Claim(context.Background(), "k1", "ledger.voucher.post", "1")
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected claim, got %v", err)
				}
				if got := db.calls[0].args; got[0] != "ledger.voucher.post" || got[1] != "k1" || got[2] != "1" {
					t.Fatalf("unexpected insert args %v", got)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestIdempotencyClaimErrors(t *testing.T) {
	other := errors.New("connection reset")
	db := &claimDB{tag: "INSERT 0 0"}
	db.err = other
	store := NewIdempotencyStore(db)
	if err := store.Claim(context.Background(), "k1", "ledger.voucher.post", "1"); !errors.Is(err, other) {
		t.Fatalf("expected passthrough, got %v", err)
	}
	if err := store.Claim(context.Background(), "", "op", "1"); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestIdempotencyCompleteAndRelease(t *testing.T) {
	db := &claimDB{tag: "UPDATE 1"}
	store := NewIdempotencyStore(db)
	if err := store.Complete(context.Background(), "k1", "ledger.voucher.post"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := store.Release(context.Background(), "k1", "ledger.voucher.post"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(db.calls) != 2 {
		t.Fatalf("expected two statements, got %d", len(db.calls))
	}
	if !strings.Contains(db.calls[1].sql, "completed_at IS NULL") {
		t.Fatalf("release must keep completed keys: %s", db.calls[1].sql)
	}
}

func TestIdempotencyCleanupCutoff(t *testing.T) {
	db := &claimDB{tag: "DELETE 3"}
	store := NewIdempotencyStore(db)
	now := time.Date(2024, 4, 9, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Cleanup(context.Background(), 24*time.Hour); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(db.calls) != 1 {
		t.Fatalf("expected one exec, got %d", len(db.calls))
	}
	cutoff, ok := db.calls[0].args[0].(time.Time)
	if !ok || !cutoff.Equal(now.Add(-24*time.Hour)) {
		t.Fatalf("unexpected cutoff %v", db.calls[0].args[0])
	}
}

func TestAuditRecordValidates(t *testing.T) {
	db := &recordingExecer{}
	logger := NewAuditLogger(db)
	if err := logger.Record(context.Background(), AuditLog{Action: "voucher.post"}); err == nil {
		t.Fatalf("expected validation error")
	}
	err := logger.Record(context.Background(), AuditLog{
		ActorID:  3,
		Action:   "voucher.post",
		Entity:   "voucher",
		EntityID: "9",
		Meta:     map[string]any{"number": "JV-000009"},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	args := db.calls[0].args
	if string(args[4].([]byte)) != `{"number":"JV-000009"}` {
		t.Fatalf("unexpected meta %s", args[4])
	}
	if args[5] != nil {
		t.Fatalf("zero time should defer to the database clock, got %v", args[5])
	}
}

func TestActorScopes(t *testing.T) {
	actor := NewActor(9, []string{" ledger.view ", "", PermLedgerExport})
	if !actor.Can(PermLedgerView) || !actor.Can(PermLedgerExport) {
		t.Fatalf("expected trimmed scopes, got %v", actor.Permissions)
	}
	if actor.Can(PermLedgerVoucherPurge) {
		t.Fatalf("unexpected purge scope")
	}
	ctx := ContextWithActor(context.Background(), actor)
	got, ok := ActorFromContext(ctx)
	if !ok || got.ID != 9 {
		t.Fatalf("unexpected actor %+v", got)
	}
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatalf("expected no actor")
	}
}

func TestPagination(t *testing.T) {
	p := NewPagination(3, 10, 45)
	if p.TotalPages != 5 || p.Offset() != 20 {
		t.Fatalf("unexpected pagination %+v offset %d", p, p.Offset())
	}
	p = NewPagination(0, 0, 0)
	if p.Page != 1 || p.PerPage != DefaultPerPage || p.Offset() != 0 {
		t.Fatalf("unexpected defaults %+v", p)
	}
}
