package vouchers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/accounts"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/shared"
	internalShared "github.com/odyssey-erp/practice-ledger/internal/shared"
)

// memStore is an in-memory Repository. WithTx holds the store lock for the
// whole callback, which serializes transactions like row locks would, and
// restores a snapshot when the callback fails.
type memStore struct {
	mu           sync.Mutex
	vouchers     map[int64]Voucher
	types        map[int64]VoucherType
	seq          map[int64]int64
	ledger       []LedgerTransaction
	nextID       int64
	nextEntryID  int64
	nextLedgerID int64
	failLedger   error
}

func newMemStore() *memStore {
	return &memStore{
		vouchers: map[int64]Voucher{},
		types: map[int64]VoucherType{
			1: {ID: 1, Name: "Journal", Code: "JV"},
			2: {ID: 2, Name: "Payment", Code: "PAY"},
		},
		seq: map[int64]int64{},
	}
}

type memSnapshot struct {
	vouchers     map[int64]Voucher
	seq          map[int64]int64
	ledger       []LedgerTransaction
	nextID       int64
	nextEntryID  int64
	nextLedgerID int64
}

func (m *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		vouchers:     make(map[int64]Voucher, len(m.vouchers)),
		seq:          make(map[int64]int64, len(m.seq)),
		ledger:       append([]LedgerTransaction(nil), m.ledger...),
		nextID:       m.nextID,
		nextEntryID:  m.nextEntryID,
		nextLedgerID: m.nextLedgerID,
	}
	for id, v := range m.vouchers {
		v.Entries = append([]Entry(nil), v.Entries...)
		snap.vouchers[id] = v
	}
	for k, v := range m.seq {
		snap.seq[k] = v
	}
	return snap
}

func (m *memStore) restore(s memSnapshot) {
	m.vouchers = s.vouchers
	m.seq = s.seq
	m.ledger = s.ledger
	m.nextID = s.nextID
	m.nextEntryID = s.nextEntryID
	m.nextLedgerID = s.nextLedgerID
}

func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(ctx, memTx{m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) Get(ctx context.Context, id int64) (Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok {
		return Voucher{}, shared.ErrVoucherNotFound
	}
	return v, nil
}

func (m *memStore) List(ctx context.Context, filter ListFilter) ([]Voucher, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Voucher
	for _, v := range m.vouchers {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InsertSeq < out[j].InsertSeq })
	return out, len(out), nil
}

func (m *memStore) ListTypes(ctx context.Context) ([]VoucherType, error) {
	out := make([]VoucherType, 0, len(m.types))
	for _, t := range m.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListLedgerTransactions(ctx context.Context, voucherID int64) ([]LedgerTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledgerOf(voucherID), nil
}

func (m *memStore) ledgerOf(voucherID int64) []LedgerTransaction {
	var out []LedgerTransaction
	for _, row := range m.ledger {
		if row.VoucherID == voucherID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// storeStamp is the created_at the fake store assigns, standing in for the
// database clock.
var storeStamp = time.Date(2031, 1, 2, 3, 4, 5, 0, time.UTC)

type memTx struct {
	m *memStore
}

func (tx memTx) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	v, ok := tx.m.vouchers[id]
	if !ok {
		return Voucher{}, shared.ErrVoucherNotFound
	}
	v.Entries = append([]Entry(nil), v.Entries...)
	return v, nil
}

func (tx memTx) GetType(ctx context.Context, id int64) (VoucherType, error) {
	t, ok := tx.m.types[id]
	if !ok {
		return VoucherType{}, shared.ErrVoucherTypeNotFound
	}
	return t, nil
}

func (tx memTx) NextNumber(ctx context.Context, typeID int64) (int64, error) {
	tx.m.seq[typeID]++
	return tx.m.seq[typeID], nil
}

func (tx memTx) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	for _, existing := range tx.m.vouchers {
		if existing.Number == v.Number {
			return Voucher{}, shared.ErrDuplicateNumber
		}
	}
	tx.m.nextID++
	v.ID = tx.m.nextID
	tx.m.vouchers[v.ID] = v
	return v, nil
}

func (tx memTx) UpdateHeader(ctx context.Context, id int64, in HeaderInput) error {
	v, ok := tx.m.vouchers[id]
	if !ok || v.Status != StatusDraft {
		return errStaleStatus
	}
	v.Date = in.Date
	v.ReferenceNumber = in.ReferenceNumber
	v.Narration = in.Narration
	v.TypeID = in.TypeID
	tx.m.vouchers[id] = v
	return nil
}

func (tx memTx) ReplaceEntries(ctx context.Context, voucherID int64, entries []EntryInput) ([]Entry, error) {
	v, ok := tx.m.vouchers[voucherID]
	if !ok {
		return nil, shared.ErrVoucherNotFound
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		tx.m.nextEntryID++
		out = append(out, Entry{
			ID:        tx.m.nextEntryID,
			VoucherID: voucherID,
			AccountID: e.AccountID,
			Debit:     e.Debit,
			Credit:    e.Credit,
			Narration: e.Narration,
		})
	}
	v.Entries = out
	tx.m.vouchers[voucherID] = v
	return append([]Entry(nil), out...), nil
}

func (tx memTx) TransitionStatus(ctx context.Context, id int64, from, to Status, total decimal.Decimal, at time.Time) error {
	v, ok := tx.m.vouchers[id]
	if !ok || v.Status != from {
		return errStaleStatus
	}
	v.Status = to
	v.TotalAmount = total
	stamp := at
	switch to {
	case StatusPosted:
		v.PostedAt = &stamp
	case StatusCancelled:
		v.CancelledAt = &stamp
	}
	tx.m.vouchers[id] = v
	return nil
}

func (tx memTx) DeleteVoucher(ctx context.Context, id int64, expected Status) error {
	v, ok := tx.m.vouchers[id]
	if !ok || v.Status != expected {
		return errStaleStatus
	}
	delete(tx.m.vouchers, id)
	return nil
}

func (tx memTx) InsertLedgerTransactions(ctx context.Context, rows []LedgerTransaction) ([]LedgerTransaction, error) {
	if tx.m.failLedger != nil {
		return nil, tx.m.failLedger
	}
	out := make([]LedgerTransaction, 0, len(rows))
	for _, row := range rows {
		tx.m.nextLedgerID++
		row.ID = tx.m.nextLedgerID
		row.CreatedAt = storeStamp
		row.InsertSeq = tx.m.nextLedgerID
		tx.m.ledger = append(tx.m.ledger, row)
		out = append(out, row)
	}
	return out, nil
}

func (tx memTx) ListLedgerTransactions(ctx context.Context, voucherID int64) ([]LedgerTransaction, error) {
	return tx.m.ledgerOf(voucherID), nil
}

func (tx memTx) DeleteLedgerTransactions(ctx context.Context, voucherID int64) (int64, error) {
	kept := tx.m.ledger[:0:0]
	var removed int64
	for _, row := range tx.m.ledger {
		if row.VoucherID == voucherID {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	tx.m.ledger = kept
	return removed, nil
}

type stubChart map[int64]accounts.Account

func (c stubChart) Lookup(ctx context.Context, id int64) (accounts.Account, error) {
	a, ok := c[id]
	if !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (c stubChart) Resolve(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	out := map[int64]accounts.Account{}
	for _, id := range ids {
		if a, ok := c[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

const (
	acctCash    int64 = 1
	acctBank    int64 = 2
	acctCapital int64 = 3
	acctRent    int64 = 4
	acctSales   int64 = 5
)

func testChart() stubChart {
	return stubChart{
		acctCash:    {ID: acctCash, Code: "1000", Name: "Cash", IsActive: true},
		acctBank:    {ID: acctBank, Code: "1010", Name: "Bank", IsActive: true},
		acctCapital: {ID: acctCapital, Code: "3000", Name: "Owner Capital", IsActive: true},
		acctRent:    {ID: acctRent, Code: "5000", Name: "Rent", IsActive: true},
		acctSales:   {ID: acctSales, Code: "4000", Name: "Sales", IsActive: true},
	}
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []internalShared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log internalShared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type denyAuthorizer map[Action]bool

func (d denyAuthorizer) Authorize(ctx context.Context, actorID int64, action Action) error {
	if d[action] {
		return errors.New("denied")
	}
	return nil
}

type countingInvalidator struct {
	mu     sync.Mutex
	bumps  int
	err    error
	ctxErr error
}

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bumps++
	c.ctxErr = ctx.Err()
	return c.err
}

type recordingObserver struct {
	mu      sync.Mutex
	results map[string][]error
}

func (o *recordingObserver) ObserveTransition(transition string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = map[string][]error{}
	}
	o.results[transition] = append(o.results[transition], err)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func debit(account int64, amount string) EntryInput {
	return EntryInput{AccountID: account, Debit: d(amount)}
}

func credit(account int64, amount string) EntryInput {
	return EntryInput{AccountID: account, Credit: d(amount)}
}

type failingLookup struct {
	err error
}

func (f failingLookup) Lookup(ctx context.Context, id int64) (accounts.Account, error) {
	return accounts.Account{}, f.err
}
