package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/accounts"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/shared"
	internalShared "github.com/odyssey-erp/practice-ledger/internal/shared"
)

// Action names a lifecycle capability checked through the Authorizer.
type Action string

const (
	ActionEdit   Action = internalShared.PermLedgerVoucherEdit
	ActionPost   Action = internalShared.PermLedgerVoucherPost
	ActionCancel Action = internalShared.PermLedgerVoucherCancel
	ActionDelete Action = internalShared.PermLedgerVoucherDelete
	ActionPurge  Action = internalShared.PermLedgerVoucherPurge
)

// Chart is the slice of the chart of accounts the lifecycle needs.
type Chart interface {
	Lookup(ctx context.Context, id int64) (accounts.Account, error)
	Resolve(ctx context.Context, ids []int64) (map[int64]accounts.Account, error)
}

// Authorizer carries the caller's authorization decision into the engine.
type Authorizer interface {
	Authorize(ctx context.Context, actorID int64, action Action) error
}

// AuditPort records lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Invalidator is notified after a commit changed the ledger.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// TransitionObserver counts lifecycle outcomes.
type TransitionObserver interface {
	ObserveTransition(transition string, err error)
}

// Service owns the voucher state machine and its ledger side effects.
type Service struct {
	repo         Repository
	chart        Chart
	audit        AuditPort
	authz        Authorizer
	invalidator  Invalidator
	observer     TransitionObserver
	allowPurge   bool
	strictDrafts bool
	now          func() time.Time
}

// Options toggles optional lifecycle behaviour.
type Options struct {
	// AllowPurge permits privileged removal of posted or cancelled vouchers.
	AllowPurge bool
	// StrictDrafts runs the full posting validation on every draft save.
	StrictDrafts bool
}

// NewService constructs the lifecycle service. audit and authz may be nil.
func NewService(repo Repository, chart Chart, audit AuditPort, authz Authorizer, opts Options) *Service {
	return &Service{
		repo:         repo,
		chart:        chart,
		audit:        audit,
		authz:        authz,
		allowPurge:   opts.AllowPurge,
		strictDrafts: opts.StrictDrafts,
		now:          time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithInvalidator registers the cache invalidated after ledger writes.
func (s *Service) WithInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// WithObserver registers the transition metrics sink.
func (s *Service) WithObserver(obs TransitionObserver) {
	s.observer = obs
}

// Create stores a new draft voucher with optional initial entries.
func (s *Service) Create(ctx context.Context, in CreateInput) (Voucher, error) {
	if in.TypeID == 0 {
		return Voucher{}, shared.ErrVoucherTypeRequired
	}
	if err := s.authorize(ctx, in.ActorID, ActionEdit); err != nil {
		return Voucher{}, err
	}
	entries, err := s.prepareDraftEntries(ctx, in.Entries)
	if err != nil {
		return Voucher{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	var created Voucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		vt, err := tx.GetType(ctx, in.TypeID)
		if err != nil {
			return err
		}
		number := strings.TrimSpace(in.Number)
		if number == "" {
			seq, err := tx.NextNumber(ctx, vt.ID)
			if err != nil {
				return err
			}
			number = formatNumber(vt.Code, seq)
		}
		inserted, err := tx.InsertVoucher(ctx, Voucher{
			Number:          number,
			Date:            dateOnly(date),
			ReferenceNumber: strings.TrimSpace(in.ReferenceNumber),
			Narration:       strings.TrimSpace(in.Narration),
			TypeID:          vt.ID,
			Status:          StatusDraft,
			TotalAmount:     decimal.Zero,
			CreatedBy:       in.ActorID,
		})
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			stored, err := tx.ReplaceEntries(ctx, inserted.ID, entries)
			if err != nil {
				return err
			}
			inserted.Entries = stored
		}
		created = inserted
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, in.ActorID, "voucher.create", created, map[string]any{"number": created.Number})
	return created, nil
}

// UpdateHeader edits the header of a draft voucher.
func (s *Service) UpdateHeader(ctx context.Context, id int64, in HeaderInput) (Voucher, error) {
	if err := s.authorize(ctx, in.ActorID, ActionEdit); err != nil {
		return Voucher{}, err
	}
	var updated Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return transitionError(current.Status, "edited")
		}
		if in.TypeID == 0 {
			in.TypeID = current.TypeID
		} else if _, err := tx.GetType(ctx, in.TypeID); err != nil {
			return err
		}
		if in.Date.IsZero() {
			in.Date = current.Date
		}
		in.Date = dateOnly(in.Date)
		in.ReferenceNumber = strings.TrimSpace(in.ReferenceNumber)
		in.Narration = strings.TrimSpace(in.Narration)
		if err := tx.UpdateHeader(ctx, id, in); err != nil {
			if errors.Is(err, errStaleStatus) {
				return transitionError(current.Status, "edited")
			}
			return err
		}
		current.Date = in.Date
		current.ReferenceNumber = in.ReferenceNumber
		current.Narration = in.Narration
		current.TypeID = in.TypeID
		updated = current
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, in.ActorID, "voucher.update", updated, nil)
	return updated, nil
}

// ReplaceEntries swaps the full entry set of a draft voucher.
func (s *Service) ReplaceEntries(ctx context.Context, id, actorID int64, entries []EntryInput) (Voucher, error) {
	if err := s.authorize(ctx, actorID, ActionEdit); err != nil {
		return Voucher{}, err
	}
	prepared, err := s.prepareDraftEntries(ctx, entries)
	if err != nil {
		return Voucher{}, err
	}
	var updated Voucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return transitionError(current.Status, "edited")
		}
		stored, err := tx.ReplaceEntries(ctx, id, prepared)
		if err != nil {
			return err
		}
		current.Entries = stored
		updated = current
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, actorID, "voucher.entries", updated, map[string]any{"lines": len(updated.Entries)})
	return updated, nil
}

// Post validates a draft and materializes it into the ledger exactly once.
func (s *Service) Post(ctx context.Context, in PostInput) (Voucher, error) {
	posted, err := s.post(ctx, in)
	s.observe("post", err)
	return posted, err
}

func (s *Service) post(ctx context.Context, in PostInput) (Voucher, error) {
	if in.VoucherID == 0 {
		return Voucher{}, shared.ErrVoucherIDRequired
	}
	if err := s.authorize(ctx, in.ActorID, ActionPost); err != nil {
		return Voucher{}, err
	}
	var posted Voucher
	var rows []LedgerTransaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, in.VoucherID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return transitionError(current.Status, StatusPosted)
		}
		if err := ValidateEntries(ctx, toEntryInputs(current.Entries), s.chart); err != nil {
			return err
		}
		debit, _ := Totals(current.Entries)
		at := s.now()
		if err := tx.TransitionStatus(ctx, current.ID, StatusDraft, StatusPosted, debit, at); err != nil {
			if errors.Is(err, errStaleStatus) {
				return transitionError(current.Status, StatusPosted)
			}
			return err
		}
		rows, err = materialize(ctx, tx, current)
		if err != nil {
			return err
		}
		current.Status = StatusPosted
		current.TotalAmount = debit
		current.PostedAt = &at
		posted = current
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.invalidate(ctx)
	s.record(ctx, in.ActorID, "voucher.post", posted, map[string]any{
		"number":       posted.Number,
		"total":        posted.TotalAmount.StringFixed(2),
		"ledger_lines": len(rows),
	})
	return posted, nil
}

// Cancel reverses a posted voucher with swapped ledger rows.
func (s *Service) Cancel(ctx context.Context, in CancelInput) (Voucher, error) {
	cancelled, err := s.cancel(ctx, in)
	s.observe("cancel", err)
	return cancelled, err
}

func (s *Service) cancel(ctx context.Context, in CancelInput) (Voucher, error) {
	if in.VoucherID == 0 {
		return Voucher{}, shared.ErrVoucherIDRequired
	}
	if err := s.authorize(ctx, in.ActorID, ActionCancel); err != nil {
		return Voucher{}, err
	}
	var cancelled Voucher
	var rows []LedgerTransaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, in.VoucherID)
		if err != nil {
			return err
		}
		if current.Status != StatusPosted {
			return transitionError(current.Status, StatusCancelled)
		}
		at := s.now()
		if err := tx.TransitionStatus(ctx, current.ID, StatusPosted, StatusCancelled, current.TotalAmount, at); err != nil {
			if errors.Is(err, errStaleStatus) {
				return transitionError(current.Status, StatusCancelled)
			}
			return err
		}
		rows, err = reverse(ctx, tx, current, in.Reason, at)
		if err != nil {
			return err
		}
		current.Status = StatusCancelled
		current.CancelledAt = &at
		cancelled = current
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.invalidate(ctx)
	s.record(ctx, in.ActorID, "voucher.cancel", cancelled, map[string]any{
		"number":         cancelled.Number,
		"reason":         in.Reason,
		"reversal_lines": len(rows),
	})
	return cancelled, nil
}

// Delete hard-deletes a draft. Posted or cancelled vouchers are only removed
// through an explicit, enabled and authorized purge, which also drops their
// ledger rows.
func (s *Service) Delete(ctx context.Context, in DeleteInput) error {
	err := s.delete(ctx, in)
	if in.Purge {
		s.observe("purge", err)
	} else {
		s.observe("delete", err)
	}
	return err
}

func (s *Service) delete(ctx context.Context, in DeleteInput) error {
	if in.VoucherID == 0 {
		return shared.ErrVoucherIDRequired
	}
	action := ActionDelete
	if in.Purge {
		action = ActionPurge
	}
	if err := s.authorize(ctx, in.ActorID, action); err != nil {
		return err
	}
	var removed Voucher
	var purgedRows int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, in.VoucherID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			if !in.Purge {
				return transitionError(current.Status, statusDeleted)
			}
			if !s.allowPurge {
				return shared.ErrPurgeDisabled
			}
			purgedRows, err = tx.DeleteLedgerTransactions(ctx, current.ID)
			if err != nil {
				return err
			}
		}
		if err := tx.DeleteVoucher(ctx, current.ID, current.Status); err != nil {
			if errors.Is(err, errStaleStatus) {
				return transitionError(current.Status, statusDeleted)
			}
			return err
		}
		removed = current
		return nil
	})
	if err != nil {
		return err
	}
	if removed.Status == StatusDraft {
		s.record(ctx, in.ActorID, "voucher.delete", removed, map[string]any{"number": removed.Number})
		return nil
	}
	s.invalidate(ctx)
	s.record(ctx, in.ActorID, "voucher.purge", removed, map[string]any{
		"number":       removed.Number,
		"status":       string(removed.Status),
		"ledger_rows":  purgedRows,
		"reason":       in.Reason,
		"irreversible": true,
	})
	return nil
}

// Get returns a voucher with its entries.
func (s *Service) Get(ctx context.Context, id int64) (Voucher, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of vouchers with their summary tiles.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Tile, internalShared.Pagination, error) {
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalShared.Pagination{}, err
	}
	ids := make([]int64, 0)
	for _, v := range list {
		for _, e := range v.Entries {
			ids = append(ids, e.AccountID)
		}
	}
	names, err := s.accountNames(ctx, ids)
	if err != nil {
		return nil, internalShared.Pagination{}, err
	}
	tiles := make([]Tile, 0, len(list))
	for _, v := range list {
		tiles = append(tiles, NewTile(v, names))
	}
	return tiles, internalShared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// ListTypes returns the configured voucher types.
func (s *Service) ListTypes(ctx context.Context) ([]VoucherType, error) {
	return s.repo.ListTypes(ctx)
}

// LedgerTransactions returns the materialized rows of a voucher.
func (s *Service) LedgerTransactions(ctx context.Context, id int64) ([]LedgerTransaction, error) {
	return s.repo.ListLedgerTransactions(ctx, id)
}

// prepareDraftEntries drops discarded all-zero lines and rejects malformed
// ones. Strict mode runs the full posting validation as early feedback.
func (s *Service) prepareDraftEntries(ctx context.Context, entries []EntryInput) ([]EntryInput, error) {
	out := make([]EntryInput, 0, len(entries))
	for idx, e := range entries {
		if e.Debit.IsZero() && e.Credit.IsZero() {
			continue
		}
		if !oneSided(e) {
			return nil, &shared.LineError{Index: idx, AccountID: e.AccountID, Err: shared.ErrMixedOrEmptyLine}
		}
		e.Debit = e.Debit.Round(2)
		e.Credit = e.Credit.Round(2)
		e.Narration = strings.TrimSpace(e.Narration)
		out = append(out, e)
	}
	if s.strictDrafts {
		if err := ValidateEntries(ctx, out, s.chart); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Service) accountNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if s.chart == nil || len(ids) == 0 {
		return names, nil
	}
	resolved, err := s.chart.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, a := range resolved {
		names[id] = a.Name
	}
	return names, nil
}

func (s *Service) authorize(ctx context.Context, actorID int64, action Action) error {
	if s.authz == nil {
		return nil
	}
	if err := s.authz.Authorize(ctx, actorID, action); err != nil {
		if errors.Is(err, shared.ErrForbidden) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", shared.ErrForbidden, action, err)
	}
	return nil
}

// bumpTimeout bounds the cache bump issued after a committed transition.
const bumpTimeout = 2 * time.Second

// invalidate bumps the statement cache once the ledger changed. The bump runs
// detached from the caller so a cancelled request cannot leave stale
// statements behind; failures are reported as the "invalidate" transition.
func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	bumpCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bumpTimeout)
	defer cancel()
	s.observe("invalidate", s.invalidator.Bump(bumpCtx))
}

func (s *Service) observe(transition string, err error) {
	if s.observer != nil {
		s.observer.ObserveTransition(transition, err)
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, v Voucher, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "voucher",
		EntityID: fmt.Sprintf("%d", v.ID),
		Meta:     meta,
		At:       s.now(),
	})
}

func transitionError(from Status, to Status) error {
	return &shared.TransitionError{From: string(from), To: string(to)}
}

func formatNumber(code string, seq int64) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "VCH"
	}
	return fmt.Sprintf("%s-%06d", code, seq)
}
