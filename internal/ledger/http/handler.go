// Package ledgerhttp exposes the voucher lifecycle and account statements over JSON and CSV.
package ledgerhttp

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/accounts"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/statement"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/vouchers"
	"github.com/odyssey-erp/practice-ledger/internal/shared"
)

// VoucherService is the lifecycle surface used by the handlers.
type VoucherService interface {
	Create(ctx context.Context, in vouchers.CreateInput) (vouchers.Voucher, error)
	UpdateHeader(ctx context.Context, id int64, in vouchers.HeaderInput) (vouchers.Voucher, error)
	ReplaceEntries(ctx context.Context, id, actorID int64, entries []vouchers.EntryInput) (vouchers.Voucher, error)
	Post(ctx context.Context, in vouchers.PostInput) (vouchers.Voucher, error)
	Cancel(ctx context.Context, in vouchers.CancelInput) (vouchers.Voucher, error)
	Delete(ctx context.Context, in vouchers.DeleteInput) error
	Get(ctx context.Context, id int64) (vouchers.Voucher, error)
	Detail(ctx context.Context, id int64, tag language.Tag) (vouchers.Detail, error)
	List(ctx context.Context, filter vouchers.ListFilter) ([]vouchers.Tile, shared.Pagination, error)
	ListTypes(ctx context.Context) ([]vouchers.VoucherType, error)
}

// StatementService projects account ledgers.
type StatementService interface {
	Project(ctx context.Context, q statement.Query) (statement.Statement, error)
}

// AccountDirectory lists selectable accounts.
type AccountDirectory interface {
	ListActive(ctx context.Context) ([]accounts.Account, error)
}

// IdempotencyPort claims request keys bound to the resource they act on.
type IdempotencyPort interface {
	Claim(ctx context.Context, key, operation, resource string) error
	Complete(ctx context.Context, key, operation string) error
	Release(ctx context.Context, key, operation string) error
}

// VoucherPrinter renders the print view of a voucher to PDF.
type VoucherPrinter interface {
	PDF(ctx context.Context, detail vouchers.Detail) ([]byte, error)
}

// Config carries presentation settings.
type Config struct {
	DateLayout string
	Locale     language.Tag
}

// Handler wires the ledger HTTP endpoints.
type Handler struct {
	logger      *slog.Logger
	vouchers    VoucherService
	statements  StatementService
	accounts    AccountDirectory
	idempotency IdempotencyPort
	printer     VoucherPrinter
	validator   *validator.Validate
	dateLayout  string
	locale      language.Tag
	now         func() time.Time
}

// NewHandler builds the handler. idempotency may be nil.
func NewHandler(logger *slog.Logger, voucherSvc VoucherService, statementSvc StatementService, accountDir AccountDirectory, idempotency IdempotencyPort, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	layout := cfg.DateLayout
	if layout == "" {
		layout = statement.DefaultDateLayout
	}
	locale := cfg.Locale
	if locale == language.Und {
		locale = vouchers.DefaultLanguage
	}
	return &Handler{
		logger:      logger,
		vouchers:    voucherSvc,
		statements:  statementSvc,
		accounts:    accountDir,
		idempotency: idempotency,
		validator:   validator.New(),
		dateLayout:  layout,
		locale:      locale,
		now:         time.Now,
	}
}

// WithPrinter enables the PDF print route.
func (h *Handler) WithPrinter(p VoucherPrinter) *Handler {
	h.printer = p
	return h
}

// MountRoutes registers ledger routes under the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.require(shared.PermLedgerView))
		r.Get("/accounts", h.listAccounts)
		r.Get("/accounts/{id}/statement", h.showStatement)
		r.Get("/voucher-types", h.listVoucherTypes)
		r.Get("/vouchers", h.listVouchers)
		r.Get("/vouchers/{id}", h.showVoucher)
		r.Get("/vouchers/{id}/print.pdf", h.printVoucher)
	})
	r.With(h.require(shared.PermLedgerExport)).Get("/accounts/{id}/statement.csv", h.exportStatement)

	r.Post("/vouchers", h.createVoucher)
	r.Put("/vouchers/{id}", h.updateVoucher)
	r.Put("/vouchers/{id}/entries", h.replaceEntries)
	r.Post("/vouchers/{id}/post", h.postVoucher)
	r.Post("/vouchers/{id}/cancel", h.cancelVoucher)
	r.Delete("/vouchers/{id}", h.deleteVoucher)
}
