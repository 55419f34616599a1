package ledgerhttp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/practice-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/practice-ledger/report"
)

func (h *Handler) printVoucher(w http.ResponseWriter, r *http.Request) {
	if h.printer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", report.ErrDisabled.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	detail, err := h.vouchers.Detail(r.Context(), id, h.locale)
	if err != nil {
		h.respondError(w, err)
		return
	}
	pdf, err := h.printer.PDF(r.Context(), detail)
	switch {
	case errors.Is(err, report.ErrDisabled):
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", err.Error())
		return
	case errors.Is(err, report.ErrTimeout), errors.Is(err, report.ErrInvalidResponse):
		h.logger.Warn("voucher pdf render failed", slog.Int64("voucher_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "PDF Render Failed", err.Error())
		return
	case err != nil:
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+detail.Voucher.Number+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
