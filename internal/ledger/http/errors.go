package ledgerhttp

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/shared"
	"github.com/odyssey-erp/practice-ledger/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/practice-ledger/internal/shared"
)

// respondError maps ledger errors to problem responses and hands everything
// else to httpx.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var unbalanced *shared.UnbalancedError
	var lineErr *shared.LineError
	var transition *shared.TransitionError
	switch {
	case errors.As(err, &unbalanced):
		httpx.ProblemWith(w, http.StatusUnprocessableEntity, "Unbalanced Voucher", err.Error(), map[string]any{
			"debit":  unbalanced.Debit.StringFixed(2),
			"credit": unbalanced.Credit.StringFixed(2),
			"delta":  unbalanced.Delta.StringFixed(2),
		})
	case errors.As(err, &lineErr):
		httpx.ProblemWith(w, http.StatusUnprocessableEntity, "Invalid Entry", err.Error(), map[string]any{
			"line":       lineErr.Index + 1,
			"account_id": lineErr.AccountID,
		})
	case errors.As(err, &transition):
		httpx.ProblemWith(w, http.StatusConflict, "Invalid Transition", err.Error(), map[string]any{
			"from": transition.From,
			"to":   transition.To,
		})
	case errors.Is(err, shared.ErrEmptyVoucher):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Empty Voucher", err.Error())
	case errors.Is(err, shared.ErrVoucherTypeRequired), errors.Is(err, shared.ErrVoucherIDRequired):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Missing Field", err.Error())
	case errors.Is(err, shared.ErrVoucherNotFound), errors.Is(err, shared.ErrAccountNotFound),
		errors.Is(err, shared.ErrVoucherTypeNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateNumber):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrPurgeDisabled):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, internalShared.ErrIdempotencyKeyReused):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Idempotency Key Reused", err.Error())
	case errors.Is(err, internalShared.ErrIdempotencyInProgress):
		httpx.Problem(w, http.StatusConflict, "Request In Progress", err.Error())
	default:
		httpx.RespondError(w, h.logger, err)
	}
}
