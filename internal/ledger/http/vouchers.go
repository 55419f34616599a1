package ledgerhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/vouchers"
	"github.com/odyssey-erp/practice-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/practice-ledger/internal/shared"
)

// IdempotencyHeader names the request header honoured by the post endpoint.
const IdempotencyHeader = "Idempotency-Key"

const postOperation = "ledger.voucher.post"

type listVouchersResponse struct {
	Data       []vouchers.Tile   `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.ListActive(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) listVoucherTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.vouchers.ListTypes(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": types})
}

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	q := readListQuery(r)
	if err := h.validate(q); err != nil {
		h.respondError(w, err)
		return
	}
	tiles, page, err := h.vouchers.List(r.Context(), q.filter())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if tiles == nil {
		tiles = []vouchers.Tile{}
	}
	httpx.JSON(w, http.StatusOK, listVouchersResponse{Data: tiles, Pagination: page})
}

func (h *Handler) showVoucher(w http.ResponseWriter, r *http.Request) {
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
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	var req createVoucherRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	created, err := h.vouchers.Create(r.Context(), vouchers.CreateInput{
		Number:          req.Number,
		Date:            parseDate(req.Date),
		ReferenceNumber: req.ReferenceNumber,
		Narration:       req.Narration,
		TypeID:          req.TypeID,
		ActorID:         actorID(r),
		Entries:         toEntryInputs(req.Entries),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Location", "/ledger/vouchers/"+strconv.FormatInt(created.ID, 10))
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req updateVoucherRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	updated, err := h.vouchers.UpdateHeader(r.Context(), id, vouchers.HeaderInput{
		Date:            parseDate(req.Date),
		ReferenceNumber: req.ReferenceNumber,
		Narration:       req.Narration,
		TypeID:          req.TypeID,
		ActorID:         actorID(r),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) replaceEntries(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req replaceEntriesRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	updated, err := h.vouchers.ReplaceEntries(r.Context(), id, actorID(r), toEntryInputs(req.Entries))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// postVoucher posts a draft. An Idempotency-Key is bound to the voucher id; a
// finished key replays the current voucher, a running one answers 409 and a
// key reused on another voucher answers 422.
func (h *Handler) postVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	claimed := key != "" && h.idempotency != nil
	if claimed {
		err := h.idempotency.Claim(ctx, key, postOperation, strconv.FormatInt(id, 10))
		switch {
		case errors.Is(err, shared.ErrIdempotencyConflict):
			current, err := h.vouchers.Get(ctx, id)
			if err != nil {
				h.respondError(w, err)
				return
			}
			w.Header().Set("Idempotent-Replayed", "true")
			httpx.JSON(w, http.StatusOK, current)
			return
		case err != nil:
			h.respondError(w, err)
			return
		}
	}
	posted, err := h.vouchers.Post(ctx, vouchers.PostInput{VoucherID: id, ActorID: actorID(r)})
	// the claim outlives a cancelled request context
	bg := context.WithoutCancel(ctx)
	if err != nil {
		if claimed {
			if relErr := h.idempotency.Release(bg, key, postOperation); relErr != nil {
				h.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", relErr))
			}
		}
		h.respondError(w, err)
		return
	}
	if claimed {
		if doneErr := h.idempotency.Complete(bg, key, postOperation); doneErr != nil {
			h.logger.Warn("complete idempotency key", slog.String("key", key), slog.Any("error", doneErr))
		}
	}
	h.logger.Info("voucher posted", slog.Int64("voucher_id", posted.ID), slog.String("number", posted.Number))
	httpx.JSON(w, http.StatusOK, posted)
}

func (h *Handler) cancelVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req cancelVoucherRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			h.respondError(w, err)
			return
		}
	}
	cancelled, err := h.vouchers.Cancel(r.Context(), vouchers.CancelInput{VoucherID: id, ActorID: actorID(r), Reason: req.Reason})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.logger.Info("voucher cancelled", slog.Int64("voucher_id", cancelled.ID), slog.String("number", cancelled.Number))
	httpx.JSON(w, http.StatusOK, cancelled)
}

func (h *Handler) deleteVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge"))
	in := vouchers.DeleteInput{
		VoucherID: id,
		ActorID:   actorID(r),
		Purge:     purge,
		Reason:    strings.TrimSpace(r.URL.Query().Get("reason")),
	}
	if err := h.vouchers.Delete(r.Context(), in); err != nil {
		h.respondError(w, err)
		return
	}
	if purge {
		h.logger.Warn("voucher purged", slog.Int64("voucher_id", id), slog.Int64("actor_id", in.ActorID))
	}
	w.WriteHeader(http.StatusNoContent)
}
