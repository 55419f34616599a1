package ledgerhttp

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/statement"
	"github.com/odyssey-erp/practice-ledger/internal/platform/httpx"
)

func (h *Handler) loadStatement(r *http.Request) (statement.Statement, error) {
	id, err := pathID(r)
	if err != nil {
		return statement.Statement{}, err
	}
	q := readStatementQuery(r)
	if err := h.validate(q); err != nil {
		return statement.Statement{}, err
	}
	return h.statements.Project(r.Context(), q.query(id))
}

func (h *Handler) showStatement(w http.ResponseWriter, r *http.Request) {
	st, err := h.loadStatement(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) exportStatement(w http.ResponseWriter, r *http.Request) {
	st, err := h.loadStatement(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := statement.WriteCSV(&buf, st, h.dateLayout); err != nil {
		h.respondError(w, err)
		return
	}
	code := st.Account.Code
	if code == "" {
		code = strconv.FormatInt(st.Account.ID, 10)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+statement.Filename(code, h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
