package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("voucher 9: %w", ErrNotFound), http.StatusNotFound},
		{ErrValidation, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrConflict, http.StatusConflict},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, nil, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, nil, errors.New("password=secret"))
	var p ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Empty(t, p.Detail)
	assert.Equal(t, "Internal Error", p.Title)
}
