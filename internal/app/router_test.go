package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/practice-ledger/internal/shared"
	"github.com/odyssey-erp/practice-ledger/jobs"
)

func TestJobsRoutesRequirePermission(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(RouterParams{
		Logger:     logger,
		JobHandler: jobs.NewHandler(nil, nil, logger),
	})

	cases := []struct {
		name   string
		scopes *string
		method string
		path   string
		want   int
	}{
		{name: "default operator", method: http.MethodGet, path: "/jobs/health", want: http.StatusForbidden},
		{name: "default operator enqueue", method: http.MethodPost, path: "/jobs/idempotency-cleanup", want: http.StatusForbidden},
		{name: "view only", scopes: ptr(shared.PermLedgerView), method: http.MethodPost, path: "/jobs/integrity-scan", want: http.StatusForbidden},
		{name: "jobs scope", scopes: ptr(shared.PermLedgerJobs), method: http.MethodGet, path: "/jobs/health", want: http.StatusOK},
		{name: "jobs scope without queue", scopes: ptr(shared.PermLedgerJobs), method: http.MethodPost, path: "/jobs/idempotency-cleanup", want: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set(HeaderActorID, "9")
			if tc.scopes != nil {
				req.Header.Set(HeaderActorPermissions, *tc.scopes)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequirePermissionWithoutActor(t *testing.T) {
	called := false
	h := RequirePermission(nil, shared.PermLedgerJobs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, called)
}

func ptr(s string) *string { return &s }
