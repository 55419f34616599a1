package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	ledgerhttp "github.com/odyssey-erp/practice-ledger/internal/ledger/http"
	"github.com/odyssey-erp/practice-ledger/internal/observability"
	"github.com/odyssey-erp/practice-ledger/internal/shared"
	"github.com/odyssey-erp/practice-ledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	LedgerHandler *ledgerhttp.Handler
	JobHandler    *jobs.Handler
	Pool          *pgxpool.Pool
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with ledger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool == nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := params.Pool.Ping(ctx); err != nil {
			params.Logger.Warn("readiness ping failed", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	if params.LedgerHandler != nil {
		r.Route("/ledger", params.LedgerHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.With(RequirePermission(params.Logger, shared.PermLedgerJobs)).Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
