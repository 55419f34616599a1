package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/practice-ledger/internal/app"
	ledgerhttp "github.com/odyssey-erp/practice-ledger/internal/ledger/http"
	"github.com/odyssey-erp/practice-ledger/internal/observability"
	"github.com/odyssey-erp/practice-ledger/internal/platform/cache"
	"github.com/odyssey-erp/practice-ledger/internal/platform/db"
	"github.com/odyssey-erp/practice-ledger/jobs"
	"github.com/odyssey-erp/practice-ledger/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions("ledger-api"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.CacheOptions())
	if err != nil {
		logger.Warn("redis unavailable, ledger cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	ledger := app.NewLedger(cfg, dbpool, redisClient, ledgerhttp.ActorAuthorizer{})
	ledger.Vouchers.WithObserver(metrics)
	if err := ledger.Cache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	locale, err := language.Parse(cfg.LedgerLocale)
	if err != nil {
		logger.Warn("invalid ledger locale, using default", slog.String("locale", cfg.LedgerLocale))
		locale = language.Und
	}
	ledgerHandler := ledgerhttp.NewHandler(logger, ledger.Vouchers, ledger.Statements, ledger.Accounts, ledger.Idempotency, ledgerhttp.Config{
		DateLayout: cfg.LedgerDateLayout,
		Locale:     locale,
	})

	if cfg.GotenbergURL != "" {
		pdfClient := report.NewClient(cfg.GotenbergURL)
		if err := pdfClient.Ping(ctx); err != nil {
			logger.Warn("gotenberg unreachable", slog.Any("error", err))
		}
		printer, err := report.NewVoucherPrinter(pdfClient)
		if err != nil {
			logger.Error("parse voucher template", slog.Any("error", err))
			os.Exit(1)
		}
		ledgerHandler.WithPrinter(printer)
	}

	redisOpts := cfg.AsynqRedis()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: ledgerHandler,
		JobHandler:    jobHandler,
		Pool:          dbpool,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
