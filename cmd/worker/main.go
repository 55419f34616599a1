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

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/practice-ledger/internal/app"
	jobmetrics "github.com/odyssey-erp/practice-ledger/internal/jobs"
	"github.com/odyssey-erp/practice-ledger/internal/observability"
	"github.com/odyssey-erp/practice-ledger/internal/platform/cache"
	"github.com/odyssey-erp/practice-ledger/internal/platform/db"
	"github.com/odyssey-erp/practice-ledger/jobs"
)

const metricsAddr = ":9091"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions("ledger-worker"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.CacheOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	ledger := app.NewLedger(cfg, pool, redisClient, nil)

	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	integrityJob := jobs.NewIntegrityScanJob(ledger.Integrity, logger, metrics, jobMetrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(ledger.Idempotency, logger, jobMetrics)

	integrityTask, err := jobs.NewIntegrityScanTask(jobs.IntegrityScanPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.DefaultCleanupRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.AsynqRedis(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrityScan, Handler: integrityJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IntegrityCron, Task: integrityTask},
			{Spec: "30 3 * * *", Task: cleanupTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("starting metrics server", slog.String("addr", metricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
