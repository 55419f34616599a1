package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/practice-ledger/internal/jobs"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/integrity"
)

// Scanner runs the ledger integrity checks.
type Scanner interface {
	Scan(ctx context.Context) (integrity.Report, error)
}

// GaugeSink publishes the violation count of the latest scan.
type GaugeSink interface {
	SetIntegrityViolations(n int)
}

// ErrIntegrityViolations is returned when a scan asked to fail on findings.
var ErrIntegrityViolations = errors.New("ledger integrity violations found")

// IntegrityScanJob handles TaskLedgerIntegrityScan.
type IntegrityScanJob struct {
	scanner Scanner
	logger  *slog.Logger
	gauge   GaugeSink
	metrics *jobmetrics.Metrics
}

// NewIntegrityScanJob builds the handler. gauge and metrics may be nil.
func NewIntegrityScanJob(scanner Scanner, logger *slog.Logger, gauge GaugeSink, metrics *jobmetrics.Metrics) *IntegrityScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrityScanJob{scanner: scanner, logger: logger, gauge: gauge, metrics: metrics}
}

// Handle executes the scan.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.scanner == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("integrity scan payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tracker := j.metrics.Track(TaskLedgerIntegrityScan)
	return tracker.End(j.scan(ctx, payload))
}

func (j *IntegrityScanJob) scan(ctx context.Context, payload IntegrityScanPayload) error {
	start := time.Now()
	report, err := j.scanner.Scan(ctx)
	if err != nil {
		j.logger.Error("integrity scan failed", slog.Any("error", err))
		return err
	}
	if j.gauge != nil {
		j.gauge.SetIntegrityViolations(len(report.Violations))
	}
	byKind := map[integrity.Kind]int{}
	for _, v := range report.Violations {
		byKind[v.Kind]++
		j.logger.Warn("ledger integrity violation",
			slog.String("kind", string(v.Kind)),
			slog.Int64("voucher_id", v.VoucherID),
			slog.String("voucher_number", v.VoucherNumber),
			slog.Int64("account_id", v.AccountID),
			slog.String("debit", v.Debit.StringFixed(2)),
			slog.String("credit", v.Credit.StringFixed(2)),
		)
	}
	for kind, n := range byKind {
		j.metrics.AddViolations(string(kind), n)
	}
	j.logger.Info("integrity scan completed",
		slog.Int("violations", len(report.Violations)),
		slog.Duration("elapsed", time.Since(start)),
	)
	if payload.FailOnViolation && !report.OK() {
		return fmt.Errorf("%w: %d", ErrIntegrityViolations, len(report.Violations))
	}
	return nil
}

// KeyCleaner removes expired idempotency keys.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob handles TaskIdempotencyCleanup.
type IdempotencyCleanupJob struct {
	store   KeyCleaner
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob builds the handler. metrics may be nil.
func NewIdempotencyCleanupJob(store KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{store: store, logger: logger, metrics: metrics}
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("idempotency cleanup payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Retention <= 0 {
		payload.Retention = 7 * 24 * time.Hour
	}
	tracker := j.metrics.Track(TaskIdempotencyCleanup)
	if err := tracker.End(j.store.Cleanup(ctx, payload.Retention)); err != nil {
		j.logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	j.logger.Info("idempotency keys cleaned", slog.Duration("retention", payload.Retention))
	return nil
}
