package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan re-checks posted and cancelled vouchers against their ledger rows.
	TaskLedgerIntegrityScan = "ledger:integrity.scan"
	// TaskIdempotencyCleanup removes expired idempotency keys.
	TaskIdempotencyCleanup = "ledger:idempotency.cleanup"
)

// IntegrityScanPayload controls a scan run.
type IntegrityScanPayload struct {
	// FailOnViolation makes the task fail, and retry, when violations exist.
	FailOnViolation bool `json:"fail_on_violation"`
}

// NewIntegrityScanTask constructs an integrity scan task.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, data, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute)), nil
}

// IdempotencyCleanupPayload sets the retention of processed keys.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.MaxRetry(1)), nil
}
