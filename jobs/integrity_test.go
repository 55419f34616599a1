package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/practice-ledger/internal/jobs"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/integrity"
)

type stubScanner struct {
	report integrity.Report
	err    error
	calls  int
}

func (s *stubScanner) Scan(ctx context.Context) (integrity.Report, error) {
	s.calls++
	return s.report, s.err
}

type gaugeRecorder struct {
	last int
	set  bool
}

func (g *gaugeRecorder) SetIntegrityViolations(n int) {
	g.last = n
	g.set = true
}

type stubCleaner struct {
	retention time.Duration
	err       error
}

func (s *stubCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	s.retention = olderThan
	return s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dirtyReport() integrity.Report {
	return integrity.Report{Violations: []integrity.Violation{
		{Kind: integrity.KindUnbalanced, VoucherID: 1, VoucherNumber: "JV-000001"},
		{Kind: integrity.KindUnreversed, VoucherID: 2, VoucherNumber: "JV-000002", AccountID: 4},
	}}
}

func TestIntegrityScanJobPublishesViolations(t *testing.T) {
	scanner := &stubScanner{report: dirtyReport()}
	gauge := &gaugeRecorder{}
	job := NewIntegrityScanJob(scanner, discardLogger(), gauge, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewIntegrityScanTask(IntegrityScanPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, scanner.calls)
	assert.True(t, gauge.set)
	assert.Equal(t, 2, gauge.last)
}

func TestIntegrityScanJobFailOnViolation(t *testing.T) {
	job := NewIntegrityScanJob(&stubScanner{report: dirtyReport()}, discardLogger(), nil, nil)
	task, err := NewIntegrityScanTask(IntegrityScanPayload{FailOnViolation: true})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, ErrIntegrityViolations)

	clean := NewIntegrityScanJob(&stubScanner{report: integrity.Report{}}, discardLogger(), nil, nil)
	require.NoError(t, clean.Handle(context.Background(), task))
}

func TestIntegrityScanJobErrors(t *testing.T) {
	boom := errors.New("db down")
	job := NewIntegrityScanJob(&stubScanner{err: boom}, discardLogger(), nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrityScan, nil))
	require.ErrorIs(t, err, boom)

	err = job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrityScan, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	var unset *IntegrityScanJob
	require.Error(t, unset.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrityScan, nil)))
}

func TestIdempotencyCleanupJob(t *testing.T) {
	cleaner := &stubCleaner{}
	job := NewIdempotencyCleanupJob(cleaner, discardLogger(), nil)

	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 7*24*time.Hour, cleaner.retention)

	task, err = NewIdempotencyCleanupTask(time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, time.Hour, cleaner.retention)

	cleaner.err = errors.New("locked")
	require.Error(t, job.Handle(context.Background(), task))
}

func TestTaskConstructors(t *testing.T) {
	task, err := NewIntegrityScanTask(IntegrityScanPayload{FailOnViolation: true})
	require.NoError(t, err)
	assert.Equal(t, TaskLedgerIntegrityScan, task.Type())
	var payload IntegrityScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.True(t, payload.FailOnViolation)
}

func TestJobsHandlerWithoutBackends(t *testing.T) {
	h := NewHandler(nil, nil, discardLogger())
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/integrity-scan", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type stubEnqueuer struct {
	tasks []string
	err   error
}

func (s *stubEnqueuer) EnqueueIntegrityScan(ctx context.Context, payload IntegrityScanPayload) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, TaskLedgerIntegrityScan)
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "scan-1"}, nil
}

func (s *stubEnqueuer) EnqueueIdempotencyCleanup(ctx context.Context, retention time.Duration) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, TaskIdempotencyCleanup)
	if retention != DefaultCleanupRetention {
		return nil, errors.New("unexpected retention")
	}
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "cleanup-1"}, nil
}

func TestJobsHandlerEnqueuesEachTask(t *testing.T) {
	enq := &stubEnqueuer{}
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, enq, discardLogger()).MountRoutes)

	cases := []struct {
		path string
		body string
	}{
		{"/jobs/integrity-scan", `{"task":"ledger:integrity.scan","task_id":"scan-1"}`},
		{"/jobs/idempotency-cleanup", `{"task":"ledger:idempotency.cleanup","task_id":"cleanup-1"}`},
		{"/jobs/ledger:idempotency.cleanup", `{"task":"ledger:idempotency.cleanup","task_id":"cleanup-1"}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.path, nil))
		require.Equal(t, http.StatusAccepted, rec.Code, tc.path)
		assert.JSONEq(t, tc.body, rec.Body.String(), tc.path)
	}
	assert.Equal(t, []string{TaskLedgerIntegrityScan, TaskIdempotencyCleanup, TaskIdempotencyCleanup}, enq.tasks)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/drop-tables", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, enq.tasks, 3)
}

func TestJobsHandlerCollapsesDuplicates(t *testing.T) {
	enq := &stubEnqueuer{err: asynq.ErrDuplicateTask}
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, enq, discardLogger()).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/idempotency-cleanup", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	enq.err = errors.New("redis down")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/integrity-scan", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
