package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
		Logger: newAsynqLogger(cfg.Logger),
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueIntegrityScan enqueues an on-demand integrity scan. Scans are unique
// per minute so repeated requests collapse into one run.
func (c *Client) EnqueueIntegrityScan(ctx context.Context, payload IntegrityScanPayload) (*asynq.TaskInfo, error) {
	task, err := NewIntegrityScanTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.Unique(time.Minute))
}

// EnqueueIdempotencyCleanup enqueues an on-demand removal of idempotency keys
// older than retention, unique per minute like scans.
func (c *Client) EnqueueIdempotencyCleanup(ctx context.Context, retention time.Duration) (*asynq.TaskInfo, error) {
	task, err := NewIdempotencyCleanupTask(retention)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.Unique(time.Minute))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// DefaultCleanupRetention is how long processed idempotency keys are kept.
const DefaultCleanupRetention = 7 * 24 * time.Hour

// Enqueuer submits on-demand jobs. *Client implements it.
type Enqueuer interface {
	EnqueueIntegrityScan(ctx context.Context, payload IntegrityScanPayload) (*asynq.TaskInfo, error)
	EnqueueIdempotencyCleanup(ctx context.Context, retention time.Duration) (*asynq.TaskInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector *asynq.Inspector
	client    Enqueuer
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. client may be nil,
// which disables on-demand enqueueing.
func NewHandler(inspector *asynq.Inspector, client Enqueuer, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, client: client, logger: logger}
}

// MountRoutes attaches job routes. Tasks are addressed by their asynq type or
// by a short alias.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/{task}", h.enqueue)
}

var taskAliases = map[string]string{
	"integrity-scan":        TaskLedgerIntegrityScan,
	"idempotency-cleanup":   TaskIdempotencyCleanup,
	TaskLedgerIntegrityScan: TaskLedgerIntegrityScan,
	TaskIdempotencyCleanup:  TaskIdempotencyCleanup,
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	task, ok := taskAliases[chi.URLParam(r, "task")]
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	if h.client == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	var (
		info *asynq.TaskInfo
		err  error
	)
	switch task {
	case TaskIdempotencyCleanup:
		info, err = h.client.EnqueueIdempotencyCleanup(r.Context(), DefaultCleanupRetention)
	default:
		info, err = h.client.EnqueueIntegrityScan(r.Context(), IntegrityScanPayload{})
	}
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		h.logger.Warn("enqueue job", slog.String("task", task), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"task":"` + task + `","task_id":"` + info.ID + `"}`))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"queue":"default","pending":0}`))
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	pending := 0
	queueName := QueueDefault
	if info != nil {
		pending = int(info.Pending)
		queueName = info.Queue
	}
	_, _ = w.Write([]byte(`{"queue":"` + queueName + `","pending":` + itoa(pending) + `}`))
}

func itoa(i int) string {
	return strconv.FormatInt(int64(i), 10)
}

// asynqLogger routes asynq's internal logging through slog.
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) asynq.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return asynqLogger{logger: logger.With(slog.String("component", "asynq"))}
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any) { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any) { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
