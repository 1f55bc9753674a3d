package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vidslides/internal/config"
	"vidslides/internal/logging"
	"vidslides/internal/notifications"
	"vidslides/internal/queue"
)

// Coordinator serializes job execution over the job store.
type Coordinator struct {
	cfg      *config.Config
	store    *queue.Store
	runner   Runner
	notifier notifications.Service
	logger   *slog.Logger

	work chan *queue.Job

	mu      sync.RWMutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	current *queue.Job
	lastJob *queue.Job
	lastErr error
	sinks   []EventSink

	// Counters for the current busy period, reported when the queue drains.
	processed int
	failed    int
}

// NewCoordinator constructs a coordinator. A nil notifier disables
// notifications.
func NewCoordinator(cfg *config.Config, store *queue.Store, runner Runner, notifier notifications.Service, logger *slog.Logger) *Coordinator {
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Coordinator{
		cfg:      cfg,
		store:    store,
		runner:   runner,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "coordinator"),
		work:     make(chan *queue.Job, 1),
	}
}

// AddSink registers an event sink.
func (c *Coordinator) AddSink(sink EventSink) {
	if sink == nil {
		return
	}
	c.mu.Lock()
	c.sinks = append(c.sinks, sink)
	c.mu.Unlock()
}

// Start recovers jobs interrupted by a previous process, starts the worker
// and drains the pending backlog.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("coordinator already running")
	}
	if c.runner == nil {
		c.mu.Unlock()
		return errors.New("coordinator runner not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.ctx = runCtx
	c.cancel = cancel
	c.started = true
	c.wg.Add(1)
	c.mu.Unlock()

	recovered, err := c.store.RecoverRunning(runCtx)
	if err != nil {
		c.logger.Error("failed to recover interrupted jobs",
			logging.Error(err),
			logging.String(logging.FieldEventType, "recover_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	} else if recovered > 0 {
		logging.WarnWithContext(c.logger, "jobs interrupted by restart marked failed", "jobs_recovered",
			logging.Int64("count", recovered),
			logging.String(logging.FieldErrorHint, "reprocess the affected jobs"),
			logging.String(logging.FieldImpact, "interrupted jobs must be resubmitted"),
		)
	}

	go c.worker(runCtx)

	if _, err := c.DrainAllPending(runCtx); err != nil {
		c.setLastError(err)
		c.logger.Error("initial drain failed", logging.Error(err), logging.String(logging.FieldEventType, "drain_failed"))
	}
	c.logger.Info("coordinator started", logging.String(logging.FieldEventType, "coordinator_start"))
	return nil
}

// Stop cancels the running job and waits for the worker to exit.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
}

// Enqueue inserts a pending job and dispatches it when the worker is idle.
// The returned job reflects the status after dispatch.
func (c *Coordinator) Enqueue(ctx context.Context, in queue.NewJob) (*queue.Job, error) {
	job, err := c.store.Insert(ctx, in)
	if err != nil {
		return nil, err
	}
	c.publish(EventJobQueued, job)
	c.logger.Info("job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.String(logging.FieldJobID, job.JobID),
		logging.String("url", job.URL),
	)

	if _, err := c.DispatchNext(ctx); err != nil {
		// The job stays pending and is picked up by the next dispatch.
		c.setLastError(err)
		logging.WarnWithContext(c.logger, "dispatch after enqueue failed", "dispatch_failed",
			logging.String(logging.FieldJobID, job.JobID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job waits for the next dispatch"),
		)
		return job, nil
	}
	return c.refresh(ctx, job), nil
}

// DispatchNext claims the oldest pending job and hands it to the worker. It
// returns nil when nothing is pending, another job is running or the
// coordinator is stopped.
func (c *Coordinator) DispatchNext(ctx context.Context) (*queue.Job, error) {
	c.mu.RLock()
	started := c.started
	workerCtx := c.ctx
	c.mu.RUnlock()
	if !started {
		return nil, nil
	}

	job, err := c.store.ClaimNext(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	c.mu.Lock()
	c.current = job
	c.mu.Unlock()
	c.publish(EventJobStarted, job)

	select {
	case c.work <- job:
	case <-workerCtx.Done():
		// Left running; startup recovery fails it.
		return job, nil
	}
	return job, nil
}

// Reprocess resets a finished job to pending and dispatches.
func (c *Coordinator) Reprocess(ctx context.Context, jobID string) (*queue.Job, error) {
	job, err := c.store.ResetForReprocess(ctx, jobID)
	if err != nil {
		return nil, err
	}
	c.publish(EventJobReset, job)
	c.logger.Info("job reset for reprocessing",
		logging.String(logging.FieldEventType, "job_reset"),
		logging.String(logging.FieldJobID, jobID),
	)
	if _, err := c.DispatchNext(ctx); err != nil {
		c.setLastError(err)
		return job, nil
	}
	return c.refresh(ctx, job), nil
}

// DrainAllPending dispatches once when nothing is running; otherwise it only
// reports the backlog, which the worker drains as jobs finish.
func (c *Coordinator) DrainAllPending(ctx context.Context) (DrainResult, error) {
	counts, err := c.store.CountByStatus(ctx)
	if err != nil {
		return DrainResult{}, err
	}
	result := DrainResult{Pending: counts[queue.StatusPending]}
	if counts[queue.StatusRunning] > 0 {
		result.Running = true
		return result, nil
	}
	job, err := c.DispatchNext(ctx)
	if err != nil {
		return result, err
	}
	if job != nil {
		result.Dispatched = job
		result.Pending--
	}
	return result, nil
}

// Status returns the latest workflow information.
func (c *Coordinator) Status(ctx context.Context) StatusSummary {
	c.mu.RLock()
	summary := StatusSummary{Running: c.started}
	if c.current != nil {
		current := *c.current
		summary.Current = &current
	}
	if c.lastJob != nil {
		last := *c.lastJob
		summary.LastJob = &last
	}
	if c.lastErr != nil {
		summary.LastError = c.lastErr.Error()
	}
	c.mu.RUnlock()

	stats, err := c.store.CountByStatus(ctx)
	if err != nil {
		c.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats
	return summary
}

func (c *Coordinator) refresh(ctx context.Context, job *queue.Job) *queue.Job {
	fresh, err := c.store.GetByJobID(ctx, job.JobID)
	if err != nil || fresh == nil {
		return job
	}
	return fresh
}

func (c *Coordinator) publish(eventType EventType, job *queue.Job) {
	if job == nil {
		return
	}
	c.mu.RLock()
	sinks := append([]EventSink(nil), c.sinks...)
	c.mu.RUnlock()
	if len(sinks) == 0 {
		return
	}
	snapshot := *job
	event := JobEvent{Type: eventType, JobID: job.JobID, At: time.Now().UTC(), Job: &snapshot}
	for _, sink := range sinks {
		sink.PublishJobEvent(event)
	}
}

func (c *Coordinator) setLastError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}
