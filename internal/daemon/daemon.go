package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"vidslides/internal/api"
	"vidslides/internal/config"
	"vidslides/internal/deps"
	"vidslides/internal/logging"
	"vidslides/internal/notifications"
	"vidslides/internal/queue"
	"vidslides/internal/workflow"
)

// Daemon owns the coordinator, the HTTP API and the single-instance lock.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *queue.Store
	coordinator *workflow.Coordinator
	jobs        *api.JobService
	hub         *EventHub
	notifier    notifications.Service

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies. A nil notifier
// disables test notifications.
func New(cfg *config.Config, store *queue.Store, coordinator *workflow.Coordinator, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || coordinator == nil {
		return nil, errors.New("daemon requires config, store, and coordinator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}

	d := &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       store,
		coordinator: coordinator,
		jobs:        api.NewJobService(cfg, store, coordinator),
		hub:         NewEventHub(logger),
		notifier:    notifier,
		lockPath:    cfg.LockPath(),
		lock:        flock.New(cfg.LockPath()),
	}
	coordinator.AddSink(d.hub)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, starts the coordinator and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vidslides daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.coordinator.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start coordinator: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.coordinator.Stop()
		d.abortStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("vidslides daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("api_bind", d.api.address()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop shuts down the API, cancels the running job and releases the lock.
// A job interrupted here stays running in the store and is failed by the
// recovery pass of the next start.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	d.hub.Close()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.coordinator.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("vidslides daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Jobs returns the job service shared with the IPC server.
func (d *Daemon) Jobs() *api.JobService {
	return d.jobs
}

// Events returns the websocket event hub.
func (d *Daemon) Events() *EventHub {
	return d.hub
}

// TestNotification publishes a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		APIBind:      d.api.address(),
		LogPath:      d.cfg.DaemonLogPath(),
		Workflow:     d.jobs.Status(ctx),
		Dependencies: api.FromDependencies(deps.CheckBinaries(deps.Requirements(d.cfg))),
	}
}
