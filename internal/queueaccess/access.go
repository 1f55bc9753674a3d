package queueaccess

import (
	"context"

	"vidslides/internal/api"
	"vidslides/internal/config"
	"vidslides/internal/ipc"
	"vidslides/internal/queue"
	"vidslides/internal/workflow"
)

// Access provides job operations regardless of IPC or direct store backing.
type Access interface {
	Submit(ctx context.Context, req api.CreateJobRequest) (*api.Job, error)
	List(ctx context.Context, limit int, status string) ([]api.Job, error)
	Show(ctx context.Context, jobID string) (*api.Job, error)
	Reprocess(ctx context.Context, jobID string) (*api.Job, error)
	Drain(ctx context.Context) (*api.DrainResponse, error)
	Library(ctx context.Context, page, pageSize int, search string) (*api.LibraryPage, error)
	Stats(ctx context.Context) (map[string]int, error)
	// Live reports whether a daemon is serving the calls.
	Live() bool
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct database access. Jobs
// submitted this way stay pending until a daemon starts and drains them.
func NewStoreAccess(cfg *config.Config, store *queue.Store) Access {
	return &storeAccess{service: api.NewJobService(cfg, store, offlineDispatcher{store: store})}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Submit(_ context.Context, req api.CreateJobRequest) (*api.Job, error) {
	return a.client.Submit(req)
}

func (a *ipcAccess) List(_ context.Context, limit int, status string) ([]api.Job, error) {
	return a.client.List(limit, status)
}

func (a *ipcAccess) Show(_ context.Context, jobID string) (*api.Job, error) {
	return a.client.Show(jobID)
}

func (a *ipcAccess) Reprocess(_ context.Context, jobID string) (*api.Job, error) {
	return a.client.Reprocess(jobID)
}

func (a *ipcAccess) Drain(_ context.Context) (*api.DrainResponse, error) {
	return a.client.Drain()
}

func (a *ipcAccess) Library(_ context.Context, page, pageSize int, search string) (*api.LibraryPage, error) {
	return a.client.Library(page, pageSize, search)
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	status, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return status.Workflow.QueueStats, nil
}

func (a *ipcAccess) Live() bool { return true }

type storeAccess struct {
	service *api.JobService
}

func (a *storeAccess) Submit(ctx context.Context, req api.CreateJobRequest) (*api.Job, error) {
	return a.service.CreateJob(ctx, req)
}

func (a *storeAccess) List(ctx context.Context, limit int, status string) ([]api.Job, error) {
	resp, err := a.service.ListJobs(ctx, limit, status)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *storeAccess) Show(ctx context.Context, jobID string) (*api.Job, error) {
	return a.service.GetJob(ctx, jobID)
}

func (a *storeAccess) Reprocess(ctx context.Context, jobID string) (*api.Job, error) {
	return a.service.Reprocess(ctx, jobID)
}

func (a *storeAccess) Drain(ctx context.Context) (*api.DrainResponse, error) {
	return a.service.DrainQueue(ctx)
}

func (a *storeAccess) Library(ctx context.Context, page, pageSize int, search string) (*api.LibraryPage, error) {
	return a.service.BrowseCompleted(ctx, page, pageSize, search)
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Status(ctx).QueueStats, nil
}

func (a *storeAccess) Live() bool { return false }

// offlineDispatcher persists state changes without a worker. Nothing is
// ever claimed, so the single running slot stays with the daemon.
type offlineDispatcher struct {
	store *queue.Store
}

func (d offlineDispatcher) Enqueue(ctx context.Context, in queue.NewJob) (*queue.Job, error) {
	return d.store.Insert(ctx, in)
}

func (d offlineDispatcher) Reprocess(ctx context.Context, jobID string) (*queue.Job, error) {
	return d.store.ResetForReprocess(ctx, jobID)
}

func (d offlineDispatcher) DrainAllPending(ctx context.Context) (workflow.DrainResult, error) {
	counts, err := d.store.CountByStatus(ctx)
	if err != nil {
		return workflow.DrainResult{}, err
	}
	return workflow.DrainResult{
		Running: counts[queue.StatusRunning] > 0,
		Pending: counts[queue.StatusPending],
	}, nil
}

func (d offlineDispatcher) Status(ctx context.Context) workflow.StatusSummary {
	stats, _ := d.store.CountByStatus(ctx)
	return workflow.StatusSummary{QueueStats: stats}
}
