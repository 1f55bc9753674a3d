package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"vidslides/internal/config"
	"vidslides/internal/downloader"
	"vidslides/internal/pipeline"
	"vidslides/internal/queue"
	"vidslides/internal/workflow"
)

// JobReader abstracts the job store queries the service needs.
type JobReader interface {
	GetByJobID(ctx context.Context, jobID string) (*queue.Job, error)
	FindActiveByURL(ctx context.Context, url string) (*queue.Job, error)
	List(ctx context.Context, limit int, statuses ...queue.Status) ([]*queue.Job, error)
	ListCompleted(ctx context.Context, page, pageSize int, search string) (*queue.Page, error)
}

// Dispatcher is the subset of the workflow coordinator the service drives.
type Dispatcher interface {
	Enqueue(ctx context.Context, in queue.NewJob) (*queue.Job, error)
	Reprocess(ctx context.Context, jobID string) (*queue.Job, error)
	DrainAllPending(ctx context.Context) (workflow.DrainResult, error)
	Status(ctx context.Context) workflow.StatusSummary
}

// JobService implements the job operations behind every transport.
type JobService struct {
	cfg        *config.Config
	store      JobReader
	dispatcher Dispatcher
	validate   *validator.Validate
	now        func() time.Time
}

// NewJobService constructs a JobService.
func NewJobService(cfg *config.Config, store JobReader, dispatcher Dispatcher) *JobService {
	return &JobService{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		validate:   newValidator(),
		now:        time.Now,
	}
}

// GenerateJobID returns the default id for API created jobs,
// "ppt-YYYYmmdd-HHMMSS-<6 hex>".
func GenerateJobID(now time.Time) (string, error) {
	id, err := pipeline.GenerateJobID(now)
	if err != nil {
		return "", err
	}
	return "ppt-" + id, nil
}

// CreateJob validates req, rejects duplicates and enqueues the job. The
// returned job reflects whether it was dispatched immediately.
func (s *JobService) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.JobID = strings.TrimSpace(req.JobID)
	req.Title = strings.TrimSpace(req.Title)
	req.Subtitle = strings.TrimSpace(req.Subtitle)
	req.ImageFormat = strings.ToLower(strings.TrimSpace(req.ImageFormat))
	req.FilePattern = strings.TrimSpace(req.FilePattern)
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	jobID := req.JobID
	if jobID == "" {
		generated, err := GenerateJobID(s.now())
		if err != nil {
			return nil, err
		}
		jobID = generated
	}

	existing, err := s.store.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("lookup job %s: %w", jobID, err)
	}
	if existing != nil {
		return nil, &ServiceError{Code: CodeDuplicateJobID, Message: "Job ID already exists", JobID: jobID, Status: string(existing.Status)}
	}
	active, err := s.store.FindActiveByURL(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("lookup url: %w", err)
	}
	if active != nil {
		return nil, duplicateURL(active)
	}

	job, err := s.dispatcher.Enqueue(ctx, queue.NewJob{
		JobID:  jobID,
		URL:    req.URL,
		Source: string(downloader.Classify(req.URL)),
		Params: s.paramsFor(req),
	})
	if err != nil {
		if errors.Is(err, queue.ErrDuplicateJobID) {
			return nil, &ServiceError{Code: CodeDuplicateJobID, Message: "Job ID already exists", JobID: jobID}
		}
		var dupURL *queue.DuplicateURLError
		if errors.As(err, &dupURL) {
			// Lost a race with a concurrent create for the same URL.
			return nil, duplicateURL(dupURL.Existing)
		}
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

func duplicateURL(existing *queue.Job) *ServiceError {
	svcErr := &ServiceError{Code: CodeDuplicateURL, Message: "A job for this URL already exists"}
	if existing != nil {
		svcErr.JobID = existing.JobID
		svcErr.Status = string(existing.Status)
	}
	return svcErr
}

func (s *JobService) paramsFor(req CreateJobRequest) queue.Params {
	defaults := s.cfg.Extraction
	params := queue.Params{
		Title:               req.Title,
		Subtitle:            req.Subtitle,
		SimilarityThreshold: defaults.SimilarityThreshold,
		MinIntervalSeconds:  defaults.MinIntervalSeconds,
		SkipFirstSeconds:    defaults.SkipFirstSeconds,
		FillMode:            defaults.FillMode,
		ImageFormat:         defaults.ImageFormat,
		ImageQuality:        defaults.ImageQuality,
		ExtraDownloadArgs:   append([]string(nil), req.ExtraDownloadArgs...),
		FilePattern:         req.FilePattern,
	}
	if req.SimilarityThreshold != nil {
		params.SimilarityThreshold = *req.SimilarityThreshold
	}
	if req.MinIntervalSeconds != nil {
		params.MinIntervalSeconds = *req.MinIntervalSeconds
	}
	if req.SkipFirstSeconds != nil {
		params.SkipFirstSeconds = *req.SkipFirstSeconds
	}
	if req.FillMode != nil {
		params.FillMode = *req.FillMode
	}
	if req.ImageFormat != "" {
		params.ImageFormat = req.ImageFormat
	}
	if req.ImageQuality != nil {
		params.ImageQuality = *req.ImageQuality
	}
	return params
}

// ListJobs returns recent jobs, newest first. status optionally filters.
func (s *JobService) ListJobs(ctx context.Context, limit int, status string) (*JobListResponse, error) {
	var statuses []queue.Status
	if strings.TrimSpace(status) != "" {
		parsed, ok := queue.ParseStatus(status)
		if !ok {
			return nil, &ServiceError{Code: CodeInvalidRequest, Message: fmt.Sprintf("unknown status %q", status)}
		}
		statuses = append(statuses, parsed)
	}
	jobs, err := s.store.List(ctx, limit, statuses...)
	if err != nil {
		return nil, err
	}
	items := FromJobs(jobs)
	for i := range items {
		items[i] = items[i].Summary()
	}
	return &JobListResponse{Items: items}, nil
}

// GetJob returns the full record of one job.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*Job, error) {
	job, err := s.lookup(ctx, jobID)
	if err != nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

// BrowseCompleted pages through finished decks.
func (s *JobService) BrowseCompleted(ctx context.Context, page, pageSize int, search string) (*LibraryPage, error) {
	result, err := s.store.ListCompleted(ctx, page, pageSize, search)
	if err != nil {
		return nil, err
	}
	items := FromJobs(result.Items)
	for i := range items {
		items[i] = items[i].Summary()
	}
	return &LibraryPage{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Reprocess resets a finished job to pending and schedules it.
func (s *JobService) Reprocess(ctx context.Context, jobID string) (*Job, error) {
	job, err := s.dispatcher.Reprocess(ctx, strings.TrimSpace(jobID))
	var dupURL *queue.DuplicateURLError
	switch {
	case errors.As(err, &dupURL):
		return nil, duplicateURL(dupURL.Existing)
	case errors.Is(err, queue.ErrJobNotFound):
		return nil, notFound(jobID)
	case errors.Is(err, queue.ErrJobRunning):
		return nil, &ServiceError{Code: CodeJobRunning, Message: "Job is already running", JobID: jobID, Status: string(queue.StatusRunning)}
	case err != nil:
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

// DrainQueue starts the next pending job when the worker is idle.
func (s *JobService) DrainQueue(ctx context.Context) (*DrainResponse, error) {
	result, err := s.dispatcher.DrainAllPending(ctx)
	if err != nil {
		return nil, err
	}
	resp := &DrainResponse{Running: result.Running, Pending: result.Pending}
	if result.Dispatched != nil {
		dispatched := FromJob(result.Dispatched).Summary()
		resp.Dispatched = &dispatched
	}
	return resp, nil
}

// DeckFile locates the deck of a completed job.
func (s *JobService) DeckFile(ctx context.Context, jobID string) (*DeckFile, error) {
	job, err := s.lookup(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != queue.StatusCompleted || job.PPTPath == "" {
		return nil, &ServiceError{Code: CodeNotReady, Message: "Deck is not ready", JobID: job.JobID, Status: string(job.Status)}
	}
	path := s.cfg.ResolveFromBase(job.PPTPath)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, &ServiceError{Code: CodeNotReady, Message: "Deck file is missing", JobID: job.JobID, Status: string(job.Status)}
	}
	return &DeckFile{Path: path, Filename: filepath.Base(path)}, nil
}

// Status reports coordinator state and queue counts.
func (s *JobService) Status(ctx context.Context) WorkflowStatus {
	return FromStatusSummary(s.dispatcher.Status(ctx))
}

func (s *JobService) lookup(ctx context.Context, jobID string) (*queue.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, notFound(jobID)
	}
	job, err := s.store.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, notFound(jobID)
	}
	return job, nil
}
