package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"vidslides/internal/api"
	"vidslides/internal/config"
	"vidslides/internal/queue"
	"vidslides/internal/testsupport"
	"vidslides/internal/workflow"
)

// storeDispatcher drives the store directly without a worker.
type storeDispatcher struct {
	store *queue.Store
}

func (d *storeDispatcher) Enqueue(ctx context.Context, in queue.NewJob) (*queue.Job, error) {
	return d.store.Insert(ctx, in)
}

func (d *storeDispatcher) Reprocess(ctx context.Context, jobID string) (*queue.Job, error) {
	return d.store.ResetForReprocess(ctx, jobID)
}

func (d *storeDispatcher) DrainAllPending(ctx context.Context) (workflow.DrainResult, error) {
	counts, err := d.store.CountByStatus(ctx)
	if err != nil {
		return workflow.DrainResult{}, err
	}
	result := workflow.DrainResult{Pending: counts[queue.StatusPending]}
	if counts[queue.StatusRunning] > 0 {
		result.Running = true
		return result, nil
	}
	job, err := d.store.ClaimNext(ctx)
	if err != nil {
		return result, err
	}
	if job != nil {
		result.Dispatched = job
		result.Pending--
	}
	return result, nil
}

func (d *storeDispatcher) Status(ctx context.Context) workflow.StatusSummary {
	stats, _ := d.store.CountByStatus(ctx)
	return workflow.StatusSummary{Running: true, QueueStats: stats}
}

func newService(t *testing.T) (*api.JobService, *queue.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return api.NewJobService(cfg, store, &storeDispatcher{store: store}), store, cfg
}

const validURL = "https://www.youtube.com/watch?v=valid"

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestCreateJobAppliesDefaults(t *testing.T) {
	svc, store, cfg := newService(t)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, api.CreateJobRequest{URL: "  https://www.youtube.com/watch?v=abc  "})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if !regexp.MustCompile(`^ppt-\d{8}-\d{6}-[0-9a-f]{6}$`).MatchString(job.JobID) {
		t.Fatalf("unexpected generated id %q", job.JobID)
	}
	if job.URL != "https://www.youtube.com/watch?v=abc" || job.Source != "youtube" {
		t.Fatalf("unexpected url/source %q %q", job.URL, job.Source)
	}
	if job.Status != string(queue.StatusPending) {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.SimilarityThreshold != cfg.Extraction.SimilarityThreshold || job.ImageQuality != cfg.Extraction.ImageQuality {
		t.Fatalf("defaults not applied: %+v", job)
	}
	stored, err := store.GetByJobID(ctx, job.JobID)
	if err != nil || stored == nil {
		t.Fatalf("job not persisted: %v", err)
	}
}

func TestCreateJobHonoursOverrides(t *testing.T) {
	svc, _, _ := newService(t)
	fill := false
	job, err := svc.CreateJob(context.Background(), api.CreateJobRequest{
		URL:                 "https://www.bilibili.com/video/BV1xx",
		JobID:               "lecture-1",
		Title:               "Lecture",
		SimilarityThreshold: floatPtr(0),
		MinIntervalSeconds:  floatPtr(0),
		SkipFirstSeconds:    floatPtr(12.5),
		FillMode:            &fill,
		ImageFormat:         "PNG",
		ImageQuality:        intPtr(10),
		ExtraDownloadArgs:   []string{"--audio-only"},
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.JobID != "lecture-1" || job.Source != "bilibili" || job.Title != "Lecture" {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.SimilarityThreshold != 0 || job.MinIntervalSeconds != 0 || job.SkipFirstSeconds != 12.5 {
		t.Fatalf("overrides not applied: %+v", job)
	}
	if job.FillMode || job.ImageFormat != "png" || job.ImageQuality != 10 {
		t.Fatalf("overrides not applied: %+v", job)
	}
	if len(job.ExtraDownloadArgs) != 1 {
		t.Fatalf("extra args lost: %+v", job.ExtraDownloadArgs)
	}
}

func TestCreateJobValidation(t *testing.T) {
	svc, _, _ := newService(t)
	cases := []struct {
		name  string
		req   api.CreateJobRequest
		field string
	}{
		{"missing url", api.CreateJobRequest{}, "url"},
		{"option as url", api.CreateJobRequest{URL: "--exec=id"}, "url"},
		{"non http url", api.CreateJobRequest{URL: "file:///etc/passwd"}, "url"},
		{"job id escapes workspace", api.CreateJobRequest{URL: validURL, JobID: "../../../../tmp/escape"}, "job_id"},
		{"job id dot dot", api.CreateJobRequest{URL: validURL, JobID: ".."}, "job_id"},
		{"job id with slash", api.CreateJobRequest{URL: validURL, JobID: "a/b"}, "job_id"},
		{"job id option", api.CreateJobRequest{URL: validURL, JobID: "-rf"}, "job_id"},
		{"file pattern with separator", api.CreateJobRequest{URL: validURL, FilePattern: "../out"}, "file_pattern"},
		{"file pattern option", api.CreateJobRequest{URL: validURL, FilePattern: "--exec"}, "file_pattern"},
		{"threshold above one", api.CreateJobRequest{URL: validURL, SimilarityThreshold: floatPtr(1.5)}, "similarity_threshold"},
		{"negative threshold", api.CreateJobRequest{URL: validURL, SimilarityThreshold: floatPtr(-0.1)}, "similarity_threshold"},
		{"negative interval", api.CreateJobRequest{URL: validURL, MinIntervalSeconds: floatPtr(-1)}, "min_interval_seconds"},
		{"negative skip", api.CreateJobRequest{URL: validURL, SkipFirstSeconds: floatPtr(-1)}, "skip_first_seconds"},
		{"bad format", api.CreateJobRequest{URL: validURL, ImageFormat: "gif"}, "image_format"},
		{"quality too low", api.CreateJobRequest{URL: validURL, ImageQuality: intPtr(5)}, "image_quality"},
		{"quality too high", api.CreateJobRequest{URL: validURL, ImageQuality: intPtr(101)}, "image_quality"},
		{"job id too long", api.CreateJobRequest{URL: validURL, JobID: strings.Repeat("x", 65)}, "job_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateJob(context.Background(), tc.req)
			svcErr, ok := api.AsServiceError(err)
			if !ok || svcErr.Code != api.CodeInvalidRequest {
				t.Fatalf("expected invalid_request, got %v", err)
			}
			if _, ok := svcErr.Fields[tc.field]; !ok {
				t.Fatalf("expected field %s in %v", tc.field, svcErr.Fields)
			}
			if svcErr.HTTPStatus() != http.StatusBadRequest {
				t.Fatalf("unexpected http status %d", svcErr.HTTPStatus())
			}
		})
	}
}

func TestCreateJobRejectsDuplicates(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	testsupport.NewJob(t, store, "first", "https://example.com/a")

	_, err := svc.CreateJob(ctx, api.CreateJobRequest{URL: "https://example.com/b", JobID: "first"})
	if !api.IsCode(err, api.CodeDuplicateJobID) {
		t.Fatalf("expected duplicate_job_id, got %v", err)
	}
	if err.Error() != "Job ID already exists" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	_, err = svc.CreateJob(ctx, api.CreateJobRequest{URL: "https://example.com/a"})
	svcErr, ok := api.AsServiceError(err)
	if !ok || svcErr.Code != api.CodeDuplicateURL {
		t.Fatalf("expected duplicate_url, got %v", err)
	}
	if svcErr.JobID != "first" || svcErr.Status != "pending" || svcErr.HTTPStatus() != http.StatusConflict {
		t.Fatalf("unexpected duplicate detail %+v", svcErr)
	}

	// A URL whose only job failed may be submitted again.
	if err := store.MarkFailed(ctx, "first", "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if _, err := svc.CreateJob(ctx, api.CreateJobRequest{URL: "https://example.com/a", JobID: "second"}); err != nil {
		t.Fatalf("resubmit after failure: %v", err)
	}
}

func TestGetJobNotFound(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.GetJob(context.Background(), "missing")
	svcErr, ok := api.AsServiceError(err)
	if !ok || svcErr.Code != api.CodeNotFound || svcErr.Message != "Job not found" {
		t.Fatalf("expected not_found, got %v", err)
	}
	if svcErr.HTTPStatus() != http.StatusNotFound {
		t.Fatalf("unexpected http status %d", svcErr.HTTPStatus())
	}
}

func TestListJobsFiltersAndStripsOutput(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	testsupport.NewJob(t, store, "a", "https://example.com/a")
	testsupport.NewJob(t, store, "b", "https://example.com/b")
	if err := store.MarkFailed(ctx, "a", "nope"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	all, err := svc.ListJobs(ctx, 0, "")
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(all.Items) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all.Items))
	}
	failed, err := svc.ListJobs(ctx, 10, "FAILED")
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(failed.Items) != 1 || failed.Items[0].JobID != "a" || failed.Items[0].ErrorMessage != "nope" {
		t.Fatalf("unexpected failed listing %+v", failed.Items)
	}
	if _, err := svc.ListJobs(ctx, 10, "bogus"); !api.IsCode(err, api.CodeInvalidRequest) {
		t.Fatalf("expected invalid_request for bad status, got %v", err)
	}
}

func completeJob(t *testing.T, store *queue.Store, cfg *config.Config, jobID string, writeDeck bool) string {
	t.Helper()
	ctx := context.Background()
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	rel := "jobs/" + jobID + "/ppt/Deck.pptx"
	if writeDeck {
		abs := cfg.ResolveFromBase(rel)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte("pptx"), 0o644); err != nil {
			t.Fatalf("write deck: %v", err)
		}
	}
	if err := store.MarkCompleted(ctx, jobID, queue.Completion{Title: "Deck", PPTPath: rel, SlideCount: 3}); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	return rel
}

func TestDeckFile(t *testing.T) {
	svc, store, cfg := newService(t)
	ctx := context.Background()
	testsupport.NewJob(t, store, "deck", "https://example.com/deck")

	if _, err := svc.DeckFile(ctx, "deck"); !api.IsCode(err, api.CodeNotReady) {
		t.Fatalf("expected not_ready for pending job, got %v", err)
	}
	completeJob(t, store, cfg, "deck", true)

	file, err := svc.DeckFile(ctx, "deck")
	if err != nil {
		t.Fatalf("DeckFile: %v", err)
	}
	if file.Filename != "Deck.pptx" || !filepath.IsAbs(file.Path) {
		t.Fatalf("unexpected deck file %+v", file)
	}
	job, err := svc.GetJob(ctx, "deck")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.DeckURL != "/api/jobs/deck/deck" {
		t.Fatalf("unexpected deck url %q", job.DeckURL)
	}
	if _, err := svc.DeckFile(ctx, "missing"); !api.IsCode(err, api.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestDeckFileMissingOnDisk(t *testing.T) {
	svc, store, cfg := newService(t)
	testsupport.NewJob(t, store, "gone", "https://example.com/gone")
	completeJob(t, store, cfg, "gone", false)
	_, err := svc.DeckFile(context.Background(), "gone")
	svcErr, ok := api.AsServiceError(err)
	if !ok || svcErr.Code != api.CodeNotReady || svcErr.Status != "completed" {
		t.Fatalf("expected not_ready for missing file, got %v", err)
	}
}

func TestBrowseCompleted(t *testing.T) {
	svc, store, cfg := newService(t)
	ctx := context.Background()
	testsupport.NewJob(t, store, "one", "https://example.com/one")
	completeJob(t, store, cfg, "one", true)
	testsupport.NewJob(t, store, "two", "https://example.com/two")

	page, err := svc.BrowseCompleted(ctx, 1, 10, "")
	if err != nil {
		t.Fatalf("BrowseCompleted: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].JobID != "one" || page.TotalPages != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	empty, err := svc.BrowseCompleted(ctx, 1, 10, "nothing-matches")
	if err != nil {
		t.Fatalf("BrowseCompleted search: %v", err)
	}
	if empty.Total != 0 || empty.Items == nil {
		t.Fatalf("expected empty non-nil page, got %+v", empty)
	}
}

func TestReprocessErrors(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.Reprocess(ctx, "missing"); !api.IsCode(err, api.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	testsupport.NewJob(t, store, "busy", "https://example.com/busy")
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	_, err := svc.Reprocess(ctx, "busy")
	svcErr, ok := api.AsServiceError(err)
	if !ok || svcErr.Code != api.CodeJobRunning || svcErr.Message != "Job is already running" {
		t.Fatalf("expected job_running, got %v", err)
	}
	if err := store.MarkFailed(ctx, "busy", "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	job, err := svc.Reprocess(ctx, "busy")
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if job.Status != string(queue.StatusPending) || job.ErrorMessage != "" {
		t.Fatalf("unexpected reprocessed job %+v", job)
	}
}

func TestCreateJobAcceptsSafeIdentifiers(t *testing.T) {
	svc, _, _ := newService(t)
	job, err := svc.CreateJob(context.Background(), api.CreateJobRequest{
		URL:         "http://example.com/talk.mp4",
		JobID:       "Lecture_01.v2-final",
		FilePattern: "<videoTitle>",
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.JobID != "Lecture_01.v2-final" || job.FilePattern != "<videoTitle>" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestCreateJobConcurrentSameURL(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	const url = "https://youtu.be/same"
	const workers = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateJob(ctx, api.CreateJobRequest{URL: url, JobID: fmt.Sprintf("same-%02d", i)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			errs = append(errs, err)
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one created job, got %d (errors %v)", created, errs)
	}
	for _, err := range errs {
		svcErr, ok := api.AsServiceError(err)
		if !ok || svcErr.Code != api.CodeDuplicateURL || svcErr.JobID == "" {
			t.Fatalf("expected duplicate_url naming the winner, got %v", err)
		}
	}
	jobs, err := store.FindByURL(ctx, url)
	if err != nil {
		t.Fatalf("FindByURL: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one stored job for the url, got %d", len(jobs))
	}
}

func TestReprocessRejectsURLHeldByAnotherJob(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	const url = "https://example.com/lecture"

	if _, err := svc.CreateJob(ctx, api.CreateJobRequest{URL: url, JobID: "a"}); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := store.MarkFailed(ctx, "a", "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if _, err := svc.CreateJob(ctx, api.CreateJobRequest{URL: url, JobID: "b"}); err != nil {
		t.Fatalf("create b: %v", err)
	}

	_, err := svc.Reprocess(ctx, "a")
	svcErr, ok := api.AsServiceError(err)
	if !ok || svcErr.Code != api.CodeDuplicateURL || svcErr.JobID != "b" || svcErr.Status != "pending" {
		t.Fatalf("expected duplicate_url naming b, got %v", err)
	}
	a, _ := store.GetByJobID(ctx, "a")
	if a.Status != queue.StatusFailed {
		t.Fatalf("job a must stay failed, got %s", a.Status)
	}
}

func TestDrainQueueAndStatus(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	testsupport.NewJob(t, store, "a", "https://example.com/a")
	testsupport.NewJob(t, store, "b", "https://example.com/b")

	resp, err := svc.DrainQueue(ctx)
	if err != nil {
		t.Fatalf("DrainQueue: %v", err)
	}
	if resp.Dispatched == nil || resp.Dispatched.JobID != "a" || resp.Pending != 1 {
		t.Fatalf("unexpected drain %+v", resp)
	}
	again, err := svc.DrainQueue(ctx)
	if err != nil {
		t.Fatalf("DrainQueue again: %v", err)
	}
	if !again.Running || again.Dispatched != nil {
		t.Fatalf("expected running drain, got %+v", again)
	}

	status := svc.Status(ctx)
	if status.QueueStats["running"] != 1 || status.QueueStats["pending"] != 1 || status.QueueStats["completed"] != 0 {
		t.Fatalf("unexpected stats %+v", status.QueueStats)
	}
}

func TestGenerateJobID(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	id, err := api.GenerateJobID(now)
	if err != nil {
		t.Fatalf("GenerateJobID: %v", err)
	}
	if !strings.HasPrefix(id, "ppt-20240305-140709-") || len(id) != len("ppt-20240305-140709-")+6 {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestServiceErrorUnwrapsThroughWrapping(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &api.ServiceError{Code: api.CodeNotReady, Message: "x"})
	if !api.IsCode(wrapped, api.CodeNotReady) {
		t.Fatal("expected code to be found through wrapping")
	}
	if api.IsCode(errors.New("plain"), api.CodeNotFound) {
		t.Fatal("plain error should not match")
	}
}
