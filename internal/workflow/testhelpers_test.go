package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vidslides/internal/config"
	"vidslides/internal/deck"
	"vidslides/internal/downloader"
	"vidslides/internal/extractor"
	"vidslides/internal/logging"
	"vidslides/internal/notifications"
	"vidslides/internal/pipeline"
	"vidslides/internal/queue"
	"vidslides/internal/testsupport"
	"vidslides/internal/workflow"
)

type fakeRunner struct {
	cfg *config.Config

	mu      sync.Mutex
	calls   []string
	errs    map[string]error
	panics  map[string]bool
	gate    chan struct{}
	started chan string
}

func newFakeRunner(cfg *config.Config) *fakeRunner {
	return &fakeRunner{
		cfg:     cfg,
		errs:    map[string]error{},
		panics:  map[string]bool{},
		started: make(chan string, 16),
	}
}

func (f *fakeRunner) Run(ctx context.Context, url string, opts pipeline.Options) (*pipeline.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts.JobID)
	err := f.errs[url]
	shouldPanic := f.panics[url]
	gate := f.gate
	f.mu.Unlock()

	f.started <- opts.JobID
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if shouldPanic {
		panic("decoder exploded")
	}
	if err != nil {
		return nil, err
	}

	jobDir := filepath.Join(f.cfg.Paths.WorkspaceRoot, opts.JobID)
	video := filepath.Join(jobDir, "download", opts.JobID+".mp4")
	title := opts.Title
	if title == "" {
		title = "Downloaded " + opts.JobID
	}
	return &pipeline.Result{
		JobID:    opts.JobID,
		JobDir:   jobDir,
		URL:      url,
		Source:   downloader.Classify(url),
		Title:    title,
		Subtitle: title,
		Download: &downloader.Result{
			URL:        url,
			VideoPath:  video,
			VideoPaths: []string{video},
			Command:    []string{"BBDown", url},
			Stdout:     "done",
		},
		Slides: &extractor.Result{
			VideoPath:       video,
			FPS:             10,
			TotalFrames:     100,
			DurationSeconds: 10,
			ManifestPath:    filepath.Join(jobDir, "slides", "slides.json"),
		},
		Deck: &deck.Result{DeckPath: filepath.Join(jobDir, "ppt", title+".pptx"), SlideCount: 2},
	}, nil
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRunner) FailURL(url string, err error) {
	f.mu.Lock()
	f.errs[url] = err
	f.mu.Unlock()
}

func (f *fakeRunner) PanicURL(url string) {
	f.mu.Lock()
	f.panics[url] = true
	f.mu.Unlock()
}

func (f *fakeRunner) Hold() func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *stubNotifier) Events() []notifications.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifications.Event(nil), s.events...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []workflow.JobEvent
}

func (r *recordingSink) PublishJobEvent(event workflow.JobEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingSink) Types(jobID string) []workflow.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []workflow.EventType
	for _, event := range r.events {
		if event.JobID == jobID {
			types = append(types, event.Type)
		}
	}
	return types
}

type harness struct {
	cfg         *config.Config
	store       *queue.Store
	runner      *fakeRunner
	notifier    *stubNotifier
	coordinator *workflow.Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := newFakeRunner(cfg)
	notifier := &stubNotifier{}
	coordinator := workflow.NewCoordinator(cfg, store, runner, notifier, logging.NewNop())
	t.Cleanup(coordinator.Stop)
	return &harness{cfg: cfg, store: store, runner: runner, notifier: notifier, coordinator: coordinator}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.coordinator.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func (h *harness) enqueue(t *testing.T, jobID, url string) *queue.Job {
	t.Helper()
	job, err := h.coordinator.Enqueue(context.Background(), queue.NewJob{JobID: jobID, URL: url, Params: testsupport.DefaultParams()})
	if err != nil {
		t.Fatalf("Enqueue %s: %v", jobID, err)
	}
	return job
}

func waitForStatus(t *testing.T, store *queue.Store, jobID string, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := store.GetByJobID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetByJobID: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		if time.Now().After(deadline) {
			status := queue.Status("missing")
			if job != nil {
				status = job.Status
			}
			t.Fatalf("job %s status %s, want %s", jobID, status, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitForStart(t *testing.T, runner *fakeRunner, jobID string) {
	t.Helper()
	select {
	case got := <-runner.started:
		if got != jobID {
			t.Fatalf("expected %s to start, got %s", jobID, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("job %s never started", jobID)
	}
}

var errBoom = errors.New("boom")
