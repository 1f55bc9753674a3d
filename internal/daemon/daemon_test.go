package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"vidslides/internal/api"
	"vidslides/internal/config"
	"vidslides/internal/daemon"
	"vidslides/internal/pipeline"
	"vidslides/internal/queue"
	"vidslides/internal/testsupport"
	"vidslides/internal/workflow"
)

type failingRunner struct{}

func (failingRunner) Run(context.Context, string, pipeline.Options) (*pipeline.Result, error) {
	return nil, errors.New("boom")
}

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	coordinator := workflow.NewCoordinator(cfg, store, failingRunner{}, nil, nil)
	d, err := daemon.New(cfg, store, coordinator, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected daemon to report running: %+v", status)
	}
	if strings.HasSuffix(status.APIBind, ":0") {
		t.Fatalf("expected bound address, got %q", status.APIBind)
	}

	resp, err := http.Get("http://" + status.APIBind + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)
	ctx := context.Background()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestEventsStreamJobLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := d.Status(ctx).APIBind

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/events", nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for d.Events().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	body, _ := json.Marshal(map[string]any{"url": "https://example.com/v", "job_id": "evt"})
	resp, err := http.Post("http://"+addr+"/api/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST job: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var types []string
	for len(types) < 3 {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read event (have %v): %v", types, err)
		}
		var event api.JobEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event.JobID != "evt" {
			t.Fatalf("unexpected job id %q", event.JobID)
		}
		types = append(types, event.Type)
		if event.Type == "job_failed" && event.Job.ErrorMessage != "Unexpected error: boom" {
			t.Fatalf("unexpected failure message %q", event.Job.ErrorMessage)
		}
	}
	want := []string{"job_queued", "job_started", "job_failed"}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("unexpected event order %v", types)
		}
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	d := newDaemon(t, testsupport.NewConfig(t))
	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent || message != "ntfy topic not configured" {
		t.Fatalf("unexpected result %v %q %v", sent, message, err)
	}
}
