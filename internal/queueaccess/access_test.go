package queueaccess_test

import (
	"context"
	"errors"
	"testing"

	"vidslides/internal/api"
	"vidslides/internal/ipc"
	"vidslides/internal/queue"
	"vidslides/internal/queueaccess"
	"vidslides/internal/testsupport"
)

func TestFallbackToStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dialed := false
	session, err := queueaccess.OpenWithFallback(cfg,
		func() (*ipc.Client, error) {
			dialed = true
			return nil, errors.New("no daemon")
		},
		func() (*queue.Store, error) { return queue.Open(cfg) },
	)
	if err != nil {
		t.Fatalf("OpenWithFallback: %v", err)
	}
	defer session.Close()
	if !dialed {
		t.Fatal("expected IPC to be tried first")
	}
	access := session.Access
	if access.Live() {
		t.Fatal("store access must not report live")
	}
	ctx := context.Background()

	job, err := access.Submit(ctx, api.CreateJobRequest{URL: "https://example.com/v", JobID: "offline"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != "pending" {
		t.Fatalf("offline submit should stay pending, got %s", job.Status)
	}
	drain, err := access.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if drain.Dispatched != nil || drain.Pending != 1 {
		t.Fatalf("offline drain must not claim: %+v", drain)
	}
	stats, err := access.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["pending"] != 1 || stats["running"] != 0 {
		t.Fatalf("unexpected stats %v", stats)
	}
	if _, err := access.Show(ctx, "nope"); !api.IsCode(err, api.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	items, err := access.List(ctx, 10, "pending")
	if err != nil || len(items) != 1 {
		t.Fatalf("List: %v %v", items, err)
	}
	page, err := access.Library(ctx, 1, 5, "")
	if err != nil || page.Total != 0 {
		t.Fatalf("Library: %+v %v", page, err)
	}
}

func TestFallbackWithoutStoreOpener(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := queueaccess.OpenWithFallback(cfg, nil, nil); err == nil {
		t.Fatal("expected error without store opener")
	}
}
