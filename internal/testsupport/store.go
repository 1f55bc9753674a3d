package testsupport

import (
	"context"
	"testing"

	"vidslides/internal/config"
	"vidslides/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// DefaultParams mirrors the extraction defaults of config.Default.
func DefaultParams() queue.Params {
	return queue.Params{
		SimilarityThreshold: 0.95,
		MinIntervalSeconds:  2,
		ImageFormat:         "jpg",
		ImageQuality:        95,
		FillMode:            true,
	}
}

// NewJob inserts a pending job for url using default parameters.
func NewJob(t testing.TB, store *queue.Store, jobID, url string) *queue.Job {
	t.Helper()

	job, err := store.Insert(context.Background(), queue.NewJob{JobID: jobID, URL: url, Params: DefaultParams()})
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return job
}
