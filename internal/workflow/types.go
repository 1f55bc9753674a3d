package workflow

import (
	"context"
	"time"

	"vidslides/internal/pipeline"
	"vidslides/internal/queue"
)

// Runner executes one job. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, url string, opts pipeline.Options) (*pipeline.Result, error)
}

// EventType names a job lifecycle event.
type EventType string

const (
	EventJobQueued    EventType = "job_queued"
	EventJobStarted   EventType = "job_started"
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
	EventJobReset     EventType = "job_reset"
)

// JobEvent is broadcast to sinks on every status change.
type JobEvent struct {
	Type  EventType  `json:"type"`
	JobID string     `json:"job_id"`
	At    time.Time  `json:"at"`
	Job   *queue.Job `json:"job,omitempty"`
}

// EventSink receives job events. Implementations must not block.
type EventSink interface {
	PublishJobEvent(JobEvent)
}

// DrainResult reports what DrainAllPending did.
type DrainResult struct {
	// Dispatched is the job claimed by this call, if any.
	Dispatched *queue.Job `json:"dispatched,omitempty"`
	// Running is true when a job was already running, so nothing was claimed.
	Running bool `json:"running"`
	Pending int  `json:"pending"`
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool                 `json:"running"`
	Current    *queue.Job           `json:"current,omitempty"`
	LastError  string               `json:"last_error,omitempty"`
	LastJob    *queue.Job           `json:"last_job,omitempty"`
	QueueStats map[queue.Status]int `json:"queue_stats"`
}
