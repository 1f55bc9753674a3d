package api

import (
	"net/url"
	"time"

	"vidslides/internal/deps"
	"vidslides/internal/queue"
	"vidslides/internal/workflow"
)

// DeckPath is the HTTP route serving the deck of jobID.
func DeckPath(jobID string) string {
	return "/api/jobs/" + url.PathEscape(jobID) + "/deck"
}

// FromJob converts a queue record into its DTO.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:                   job.ID,
		JobID:                job.JobID,
		URL:                  job.URL,
		Source:               job.Source,
		Title:                job.Title,
		Subtitle:             job.Subtitle,
		Status:               string(job.Status),
		SimilarityThreshold:  job.SimilarityThreshold,
		MinIntervalSeconds:   job.MinIntervalSeconds,
		SkipFirstSeconds:     job.SkipFirstSeconds,
		FillMode:             job.FillMode,
		ImageFormat:          job.ImageFormat,
		ImageQuality:         job.ImageQuality,
		ExtraDownloadArgs:    append([]string(nil), job.ExtraDownloadArgs...),
		FilePattern:          job.FilePattern,
		JobDir:               job.JobDir,
		ErrorMessage:         job.ErrorMessage,
		VideoPath:            job.VideoPath,
		VideoFiles:           append([]string(nil), job.VideoFiles...),
		PPTPath:              job.PPTPath,
		SlidesJSONPath:       job.SlidesJSONPath,
		ScreenshotsDir:       job.ScreenshotsDir,
		Command:              append([]string(nil), job.Command...),
		Stdout:               job.Stdout,
		Stderr:               job.Stderr,
		VideoDurationSeconds: job.VideoDurationSeconds,
		FPS:                  job.FPS,
		SlideCount:           job.SlideCount,
		CreatedAt:            formatTime(job.CreatedAt),
		UpdatedAt:            formatTime(job.UpdatedAt),
		StartedAt:            formatTimePtr(job.StartedAt),
		CompletedAt:          formatTimePtr(job.CompletedAt),
	}
	if job.Status == queue.StatusCompleted && job.PPTPath != "" {
		dto.DeckURL = DeckPath(job.JobID)
	}
	return dto
}

// FromJobs converts a slice of records.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// Summary drops the captured downloader output, which can be large, for
// list views.
func (j Job) Summary() Job {
	j.Stdout = ""
	j.Stderr = ""
	j.Command = nil
	return j
}

// FromStatusSummary converts coordinator diagnostics.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:    summary.Running,
		LastError:  summary.LastError,
		QueueStats: MergeQueueStats(summary.QueueStats),
	}
	if summary.Current != nil {
		current := FromJob(summary.Current).Summary()
		status.Current = &current
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob).Summary()
		status.LastJob = &last
	}
	return status
}

// MergeQueueStats keys counts by status string and fills absent statuses.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromDependencies converts dependency check results.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// FromJobEvent converts a coordinator event.
func FromJobEvent(event workflow.JobEvent) JobEvent {
	out := JobEvent{
		Type:  string(event.Type),
		JobID: event.JobID,
		At:    formatTime(event.At),
	}
	if event.Job != nil {
		job := FromJob(event.Job).Summary()
		out.Job = &job
	}
	return out
}
