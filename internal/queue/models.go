package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed}

// AllStatuses lists statuses in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further automatic transition happens.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Params are the caller supplied processing parameters of a job.
type Params struct {
	Title               string   `json:"title,omitempty"`
	Subtitle            string   `json:"subtitle,omitempty"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	MinIntervalSeconds  float64  `json:"min_interval_seconds"`
	SkipFirstSeconds    float64  `json:"skip_first_seconds"`
	FillMode            bool     `json:"fill_mode"`
	ImageFormat         string   `json:"image_format"`
	ImageQuality        int      `json:"image_quality"`
	ExtraDownloadArgs   []string `json:"extra_download_args,omitempty"`
	FilePattern         string   `json:"file_pattern,omitempty"`
}

// Job is one persisted video-to-deck request. Paths are stored relative to
// the deployment root.
type Job struct {
	ID     int64  `json:"id"`
	JobID  string `json:"job_id"`
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
	Params
	Status               Status     `json:"status"`
	JobDir               string     `json:"job_dir,omitempty"`
	ErrorMessage         string     `json:"error_message,omitempty"`
	VideoPath            string     `json:"video_path,omitempty"`
	VideoFiles           []string   `json:"video_files,omitempty"`
	PPTPath              string     `json:"ppt_path,omitempty"`
	SlidesJSONPath       string     `json:"slides_json_path,omitempty"`
	ScreenshotsDir       string     `json:"screenshots_dir,omitempty"`
	Command              []string   `json:"command,omitempty"`
	Stdout               string     `json:"stdout,omitempty"`
	Stderr               string     `json:"stderr,omitempty"`
	VideoDurationSeconds *float64   `json:"video_duration_seconds"`
	FPS                  *float64   `json:"fps"`
	SlideCount           *int       `json:"slide_count"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	StartedAt            *time.Time `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at"`
}

// NewJob carries the fields needed to insert a pending job.
type NewJob struct {
	JobID  string
	URL    string
	Source string
	Params
}

// Completion records the artefacts of a successful run. Empty Title and
// Subtitle leave the stored values alone; stored empty values are back-filled.
type Completion struct {
	Title                string
	Subtitle             string
	JobDir               string
	VideoPath            string
	VideoFiles           []string
	PPTPath              string
	SlidesJSONPath       string
	ScreenshotsDir       string
	Command              []string
	Stdout               string
	Stderr               string
	VideoDurationSeconds float64
	FPS                  float64
	SlideCount           int
}

// Page is one page of a paginated listing.
type Page struct {
	Items      []*Job `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}
