package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// CreateJobRequest is the body of a job submission. Nil pointers fall back to
// the configured extraction defaults.
type CreateJobRequest struct {
	URL                 string   `json:"url" validate:"required,max=2048,http_url"`
	JobID               string   `json:"job_id,omitempty" validate:"omitempty,max=64,jobid"`
	Title               string   `json:"title,omitempty" validate:"omitempty,max=512"`
	Subtitle            string   `json:"subtitle,omitempty" validate:"omitempty,max=512"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinIntervalSeconds  *float64 `json:"min_interval_seconds,omitempty" validate:"omitempty,gte=0"`
	SkipFirstSeconds    *float64 `json:"skip_first_seconds,omitempty" validate:"omitempty,gte=0"`
	FillMode            *bool    `json:"fill_mode,omitempty"`
	ImageFormat         string   `json:"image_format,omitempty" validate:"omitempty,min=3,max=4,oneof=jpg jpeg png"`
	ImageQuality        *int     `json:"image_quality,omitempty" validate:"omitempty,gte=10,lte=100"`
	ExtraDownloadArgs   []string `json:"extra_download_args,omitempty"`
	FilePattern         string   `json:"file_pattern,omitempty" validate:"omitempty,max=255,filepattern"`
}

// Job describes a job in a transport-friendly format. Paths are relative to
// the deployment root.
type Job struct {
	ID                   int64    `json:"id"`
	JobID                string   `json:"job_id"`
	URL                  string   `json:"url"`
	Source               string   `json:"source,omitempty"`
	Title                string   `json:"title,omitempty"`
	Subtitle             string   `json:"subtitle,omitempty"`
	Status               string   `json:"status"`
	SimilarityThreshold  float64  `json:"similarity_threshold"`
	MinIntervalSeconds   float64  `json:"min_interval_seconds"`
	SkipFirstSeconds     float64  `json:"skip_first_seconds"`
	FillMode             bool     `json:"fill_mode"`
	ImageFormat          string   `json:"image_format"`
	ImageQuality         int      `json:"image_quality"`
	ExtraDownloadArgs    []string `json:"extra_download_args,omitempty"`
	FilePattern          string   `json:"file_pattern,omitempty"`
	JobDir               string   `json:"job_dir,omitempty"`
	ErrorMessage         string   `json:"error_message,omitempty"`
	VideoPath            string   `json:"video_path,omitempty"`
	VideoFiles           []string `json:"video_files,omitempty"`
	PPTPath              string   `json:"ppt_path,omitempty"`
	SlidesJSONPath       string   `json:"slides_json_path,omitempty"`
	ScreenshotsDir       string   `json:"screenshots_dir,omitempty"`
	Command              []string `json:"command,omitempty"`
	Stdout               string   `json:"stdout,omitempty"`
	Stderr               string   `json:"stderr,omitempty"`
	VideoDurationSeconds *float64 `json:"video_duration_seconds,omitempty"`
	FPS                  *float64 `json:"fps,omitempty"`
	SlideCount           *int     `json:"slide_count,omitempty"`
	DeckURL              string   `json:"deck_url,omitempty"`
	CreatedAt            string   `json:"created_at,omitempty"`
	UpdatedAt            string   `json:"updated_at,omitempty"`
	StartedAt            string   `json:"started_at,omitempty"`
	CompletedAt          string   `json:"completed_at,omitempty"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Items []Job `json:"items"`
}

// LibraryPage is one page of completed decks.
type LibraryPage struct {
	Items      []Job `json:"items"`
	Total      int   `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// DrainResponse reports the outcome of a drain request.
type DrainResponse struct {
	Dispatched *Job `json:"dispatched,omitempty"`
	Running    bool `json:"running"`
	Pending    int  `json:"pending"`
}

// DeckFile locates a finished deck on disk.
type DeckFile struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// WorkflowStatus summarizes coordinator state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	Current    *Job           `json:"current,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
	LastJob    *Job           `json:"last_job,omitempty"`
	QueueStats map[string]int `json:"queue_stats"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queue_db_path"`
	LockFilePath string             `json:"lock_file_path"`
	SocketPath   string             `json:"socket_path,omitempty"`
	APIBind      string             `json:"api_bind,omitempty"`
	LogPath      string             `json:"log_path,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// JobEvent is streamed to /api/events subscribers.
type JobEvent struct {
	Type  string `json:"type"`
	JobID string `json:"job_id"`
	At    string `json:"at"`
	Job   *Job   `json:"job,omitempty"`
}
