package ipc

import "vidslides/internal/api"

// serviceName is the net/rpc receiver name.
const serviceName = "Vidslides"

// Failure carries a structured service error across the wire.
type Failure struct {
	Failure *api.ServiceError `json:"failure,omitempty"`
}

func (f Failure) err() error {
	if f.Failure == nil {
		return nil
	}
	return f.Failure
}

// fail records service errors in-band and passes anything else through as
// a transport failure.
func (f *Failure) fail(err error) error {
	if svcErr, ok := api.AsServiceError(err); ok {
		f.Failure = svcErr
		return nil
	}
	return err
}

// SubmitRequest enqueues a new job.
type SubmitRequest struct {
	Job api.CreateJobRequest `json:"job"`
}

// SubmitResponse returns the created job.
type SubmitResponse struct {
	Failure
	Job api.Job `json:"job"`
}

// ListRequest lists recent jobs.
type ListRequest struct {
	Limit  int    `json:"limit"`
	Status string `json:"status,omitempty"`
}

// ListResponse contains jobs newest first.
type ListResponse struct {
	Failure
	Items []api.Job `json:"items"`
}

// ShowRequest fetches one job.
type ShowRequest struct {
	JobID string `json:"job_id"`
}

// ShowResponse contains the full job record.
type ShowResponse struct {
	Failure
	Job api.Job `json:"job"`
}

// ReprocessRequest resets a job to pending.
type ReprocessRequest struct {
	JobID string `json:"job_id"`
}

// ReprocessResponse contains the reset job.
type ReprocessResponse struct {
	Failure
	Job api.Job `json:"job"`
}

// DrainRequest asks the coordinator to start the next pending job.
type DrainRequest struct{}

// DrainResponse reports the drain outcome.
type DrainResponse struct {
	Failure
	Result api.DrainResponse `json:"result"`
}

// LibraryRequest pages through completed decks.
type LibraryRequest struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search,omitempty"`
}

// LibraryResponse is one page of completed jobs.
type LibraryResponse struct {
	Failure
	Page api.LibraryPage `json:"page"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse wraps the daemon status.
type StatusResponse struct {
	Status api.DaemonStatus `json:"status"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
