package api

import (
	"errors"
	"net/http"
)

// ErrorCode classifies a ServiceError.
type ErrorCode string

const (
	CodeDuplicateJobID ErrorCode = "duplicate_job_id"
	CodeDuplicateURL   ErrorCode = "duplicate_url"
	CodeNotFound       ErrorCode = "not_found"
	CodeJobRunning     ErrorCode = "job_running"
	CodeInvalidRequest ErrorCode = "invalid_request"
	CodeNotReady       ErrorCode = "not_ready"
)

// ServiceError is returned by JobService for caller mistakes. JobID and Status
// identify the conflicting job when there is one.
type ServiceError struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	JobID   string            `json:"job_id,omitempty"`
	Status  string            `json:"status,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *ServiceError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// HTTPStatus maps the error code onto a response status.
func (e *ServiceError) HTTPStatus() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case CodeDuplicateJobID, CodeDuplicateURL, CodeJobRunning:
		return http.StatusConflict
	case CodeNotFound, CodeNotReady:
		return http.StatusNotFound
	case CodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AsServiceError unwraps err into a *ServiceError.
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// IsCode reports whether err is a ServiceError carrying code.
func IsCode(err error, code ErrorCode) bool {
	svcErr, ok := AsServiceError(err)
	return ok && svcErr.Code == code
}

func notFound(jobID string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: "Job not found", JobID: jobID}
}
