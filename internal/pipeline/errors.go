package pipeline

import "errors"

// PipelineError reports a failure outside any stage.
type PipelineError struct {
	Message string
	Err     error
}

func (e *PipelineError) Error() string { return errorText(e.Message, e.Err) }
func (e *PipelineError) Unwrap() error { return e.Err }

// DownloadError reports a download stage failure.
type DownloadError struct {
	Message string
	Err     error
}

func (e *DownloadError) Error() string { return errorText(e.Message, e.Err) }
func (e *DownloadError) Unwrap() error { return e.Err }

// ExtractionError reports a slide extraction failure.
type ExtractionError struct {
	Message string
	Err     error
}

func (e *ExtractionError) Error() string { return errorText(e.Message, e.Err) }
func (e *ExtractionError) Unwrap() error { return e.Err }

// BuildError reports a deck build failure.
type BuildError struct {
	Message string
	Err     error
}

func (e *BuildError) Error() string { return errorText(e.Message, e.Err) }
func (e *BuildError) Unwrap() error { return e.Err }

// IsPipelineFailure reports whether err came from a pipeline stage or the
// pipeline itself, as opposed to an unexpected fault.
func IsPipelineFailure(err error) bool {
	var (
		pipelineErr   *PipelineError
		downloadErr   *DownloadError
		extractionErr *ExtractionError
		buildErr      *BuildError
	)
	return errors.As(err, &pipelineErr) ||
		errors.As(err, &downloadErr) ||
		errors.As(err, &extractionErr) ||
		errors.As(err, &buildErr)
}

func errorText(message string, err error) string {
	switch {
	case message != "":
		return message
	case err != nil:
		return err.Error()
	default:
		return "pipeline failure"
	}
}
