// Package pipeline turns one video URL into a slide deck.
//
// A run resolves the URL to a downloader, downloads the video into the job
// directory, extracts slides and writes the deck. Each stage reports failures
// through its own error type (DownloadError, ExtractionError, BuildError);
// anything outside a stage surfaces as a PipelineError. The pipeline has no
// knowledge of the job queue; the workflow package persists its results.
//
// Job directories are laid out as:
//
//	<workspace_root>/<job_id>/download/
//	<workspace_root>/<job_id>/slides/images/
//	<workspace_root>/<job_id>/slides/slides.json
//	<workspace_root>/<job_id>/ppt/<title>.pptx
//	<workspace_root>/<job_id>/job.log
package pipeline
