package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"vidslides/internal/logging"
	"vidslides/internal/notifications"
	"vidslides/internal/pipeline"
	"vidslides/internal/queue"
	"vidslides/internal/services"
	"vidslides/internal/textutil"
)

// maxCapturedOutput bounds the tool output persisted per job.
const maxCapturedOutput = 64 * 1024

func (c *Coordinator) worker(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-c.work:
			c.process(ctx, job)
		}
	}
}

func (c *Coordinator) process(ctx context.Context, job *queue.Job) {
	jobCtx := services.WithJobID(ctx, job.JobID)
	logger := logging.WithContext(jobCtx, c.logger)
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("url", job.URL),
	)

	result, err := c.run(jobCtx, job)
	if ctx.Err() != nil {
		// Shutdown: the job stays running and is failed by startup recovery.
		logger.Info("job interrupted by shutdown", logging.String(logging.FieldEventType, "job_interrupted"))
		return
	}
	c.onTerminal(jobCtx, logger, job, result, err)
}

// run invokes the runner, converting a panic into an error so the worker
// survives it.
func (c *Coordinator) run(ctx context.Context, job *queue.Job) (result *pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.runner.Run(ctx, job.URL, optionsFor(job))
}

func optionsFor(job *queue.Job) pipeline.Options {
	return pipeline.Options{
		JobID:               job.JobID,
		Title:               job.Title,
		Subtitle:            job.Subtitle,
		SimilarityThreshold: job.SimilarityThreshold,
		MinIntervalSeconds:  job.MinIntervalSeconds,
		SkipFirstSeconds:    job.SkipFirstSeconds,
		FillMode:            job.FillMode,
		ImageFormat:         job.ImageFormat,
		ImageQuality:        job.ImageQuality,
		ExtraDownloadArgs:   job.ExtraDownloadArgs,
		FilePattern:         job.FilePattern,
	}
}

// onTerminal records the outcome and dispatches the next job. Persistence
// errors are logged; they never stop the queue.
func (c *Coordinator) onTerminal(ctx context.Context, logger *slog.Logger, job *queue.Job, result *pipeline.Result, runErr error) {
	persistCtx := context.WithoutCancel(ctx)
	var event EventType
	if runErr == nil && result != nil {
		event = EventJobCompleted
		if err := c.store.MarkCompleted(persistCtx, job.JobID, c.completionFor(result)); err != nil {
			c.setLastError(err)
			logger.Error("failed to persist job completion",
				logging.Error(err),
				logging.String(logging.FieldEventType, "persist_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.String("deck_path", result.Deck.DeckPath),
			logging.Int("slide_count", result.Deck.SlideCount),
		)
	} else {
		event = EventJobFailed
		if runErr == nil {
			runErr = errors.New("runner returned no result")
		}
		message := FailureMessage(runErr)
		c.setLastError(runErr)
		if err := c.store.MarkFailed(persistCtx, job.JobID, message); err != nil {
			logger.Error("failed to persist job failure",
				logging.Error(err),
				logging.String(logging.FieldEventType, "persist_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		attrs := append([]logging.Attr{logging.String("error_message", message), logging.Alert("job_failure")}, logging.FailureAttrs(runErr)...)
		logging.ErrorWithContext(logger, "job failed", "job_failure", attrs...)
	}

	final := c.refresh(persistCtx, job)
	c.mu.Lock()
	c.current = nil
	c.lastJob = final
	c.processed++
	if event == EventJobFailed {
		c.failed++
	}
	c.mu.Unlock()

	c.publish(event, final)
	c.notify(ctx, logger, event, final, runErr)

	next, err := c.DispatchNext(ctx)
	if err != nil {
		c.setLastError(err)
		logger.Error("failed to dispatch next job",
			logging.Error(err),
			logging.String(logging.FieldEventType, "dispatch_failed"),
			logging.String(logging.FieldErrorHint, "use drain to resume the queue"),
		)
		return
	}
	if next == nil {
		c.onQueueIdle(ctx, logger)
	}
}

// FailureMessage is the message persisted on a failed job.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	if pipeline.IsPipelineFailure(err) {
		return err.Error()
	}
	return "Unexpected error: " + err.Error()
}

func (c *Coordinator) completionFor(result *pipeline.Result) queue.Completion {
	rel := c.cfg.RelativeToBase
	completion := queue.Completion{
		Title:    result.Title,
		Subtitle: result.Subtitle,
		JobDir:   rel(result.JobDir),
	}
	if dl := result.Download; dl != nil {
		completion.VideoPath = rel(dl.VideoPath)
		for _, path := range dl.VideoPaths {
			completion.VideoFiles = append(completion.VideoFiles, rel(path))
		}
		completion.Command = dl.Command
		completion.Stdout = textutil.Truncate(dl.Stdout, maxCapturedOutput)
		completion.Stderr = textutil.Truncate(dl.Stderr, maxCapturedOutput)
	}
	if slides := result.Slides; slides != nil {
		completion.SlidesJSONPath = rel(slides.ManifestPath)
		completion.ScreenshotsDir = rel(filepath.Join(result.JobDir, "slides", "images"))
		completion.VideoDurationSeconds = slides.DurationSeconds
		completion.FPS = slides.FPS
	}
	if built := result.Deck; built != nil {
		completion.PPTPath = rel(built.DeckPath)
		completion.SlideCount = built.SlideCount
	}
	return completion
}

func (c *Coordinator) notify(ctx context.Context, logger *slog.Logger, event EventType, job *queue.Job, runErr error) {
	if job == nil {
		return
	}
	payload := notifications.Payload{
		"jobID": job.JobID,
		"title": job.Title,
		"url":   job.URL,
	}
	kind := notifications.EventJobCompleted
	if event == EventJobFailed {
		kind = notifications.EventJobFailed
		payload["error"] = job.ErrorMessage
		if job.ErrorMessage == "" && runErr != nil {
			payload["error"] = FailureMessage(runErr)
		}
	} else {
		payload["deckPath"] = job.PPTPath
		if job.SlideCount != nil {
			payload["slideCount"] = *job.SlideCount
		}
	}
	if err := c.notifier.Publish(ctx, kind, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send job notification")
		} else {
			logger.Debug("job notification failed", logging.Error(err))
		}
	}
}

func (c *Coordinator) onQueueIdle(ctx context.Context, logger *slog.Logger) {
	counts, err := c.store.CountByStatus(ctx)
	if err != nil || counts[queue.StatusPending] > 0 || counts[queue.StatusRunning] > 0 {
		return
	}
	c.mu.Lock()
	processed, failed := c.processed, c.failed
	c.processed, c.failed = 0, 0
	c.mu.Unlock()
	if processed == 0 {
		return
	}
	logger.Info("queue drained",
		logging.String(logging.FieldEventType, "queue_drained"),
		logging.Int("processed", processed),
		logging.Int("failed", failed),
	)
	if err := c.notifier.Publish(ctx, notifications.EventQueueDrained, notifications.Payload{
		"processed": processed,
		"failed":    failed,
	}); err != nil {
		logger.Debug("queue drained notification failed", logging.Error(err))
	}
}
