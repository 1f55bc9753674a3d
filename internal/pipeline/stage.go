package pipeline

import (
	"context"
	"log/slog"
	"time"

	"vidslides/internal/logging"
	"vidslides/internal/services"
)

const (
	stageResolve  = "resolve-source"
	stageDownload = "download"
	stageExtract  = "extract-slides"
	stageBuild    = "build-deck"
)

// stageFunc is one unit of pipeline work.
type stageFunc func(ctx context.Context, logger *slog.Logger) error

// runStage executes fn with stage-scoped context and logging. Errors that are
// not already typed pipeline errors are converted by wrap.
func runStage(ctx context.Context, logger *slog.Logger, name string, fn stageFunc, wrap func(error) error) error {
	stageCtx := services.WithStage(ctx, name)
	stageLogger := logger.With(logging.String(logging.FieldStage, name))
	started := time.Now()

	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	err := fn(stageCtx, stageLogger)
	if err != nil {
		if !IsPipelineFailure(err) && wrap != nil {
			err = wrap(err)
		}
		attrs := append([]logging.Attr{
			logging.Duration("elapsed", time.Since(started)),
		}, logging.FailureAttrs(err)...)
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure", attrs...)
		return err
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}
