package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidslides/internal/config"
	"vidslides/internal/deck"
	"vidslides/internal/downloader"
	"vidslides/internal/extractor"
	"vidslides/internal/logging"
	"vidslides/internal/media"
	"vidslides/internal/services"
	"vidslides/internal/textutil"
)

// Pipeline runs the download, extraction and deck stages for one URL.
type Pipeline struct {
	cfg      *config.Config
	registry *downloader.Registry
	frames   media.FrameSource
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a Pipeline. frames decodes downloaded videos.
func New(cfg *config.Config, registry *downloader.Registry, frames media.FrameSource, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		registry: registry,
		frames:   frames,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		now:      time.Now,
	}
}

type jobPaths struct {
	jobDir      string
	downloadDir string
	slidesDir   string
	imagesDir   string
	manifest    string
	pptDir      string
	logPath     string
}

func newJobPaths(root, jobID string) jobPaths {
	jobDir := filepath.Join(root, jobID)
	slidesDir := filepath.Join(jobDir, "slides")
	return jobPaths{
		jobDir:      jobDir,
		downloadDir: filepath.Join(jobDir, "download"),
		slidesDir:   slidesDir,
		imagesDir:   filepath.Join(slidesDir, "images"),
		manifest:    filepath.Join(slidesDir, "slides.json"),
		pptDir:      filepath.Join(jobDir, "ppt"),
		logPath:     filepath.Join(jobDir, "job.log"),
	}
}

// Run processes url end to end. The returned error is always one of the
// typed pipeline errors.
func (p *Pipeline) Run(ctx context.Context, url string, opts Options) (*Result, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, &PipelineError{Message: "video URL is required"}
	}
	if p.registry == nil {
		return nil, &PipelineError{Message: "no downloaders configured"}
	}

	jobID := strings.TrimSpace(opts.JobID)
	if jobID == "" {
		generated, err := GenerateJobID(p.now())
		if err != nil {
			return nil, &PipelineError{Message: err.Error(), Err: err}
		}
		jobID = generated
	}
	if !ValidJobID(jobID) {
		return nil, &PipelineError{Message: fmt.Sprintf("invalid job id %q", jobID)}
	}

	paths := newJobPaths(p.cfg.Paths.WorkspaceRoot, jobID)
	for _, dir := range []string{paths.downloadDir, paths.imagesDir, paths.pptDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &PipelineError{Message: fmt.Sprintf("create job directory %s: %v", dir, err), Err: err}
		}
	}

	ctx = services.WithJobID(ctx, jobID)
	logger := p.logger
	jobLog, err := logging.OpenJobLog(p.logger, paths.logPath)
	if err != nil {
		logging.WarnWithContext(p.logger, "job log unavailable", "job_log_unavailable",
			logging.String("log_path", paths.logPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job details only reach the daemon log"),
		)
	} else {
		defer jobLog.Close()
		logger = jobLog.Logger
	}
	logger = logging.WithContext(ctx, logger)

	if opts.FilePattern == "" {
		opts.FilePattern = jobID
	}

	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("url", url),
		logging.String("job_dir", paths.jobDir),
	)

	result := &Result{JobID: jobID, JobDir: paths.jobDir, URL: url, LogPath: paths.logPath}
	var selected downloader.Downloader

	if err := runStage(ctx, logger, stageResolve, func(_ context.Context, stageLogger *slog.Logger) error {
		result.Source = downloader.Classify(url)
		d, err := p.registry.For(result.Source)
		if err != nil {
			return err
		}
		selected = d
		stageLogger.Info("source resolved",
			logging.String(logging.FieldEventType, "source_resolved"),
			logging.String("source", string(result.Source)),
			logging.String("downloader", d.Name()),
		)
		return nil
	}, func(err error) error {
		return &DownloadError{Message: fmt.Sprintf("No downloader available for %s videos: %v", result.Source, err), Err: err}
	}); err != nil {
		return nil, err
	}

	if err := runStage(ctx, logger, stageDownload, func(stageCtx context.Context, stageLogger *slog.Logger) error {
		dl, err := selected.Download(stageCtx, downloader.Request{
			URL:         url,
			OutputDir:   paths.downloadDir,
			FilePattern: opts.FilePattern,
			ExtraArgs:   opts.ExtraDownloadArgs,
		}, stageLogger)
		if err != nil {
			return err
		}
		result.Download = dl
		if dl.Title != "" {
			if opts.Title == "" {
				opts.Title = dl.Title
				stageLogger.Info("using extracted video title", logging.String("title", dl.Title))
			}
			if opts.Subtitle == "" {
				opts.Subtitle = dl.Title
			}
		}
		return nil
	}, func(err error) error {
		return &DownloadError{Message: err.Error(), Err: err}
	}); err != nil {
		return nil, err
	}

	if err := runStage(ctx, logger, stageExtract, func(stageCtx context.Context, stageLogger *slog.Logger) error {
		slides, err := extractor.New(p.frames, p.cfg.Paths.BaseDir, stageLogger).Extract(stageCtx, extractor.Request{
			VideoPath:           result.Download.VideoPath,
			OutputDir:           paths.imagesDir,
			ManifestPath:        paths.manifest,
			SimilarityThreshold: opts.SimilarityThreshold,
			MinIntervalSeconds:  opts.MinIntervalSeconds,
			SkipFirstSeconds:    opts.SkipFirstSeconds,
			ImageFormat:         opts.ImageFormat,
			ImageQuality:        opts.ImageQuality,
		})
		if err != nil {
			return err
		}
		result.Slides = slides
		return nil
	}, func(err error) error {
		return &ExtractionError{Message: err.Error(), Err: err}
	}); err != nil {
		return nil, err
	}

	title := opts.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(result.Slides.VideoPath), filepath.Ext(result.Slides.VideoPath))
	}
	result.Title = title
	result.Subtitle = opts.Subtitle

	if err := runStage(ctx, logger, stageBuild, func(stageCtx context.Context, stageLogger *slog.Logger) error {
		built, err := deck.NewBuilder(stageLogger).Build(stageCtx, deck.Request{
			Slides:     result.Slides.Slides,
			OutputPath: filepath.Join(paths.pptDir, textutil.SafeFilename(title, ".pptx")),
			Title:      title,
			Subtitle:   opts.Subtitle,
			FillMode:   opts.FillMode,
		})
		if err != nil {
			return err
		}
		result.Deck = built
		return nil
	}, func(err error) error {
		return &BuildError{Message: err.Error(), Err: err}
	}); err != nil {
		return nil, err
	}

	if !p.cfg.Downloader.KeepDownloadVideo {
		p.removeDownloads(logger, paths.downloadDir)
	}

	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.String("deck_path", result.Deck.DeckPath),
		logging.Int("slide_count", result.Deck.SlideCount),
	)
	return result, nil
}

func (p *Pipeline) removeDownloads(logger *slog.Logger, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(logger, "failed to remove downloaded video", "download_cleanup_failed",
			logging.String("download_dir", dir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "downloaded video remains on disk"),
		)
		return
	}
	logger.Debug("downloaded video removed", logging.String("download_dir", dir))
}
