package extractor

import (
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidslides/internal/logging"
	"vidslides/internal/media"
	"vidslides/internal/services"
	"vidslides/internal/similarity"
)

const (
	stageName        = "extract-slides"
	progressInterval = 500
)

// Extractor turns a video into slide images.
type Extractor struct {
	source  media.FrameSource
	baseDir string
	logger  *slog.Logger
}

// New builds an Extractor. baseDir is the deployment root used for manifest
// paths; an empty baseDir keeps absolute paths.
func New(source media.FrameSource, baseDir string, logger *slog.Logger) *Extractor {
	return &Extractor{
		source:  source,
		baseDir: baseDir,
		logger:  logging.NewComponentLogger(logger, "extractor"),
	}
}

// SetLogger swaps the logger, typically for a per-job logger.
func (e *Extractor) SetLogger(logger *slog.Logger) {
	e.logger = logging.NewComponentLogger(logger, "extractor")
}

// Extract decodes the video once and writes every novel frame. Any image
// write failure aborts the whole extraction without a manifest.
func (e *Extractor) Extract(ctx context.Context, req Request) (*Result, error) {
	if e.source == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", "no frame source configured", nil)
	}
	format, err := normalizeFormat(req.ImageFormat)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "stat", fmt.Sprintf("video file not found: %s", req.VideoPath), nil)
		}
		return nil, services.Wrap(services.ErrNotFound, stageName, "stat", "video file unreadable", err)
	}
	tracker, err := similarity.NewTracker(req.SimilarityThreshold)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "threshold", "", err)
	}
	if req.MinIntervalSeconds < 0 || req.SkipFirstSeconds < 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "gating", "interval and skip must be >= 0", nil)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "mkdir", req.OutputDir, err)
	}

	stream, err := e.source.Open(ctx, req.VideoPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "open", fmt.Sprintf("unable to open video: %s", req.VideoPath), err)
	}
	defer stream.Close()

	info := stream.Info()
	fps := info.EffectiveFPS()
	minIntervalFrames := max(int64(req.MinIntervalSeconds*fps), 1)
	skipFrames := int64(req.SkipFirstSeconds * fps)
	lastSaved := -minIntervalFrames

	logger := e.logger
	logger.Info("slide extraction started",
		logging.String(logging.FieldEventType, "extract_start"),
		logging.String("video_path", req.VideoPath),
		logging.Float64("fps", fps),
		logging.Int64("total_frames", info.TotalFrames),
		logging.Int64("min_interval_frames", minIntervalFrames),
		logging.Int64("skip_frames", skipFrames),
		logging.Float64("similarity_threshold", req.SimilarityThreshold),
	)
	started := time.Now()

	var (
		slides     []Slide
		frameIndex int64 = -1
		inspected  int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, stageName, "decode", fmt.Sprintf("frame %d", frameIndex+1), err)
		}
		frameIndex++
		if frameIndex > 0 && frameIndex%progressInterval == 0 {
			logger.Debug("extraction progress",
				logging.Int64("frame", frameIndex),
				logging.Int("slides", len(slides)),
			)
		}
		if frameIndex < skipFrames {
			continue
		}
		if frameIndex-lastSaved < minIntervalFrames {
			continue
		}

		inspected++
		decision := tracker.Observe(frame)
		if !decision.Novel {
			continue
		}

		index := len(slides) + 1
		filename := SlideFilename(index, format)
		path := filepath.Join(req.OutputDir, filename)
		if err := writeImage(path, frame, format, req.ImageQuality); err != nil {
			return nil, services.Wrap(services.ErrTransient, stageName, "write image", filename, err)
		}
		timestamp := float64(frameIndex) / fps
		slides = append(slides, Slide{
			Index:            index,
			Filename:         filename,
			Path:             path,
			TimestampSeconds: timestamp,
			Timestamp:        FormatTimestamp(timestamp),
			Width:            frame.Width,
			Height:           frame.Height,
			Similarity:       decision.Similarity,
		})
		lastSaved = frameIndex
	}

	totalFrames := info.TotalFrames
	if totalFrames <= 0 {
		totalFrames = frameIndex + 1
	}
	result := &Result{
		VideoPath:       req.VideoPath,
		Slides:          slides,
		FPS:             fps,
		TotalFrames:     totalFrames,
		DurationSeconds: float64(totalFrames) / fps,
	}

	if req.ManifestPath != "" {
		if err := WriteManifest(req.ManifestPath, result, e.baseDir); err != nil {
			return nil, services.Wrap(services.ErrTransient, stageName, "write manifest", req.ManifestPath, err)
		}
		result.ManifestPath = req.ManifestPath
	}

	logger.Info("slide extraction completed",
		logging.String(logging.FieldEventType, "extract_complete"),
		logging.Int("slide_count", len(slides)),
		logging.Int64("frames_decoded", frameIndex+1),
		logging.Int64("frames_inspected", inspected),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	switch format {
	case "":
		return "jpg", nil
	case "jpg", "jpeg", "png":
		return format, nil
	default:
		return "", services.Wrap(services.ErrValidation, stageName, "image format", fmt.Sprintf("unsupported image format %q", format), nil)
	}
}

func writeImage(path string, frame similarity.Frame, format string, quality int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	img := frame.Image()
	switch format {
	case "png":
		encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
		err = encoder.Encode(file, img)
	default:
		if quality <= 0 || quality > 100 {
			quality = 95
		}
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: quality})
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return err
}
