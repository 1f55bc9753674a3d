package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"vidslides/internal/logging"
	"vidslides/internal/textutil"
)

const ytdlpFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

var ytdlpExtensions = []string{".mp4", ".mkv", ".webm", ".m4a", ".flv", ".avi"}

// YtDlp downloads YouTube videos.
type YtDlp struct {
	base
	metadataTimeout time.Duration
}

// NewYtDlp builds a yt-dlp downloader. metadataTimeout bounds the metadata
// fetch that precedes each download; zero disables the bound.
func NewYtDlp(binary string, defaultArgs []string, metadataTimeout time.Duration, opts ...Option) *YtDlp {
	return &YtDlp{
		base:            newBase("yt-dlp", binary, defaultArgs, ytdlpExtensions, opts),
		metadataTimeout: metadataTimeout,
	}
}

// Download fetches the title, then downloads the best mp4 rendition.
func (d *YtDlp) Download(ctx context.Context, req Request, logger *slog.Logger) (*Result, error) {
	if err := d.checkConfigured(); err != nil {
		return nil, err
	}
	logger = componentLogger(logger)

	title, err := d.FetchTitle(ctx, req.URL)
	if err != nil {
		// Title lookup is best effort; the download decides success.
		logging.WarnWithContext(logger, "video metadata fetch failed", "metadata_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "deck title falls back to the video file name"),
		)
	}

	result, err := d.run(ctx, req, d.args(req), logger)
	if err != nil {
		return nil, err
	}
	result.Title = title
	return result, nil
}

// FetchTitle asks yt-dlp for the video metadata without downloading.
func (d *YtDlp) FetchTitle(ctx context.Context, url string) (string, error) {
	if err := d.checkConfigured(); err != nil {
		return "", err
	}
	metaCtx := ctx
	if d.metadataTimeout > 0 {
		var cancel context.CancelFunc
		metaCtx, cancel = context.WithTimeout(ctx, d.metadataTimeout)
		defer cancel()
	}
	out, err := d.exec.Run(metaCtx, d.binary, []string{url, "--skip-download", "--print-json", "--no-playlist"})
	if err != nil {
		return "", fmt.Errorf("yt-dlp metadata: %w", err)
	}
	if out.ExitCode != 0 {
		return "", fmt.Errorf("yt-dlp metadata exited with code %d: %s", out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	var metadata struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.Stdout)), &metadata); err != nil {
		return "", fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	return textutil.CleanTitle(metadata.Title), nil
}

func (d *YtDlp) args(req Request) []string {
	pattern := strings.TrimSpace(req.FilePattern)
	if pattern == "" {
		pattern = "%(title)s"
	}
	args := []string{
		req.URL,
		"-o", filepath.Join(req.OutputDir, pattern+".%(ext)s"),
		"--no-playlist",
		"-f", ytdlpFormat,
		"--print", "after_move:filepath",
	}
	args = append(args, d.defaultArgs...)
	return append(args, req.ExtraArgs...)
}
