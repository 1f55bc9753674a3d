package downloader

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"vidslides/internal/logging"
	"vidslides/internal/textutil"
)

var bbdownExtensions = []string{".mp4", ".flv", ".mkv", ".avi", ".ts", ".webm", ".mov", ".mpg", ".vclip"}

// bbdownTitlePattern matches the log line BBDown prints once metadata is
// fetched, e.g. "[2025-10-31 16:06:33.387] - 视频标题: Lecture 1".
var bbdownTitlePattern = regexp.MustCompile(`\[\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}\.\d{3}\]\s*-\s*视频标题:\s*(.+)`)

// BBDown downloads Bilibili videos.
type BBDown struct {
	base
}

// NewBBDown builds a BBDown downloader. defaultArgs follow the fixed
// arguments on every invocation.
func NewBBDown(binary string, defaultArgs []string, opts ...Option) *BBDown {
	return &BBDown{base: newBase("BBDown", binary, defaultArgs, bbdownExtensions, opts)}
}

// Download runs BBDown in TV mode with a single connection and the output
// directory as its work dir.
func (d *BBDown) Download(ctx context.Context, req Request, logger *slog.Logger) (*Result, error) {
	if err := d.checkConfigured(); err != nil {
		return nil, err
	}
	logger = componentLogger(logger)

	result, err := d.run(ctx, req, d.args(req), logger)
	if err != nil {
		return nil, err
	}
	if title := parseBBDownTitle(result.Stdout); title != "" {
		result.Title = title
		logger.Info("video title extracted", logging.String("title", title))
	}
	return result, nil
}

func (d *BBDown) args(req Request) []string {
	args := []string{"-tv", req.URL, "--multi-thread", "false", "--work-dir", req.OutputDir}
	args = append(args, d.defaultArgs...)
	if pattern := strings.TrimSpace(req.FilePattern); pattern != "" {
		args = append(args, "-F", pattern)
	}
	return append(args, req.ExtraArgs...)
}

func parseBBDownTitle(stdout string) string {
	match := bbdownTitlePattern.FindStringSubmatch(stdout)
	if len(match) < 2 {
		return ""
	}
	return textutil.CleanTitle(match[1])
}
