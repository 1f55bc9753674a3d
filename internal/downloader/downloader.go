package downloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vidslides/internal/logging"
	"vidslides/internal/services"
)

const stageName = "download"

// ErrNoVideo is returned when the tool exits cleanly but leaves no video.
var ErrNoVideo = errors.New("Download finished but no video file was found.")

// Request describes one download.
type Request struct {
	URL       string
	OutputDir string
	// FilePattern names the output file without extension. Optional.
	FilePattern string
	ExtraArgs   []string
}

// Result describes a completed download. VideoPaths is sorted largest first
// and VideoPath is its first entry.
type Result struct {
	URL         string
	VideoPath   string
	VideoPaths  []string
	OutputDir   string
	Command     []string
	Stdout      string
	Stderr      string
	StartedAt   time.Time
	CompletedAt time.Time
	// Title is the video title reported by the tool, when available.
	Title string
}

// Downloader fetches a video into a directory.
type Downloader interface {
	Name() string
	Download(ctx context.Context, req Request, logger *slog.Logger) (*Result, error)
}

// Option configures a downloader.
type Option func(*base)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(b *base) {
		if exec != nil {
			b.exec = exec
		}
	}
}

type base struct {
	name        string
	binary      string
	defaultArgs []string
	extensions  map[string]struct{}
	exec        Executor
}

func newBase(name, binary string, defaultArgs []string, extensions []string, opts []Option) base {
	b := base{
		name:        name,
		binary:      strings.TrimSpace(binary),
		defaultArgs: append([]string(nil), defaultArgs...),
		extensions:  make(map[string]struct{}, len(extensions)),
		exec:        commandExecutor{},
	}
	for _, ext := range extensions {
		b.extensions[ext] = struct{}{}
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) Name() string { return b.name }

func (b *base) checkConfigured() error {
	if b.binary == "" {
		return services.Wrap(services.ErrConfiguration, stageName, b.name, "no executable configured", nil)
	}
	return nil
}

// run executes command and applies the shared completion rule.
func (b *base) run(ctx context.Context, req Request, args []string, logger *slog.Logger) (*Result, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "mkdir", req.OutputDir, err)
	}
	command := append([]string{b.binary}, args...)
	logger.Info("download started",
		logging.String(logging.FieldEventType, "download_start"),
		logging.String("tool", b.name),
		logging.String("url", req.URL),
		logging.String("output_dir", req.OutputDir),
		logging.String("command", strings.Join(command, " ")),
	)

	started := time.Now().UTC()
	out, err := b.exec.Run(ctx, b.binary, args)
	completed := time.Now().UTC()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalTool, stageName, b.name, fmt.Sprintf("Failed to start %s", b.name), err)
	}
	if strings.TrimSpace(out.Stderr) != "" {
		logger.Debug("download stderr", logging.String("tool", b.name), logging.String("stderr", out.Stderr))
	}

	videos, err := b.locateVideos(req.OutputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "scan", req.OutputDir, err)
	}
	if len(videos) == 0 {
		if out.ExitCode != 0 {
			msg := fmt.Sprintf("%s exited with code %d. stderr: %s", b.name, out.ExitCode, strings.TrimSpace(out.Stderr))
			return nil, services.Wrap(services.ErrExternalTool, stageName, b.name, msg, nil)
		}
		return nil, services.Wrap(services.ErrExternalTool, stageName, b.name, "", ErrNoVideo)
	}
	if out.ExitCode != 0 {
		logging.WarnWithContext(logger, "download tool failed but left a video; continuing", "download_nonzero_exit",
			logging.String("tool", b.name),
			logging.Int("exit_code", out.ExitCode),
			logging.String(logging.FieldErrorHint, "inspect the job log for the tool's stderr"),
		)
	}

	logger.Info("download completed",
		logging.String(logging.FieldEventType, "download_complete"),
		logging.String("video_path", videos[0]),
		logging.Int("video_files", len(videos)),
		logging.Duration("elapsed", completed.Sub(started)),
	)
	return &Result{
		URL:         req.URL,
		VideoPath:   videos[0],
		VideoPaths:  videos,
		OutputDir:   req.OutputDir,
		Command:     command,
		Stdout:      out.Stdout,
		Stderr:      out.Stderr,
		StartedAt:   started,
		CompletedAt: completed,
	}, nil
}

// locateVideos walks dir for non-empty files with an allowed extension and
// returns them ordered by size, largest first.
func (b *base) locateVideos(dir string) ([]string, error) {
	type candidate struct {
		path string
		size int64
	}
	var found []candidate
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if _, ok := b.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() || info.Size() == 0 {
			return nil
		}
		found = append(found, candidate{path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].size != found[j].size {
			return found[i].size > found[j].size
		}
		return found[i].path < found[j].path
	})
	paths := make([]string, len(found))
	for i, c := range found {
		paths[i] = c.path
	}
	return paths, nil
}

func componentLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return logging.NewComponentLogger(logger, "downloader")
}
