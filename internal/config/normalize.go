package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDownloader(); err != nil {
		return err
	}
	c.normalizeExtraction()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		c.Paths.BaseDir = defaultBaseDir
	}
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkspaceRoot) == "" {
		if value, ok := os.LookupEnv("VIDEO_TO_PPT_ROOT"); ok && strings.TrimSpace(value) != "" {
			c.Paths.WorkspaceRoot = value
		} else {
			c.Paths.WorkspaceRoot = filepath.Join(c.Paths.BaseDir, defaultJobsDirName)
		}
	}
	if c.Paths.WorkspaceRoot, err = c.expandUnderBase(c.Paths.WorkspaceRoot); err != nil {
		return fmt.Errorf("paths.workspace_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = c.Paths.BaseDir
	}
	if c.Paths.StateDir, err = c.expandUnderBase(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.BaseDir, defaultLogDirName)
	}
	if c.Paths.LogDir, err = c.expandUnderBase(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

// expandUnderBase resolves relative directories against the deployment root
// instead of the process working directory.
func (c *Config) expandUnderBase(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value != "" && !filepath.IsAbs(value) && !strings.HasPrefix(value, "~") {
		value = filepath.Join(c.Paths.BaseDir, value)
	}
	return expandPath(value)
}

func (c *Config) normalizeDownloader() error {
	var err error
	if strings.TrimSpace(c.Downloader.BBDownExecutable) == "" {
		if value, ok := os.LookupEnv("BBDOWN_EXECUTABLE"); ok {
			c.Downloader.BBDownExecutable = value
		}
	}
	if strings.TrimSpace(c.Downloader.BBDownExecutable) == "" {
		c.Downloader.BBDownExecutable = defaultBBDownExecutable
	}
	if c.Downloader.BBDownExecutable, err = c.normalizeExecutable(c.Downloader.BBDownExecutable); err != nil {
		return fmt.Errorf("downloader.bbdown_executable: %w", err)
	}
	if strings.TrimSpace(c.Downloader.YtDlpExecutable) == "" {
		if value, ok := os.LookupEnv("YTDLP_EXECUTABLE"); ok {
			c.Downloader.YtDlpExecutable = value
		}
	}
	if strings.TrimSpace(c.Downloader.YtDlpExecutable) == "" {
		c.Downloader.YtDlpExecutable = defaultYtDlpExecutable
	}
	if c.Downloader.YtDlpExecutable, err = c.normalizeExecutable(c.Downloader.YtDlpExecutable); err != nil {
		return fmt.Errorf("downloader.ytdlp_executable: %w", err)
	}
	c.Downloader.BBDownArgs = trimArgs(c.Downloader.BBDownArgs)
	c.Downloader.YtDlpArgs = trimArgs(c.Downloader.YtDlpArgs)
	if c.Downloader.MetadataTimeoutSeconds == 0 {
		c.Downloader.MetadataTimeoutSeconds = defaultMetadataTimeoutSeconds
	}
	return nil
}

// normalizeExecutable keeps bare command names for PATH lookup and resolves
// anything that looks like a path against the deployment root.
func (c *Config) normalizeExecutable(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if !strings.ContainsAny(value, `/\`) && !strings.HasPrefix(value, "~") {
		return value, nil
	}
	return c.expandUnderBase(value)
}

func trimArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg = strings.TrimSpace(arg); arg != "" {
			out = append(out, arg)
		}
	}
	return out
}

func (c *Config) normalizeExtraction() {
	c.Extraction.ImageFormat = strings.ToLower(strings.TrimSpace(c.Extraction.ImageFormat))
	if c.Extraction.ImageFormat == "" {
		c.Extraction.ImageFormat = defaultImageFormat
	}
	c.Extraction.FFmpegBinary = strings.TrimSpace(c.Extraction.FFmpegBinary)
	if c.Extraction.FFmpegBinary == "" {
		c.Extraction.FFmpegBinary = "ffmpeg"
	}
	c.Extraction.FFprobeBinary = strings.TrimSpace(c.Extraction.FFprobeBinary)
	if c.Extraction.FFprobeBinary == "" {
		c.Extraction.FFprobeBinary = "ffprobe"
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.Server = strings.TrimRight(strings.TrimSpace(c.Notifications.Server), "/")
	if c.Notifications.Server == "" {
		c.Notifications.Server = defaultNtfyServer
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json", "console":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
