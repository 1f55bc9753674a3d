package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	// BaseDir is the deployment root. Paths persisted in manifests and job
	// records are expressed relative to it.
	BaseDir       string `toml:"base_dir"`
	WorkspaceRoot string `toml:"workspace_root"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	APIBind       string `toml:"api_bind"`
	// APIToken, when set, is required as a bearer token on HTTP requests.
	APIToken      string `toml:"api_token"`
}

// Downloader contains configuration for the external video downloaders.
type Downloader struct {
	BBDownExecutable       string   `toml:"bbdown_executable"`
	YtDlpExecutable        string   `toml:"ytdlp_executable"`
	BBDownArgs             []string `toml:"bbdown_args"`
	YtDlpArgs              []string `toml:"ytdlp_args"`
	MetadataTimeoutSeconds int      `toml:"metadata_timeout_seconds"`
	KeepDownloadVideo      bool     `toml:"keep_download_video"`
}

// Extraction holds default slide extraction parameters and decoder binaries.
type Extraction struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	MinIntervalSeconds  float64 `toml:"min_interval_seconds"`
	SkipFirstSeconds    float64 `toml:"skip_first_seconds"`
	ImageFormat         string  `toml:"image_format"`
	ImageQuality        int     `toml:"image_quality"`
	FillMode            bool    `toml:"fill_mode"`
	FFmpegBinary        string  `toml:"ffmpeg_binary"`
	FFprobeBinary       string  `toml:"ffprobe_binary"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	Server         string `toml:"server"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidslides.
//
// Configuration sections by subsystem:
//   - Paths: deployment root, job workspace, state/log directories, API bind
//   - Downloader: BBDown and yt-dlp executables plus default arguments
//   - Extraction: default slide extraction parameters and ffmpeg binaries
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Downloader    Downloader    `toml:"downloader"`
	Extraction    Extraction    `toml:"extraction"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vidslides/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidslides.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.BaseDir, c.Paths.WorkspaceRoot, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath is the SQLite job database location.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "vidslides.lock")
}

// SocketPath is the unix socket the daemon serves IPC on.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "vidslides.sock")
}

// PIDPath is the pid file written by a running daemon.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "vidslides.pid")
}

// DaemonLogPath is the JSON log file written by the daemon.
func (c *Config) DaemonLogPath() string {
	return filepath.Join(c.Paths.LogDir, "vidslides.log")
}

// RelativeToBase expresses target relative to the deployment root. Paths
// outside the root, or when the root is unset, are returned unchanged.
func (c *Config) RelativeToBase(target string) string {
	return RelativeTo(c.Paths.BaseDir, target)
}

// ResolveFromBase turns a stored relative path back into an absolute one.
func (c *Config) ResolveFromBase(stored string) string {
	if stored == "" || filepath.IsAbs(stored) {
		return stored
	}
	return filepath.Join(c.Paths.BaseDir, filepath.FromSlash(stored))
}

// RelativeTo is the path rule behind RelativeToBase. Results use forward
// slashes so stored documents stay portable.
func RelativeTo(base, target string) string {
	if base == "" || target == "" {
		return target
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return target
	}
	rel, err := filepath.Rel(base, absTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return target
	}
	return filepath.ToSlash(rel)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
