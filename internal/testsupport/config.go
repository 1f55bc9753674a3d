package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vidslides/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BaseDir = base
	cfgVal.Paths.WorkspaceRoot = filepath.Join(base, "jobs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Downloader.BBDownExecutable = "BBDown"
	cfgVal.Downloader.YtDlpExecutable = "yt-dlp"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithNtfyTopic enables notifications against the given server and topic.
func WithNtfyTopic(server, topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.Server = server
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithKeepDownload toggles retention of downloaded videos.
func WithKeepDownload(keep bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Downloader.KeepDownloadVideo = keep
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries are
// stubbed with a script that exits 0.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"BBDown", "yt-dlp", "ffmpeg", "ffprobe"}
		}
		stubs := make(map[string]string, len(names))
		for _, name := range names {
			stubs[name] = "exit 0\n"
		}
		binDir := writeStubs(b.t, filepath.Join(b.baseDir, "bin"), stubs)
		prependPath(b.t, binDir)
	}
}

// WithScriptedBinary installs an executable shell script body under name and
// points PATH at it.
func WithScriptedBinary(name, body string) ConfigOption {
	return func(b *configBuilder) {
		binDir := writeStubs(b.t, filepath.Join(b.baseDir, "bin"), map[string]string{name: body})
		prependPath(b.t, binDir)
	}
}

// WriteScript writes an executable shell script and returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	writeStubs(t, dir, map[string]string{name: body})
	return filepath.Join(dir, name)
}

func writeStubs(t testing.TB, binDir string, stubs map[string]string) string {
	t.Helper()
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	for name, body := range stubs {
		target := filepath.Join(binDir, name)
		if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	return binDir
}

func prependPath(t testing.TB, binDir string) {
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.BaseDir
}
