package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"vidslides/internal/config"
	"vidslides/internal/daemon"
	"vidslides/internal/deps"
	"vidslides/internal/downloader"
	"vidslides/internal/ipc"
	"vidslides/internal/logging"
	"vidslides/internal/media/ffmpeg"
	"vidslides/internal/notifications"
	"vidslides/internal/pipeline"
	"vidslides/internal/preflight"
	"vidslides/internal/queue"
	"vidslides/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the vidslides daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		FilePath:    cfg.DaemonLogPath(),
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	logPreflight(signalCtx, logger, cfg)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	registry := downloader.NewRegistryFromConfig(cfg)
	frames := ffmpeg.NewSource(cfg.Extraction.FFmpegBinary, cfg.Extraction.FFprobeBinary)
	runner := pipeline.New(cfg, registry, frames, logger)
	coordinator := workflow.NewCoordinator(cfg, store, runner, notifier, logger)

	d, err := daemon.New(cfg, store, coordinator, notifier, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check for another running daemon and the api bind address"),
		)
		return err
	}

	// Written after the lock is held so a rejected second instance never
	// clobbers the running daemon's pid file.
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("vidslides daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", cfg.SocketPath()),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Int("pid", os.Getpid()),
	)

	<-signalCtx.Done()
	logger.Info("vidslides daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		key := strings.ToLower(strings.ReplaceAll(status.Name, "-", "_"))
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	attrs = append(attrs, logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""))
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, missing := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required dependency missing", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldErrorHint, "install the binary or set its path in the [extraction] config"),
			logging.String(logging.FieldImpact, "jobs will fail at slide extraction"),
		)
	}
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix directory permissions before submitting jobs"),
		)
	}
}
