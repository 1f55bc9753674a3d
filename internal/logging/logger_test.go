package logging_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidslides/internal/config"
	"vidslides/internal/logging"
	"vidslides/internal/services"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon started", logging.String("api_bind", "127.0.0.1:0"))

	content, err := os.ReadFile(cfg.DaemonLogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", content, err)
	}
	if entry["msg"] != "daemon started" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["api_bind"] != "127.0.0.1:0" {
		t.Fatalf("expected attribute in file output, got %v", entry)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if !strings.Contains(string(content), "INFO message without caller") {
		t.Fatalf("expected plain level label for non-terminal output, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerPromotesComponent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "component.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "coordinator").Info("job claimed", logging.String("job_id", "a b"))

	content, _ := os.ReadFile(logPath)
	line := string(content)
	if !strings.Contains(line, "coordinator: job claimed") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, `job_id="a b"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithStage(ctx, "download")
	ctx = services.WithRequestID(ctx, "req-9")
	logging.WithContext(ctx, logger).Info("stage started")

	content, _ := os.ReadFile(logPath)
	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldJobID] != "job-1" || entry[logging.FieldStage] != "download" || entry[logging.FieldCorrelationID] != "req-9" {
		t.Fatalf("missing context fields: %v", entry)
	}
}

func TestJobLogTeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job", "job.log")
	jobLog, err := logging.OpenJobLog(logging.NewNop(), path)
	if err != nil {
		t.Fatalf("OpenJobLog: %v", err)
	}
	jobLog.Logger.Debug("frame inspected", logging.Int("frame", 3))
	jobLog.Logger.Error("download failed", logging.Args(logging.FailureAttrs(services.Wrap(services.ErrExternalTool, "download", "bbdown", "exit 1", errors.New("boom")))...)...)
	if err := jobLog.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open job log: %v", err)
	}
	defer file.Close()
	var lines []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, entry)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines including debug, got %d", len(lines))
	}
	if lines[1][logging.FieldErrorKind] != "external_tool" {
		t.Fatalf("expected error kind, got %v", lines[1])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "notification skipped", "notify_skipped")

	content, _ := os.ReadFile(logPath)
	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected %s in %v", key, entry)
		}
	}
}
