package daemonctl

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"vidslides/internal/testsupport"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vidslides.pid")

	if pid, err := ReadPID(path); err != nil || pid != 0 {
		t.Fatalf("missing pid file: pid=%d err=%v", pid, err)
	}
	if err := os.WriteFile(path, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := ReadPID(path); err != nil || pid != 4242 {
		t.Fatalf("expected 4242, got pid=%d err=%v", pid, err)
	}
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := ReadPID(path); err != nil || pid != 0 {
		t.Fatalf("garbage pid file: pid=%d err=%v", pid, err)
	}
}

func TestForceKillRefusesCurrentProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidslides.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ForceKillProcess(path, "", 0); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
}

func TestForceKillWithoutPID(t *testing.T) {
	if _, err := ForceKillProcess(filepath.Join(t.TempDir(), "none.pid"), "", 0); err == nil {
		t.Fatal("expected error without pid")
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	alive, pid, err := ProcessInfo(cfg.SocketPath())
	if err != nil || alive || pid != 0 {
		t.Fatalf("ProcessInfo: alive=%v pid=%d err=%v", alive, pid, err)
	}
	if err := WaitForShutdown(cfg.SocketPath(), time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
	if _, err := StopAndTerminate(cfg, time.Second); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	if _, err := WaitForClient(cfg.SocketPath(), 300*time.Millisecond); err == nil {
		t.Fatal("expected WaitForClient to time out")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch(" ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}
