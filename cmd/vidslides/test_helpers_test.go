package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vidslides/internal/config"
	"vidslides/internal/daemon"
	"vidslides/internal/ipc"
	"vidslides/internal/logging"
	"vidslides/internal/pipeline"
	"vidslides/internal/queue"
	"vidslides/internal/testsupport"
	"vidslides/internal/workflow"
)

// blockingRunner holds every job in the running state until shutdown.
type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, _ string, _ pipeline.Options) (*pipeline.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	socketPath string
	store      *queue.Store
	daemon     *daemon.Daemon
}

// setupCLITestEnv writes a config file for a fresh deployment. No daemon is
// running, so job commands fall back to the store.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, socketPath: cfg.SocketPath()}
}

// startDaemon runs a daemon and IPC server in-process for the env.
func (env *cliTestEnv) startDaemon(t *testing.T) {
	t.Helper()
	logger := logging.NewNop()
	store := testsupport.MustOpenStore(t, env.cfg)
	coordinator := workflow.NewCoordinator(env.cfg, store, blockingRunner{}, nil, logger)
	d, err := daemon.New(env.cfg, store, coordinator, nil, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon start: %v", err)
	}
	srv, err := ipc.NewServer(ctx, env.socketPath, d, logger)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})
	env.store = store
	env.daemon = d
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, env.socketPath, env.configPath)
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
