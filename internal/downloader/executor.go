package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Output captures a finished process.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor abstracts command execution for testability. A non-zero exit is
// reported through Output.ExitCode; the error is reserved for processes that
// could not be started or were cancelled.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (Output, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (Output, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	return out, fmt.Errorf("start %s: %w", binary, err)
}
