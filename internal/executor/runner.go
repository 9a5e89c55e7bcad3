package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/specialistvlad/toolgrid/internal/ctxlog"
)

// Result is the captured outcome of one process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs a command to completion. It returns an error only when the
// process could not be started; a non-zero exit is reported in Result.
type Runner interface {
	Run(ctx context.Context, argv []string, dir string) (*Result, error)
}

// ProcessRunner runs commands as child processes of this one. Arguments are
// passed directly to the executable; no shell is involved.
type ProcessRunner struct{}

// NewProcessRunner creates a ProcessRunner.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{}
}

// Run implements Runner.
func (p *ProcessRunner) Run(ctx context.Context, argv []string, dir string) (*Result, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	logger := ctxlog.FromContext(ctx)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Starting process.", "argv", argv, "dir", dir)
	err := cmd.Run()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	logger.Debug("Process exited.", "argv0", argv[0], "exit_code", res.ExitCode)
	return res, nil
}
