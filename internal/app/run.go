package app

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/engine"
	"github.com/specialistvlad/toolgrid/internal/workflow"
)

// readRequest loads an execution request document from disk.
func readRequest(path string) (*workflow.Request, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	return workflow.ParseRequest(body)
}

// RunFile executes the request stored at path. The result is non-nil
// whenever the request could be parsed.
func (a *App) RunFile(ctx context.Context, path string) (*engine.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	req, err := readRequest(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Request loaded.", "path", path, "workflow", req.WorkflowName)
	return a.engine.Execute(ctx, req)
}

// ValidateFile checks the request stored at path without running it and
// returns its execution order and up-front warnings.
func (a *App) ValidateFile(ctx context.Context, path string) ([]string, []string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	req, err := readRequest(path)
	if err != nil {
		return nil, nil, err
	}
	return a.engine.Validate(ctx, req)
}
