// Package storage is the file storage a run writes into. Every tool's
// outputs live under the shared my_files area, namespaced by workflow name
// and tool label:
//
//	<media_root>/my_files/<workflow>/<tool_label>/<output>
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/toolgrid/internal/workflow"
)

// SharedDir is the name of the area under the media root that holds
// uploaded files and every workflow's outputs.
const SharedDir = "my_files"

var (
	// ErrOutsideRoot is returned for paths that would escape the storage root.
	ErrOutsideRoot = errors.New("path escapes storage root")
	// ErrInvalidName is returned for a workflow name or tool label that is
	// not a single directory name.
	ErrInvalidName = errors.New("not a single directory name")
)

// Local is file storage on the local disk.
type Local struct {
	root string
}

// NewLocal prepares the storage area under mediaRoot, creating it if needed
// and confirming it is writeable.
func NewLocal(mediaRoot string) (*Local, error) {
	if mediaRoot == "" {
		return nil, errors.New("media root is required")
	}
	abs, err := filepath.Abs(mediaRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media root: %w", err)
	}

	root := filepath.Join(abs, SharedDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	testFile := filepath.Join(root, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return nil, fmt.Errorf("storage root is not writeable: %w", err)
	}
	os.Remove(testFile)

	return &Local{root: root}, nil
}

// Root returns the absolute path of the shared my_files area.
func (l *Local) Root() string { return l.root }

// OutputDir returns the directory a tool writes into for a workflow.
func (l *Local) OutputDir(workflowName, label string) (string, error) {
	if err := checkNames(workflowName, label); err != nil {
		return "", err
	}
	return l.within(workflowName, label)
}

// ToolPath returns the path of a file produced by the tool under label.
func (l *Local) ToolPath(workflowName, label, filename string) (string, error) {
	if err := checkNames(workflowName, label); err != nil {
		return "", err
	}
	return l.within(workflowName, label, filename)
}

// checkNames keeps each workflow and tool inside its own directory.
func checkNames(workflowName, label string) error {
	if !workflow.ValidName(workflowName) {
		return fmt.Errorf("%w: workflow %q", ErrInvalidName, workflowName)
	}
	if !workflow.ValidName(label) {
		return fmt.Errorf("%w: tool label %q", ErrInvalidName, label)
	}
	return nil
}

// SharedPath returns the path of a file living directly in the shared area,
// such as an upload that no tool in this workflow produced.
func (l *Local) SharedPath(filename string) (string, error) {
	return l.within(filename)
}

// EnsureDir creates dir and its parents.
func (l *Local) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether something exists at path.
func (l *Local) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (l *Local) within(elem ...string) (string, error) {
	p := filepath.Join(append([]string{l.root}, elem...)...)
	if p != l.root && !strings.HasPrefix(p, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, filepath.Join(elem...))
	}
	return p, nil
}
