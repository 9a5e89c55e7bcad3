package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/toolgrid/internal/executor"
)

// Call is one recorded invocation of a FakeRunner.
type Call struct {
	Argv []string
	Dir  string
}

// FakeRunner is an executor.Runner that records invocations instead of
// spawning processes.
type FakeRunner struct {
	mu    sync.Mutex
	calls []Call
	// Handler decides the outcome of a call. Nil means exit 0 with no output.
	Handler func(argv []string, dir string) (*executor.Result, error)
}

// Run implements executor.Runner.
func (f *FakeRunner) Run(ctx context.Context, argv []string, dir string) (*executor.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Argv: append([]string(nil), argv...), Dir: dir})
	f.mu.Unlock()

	if f.Handler == nil {
		return &executor.Result{}, nil
	}
	return f.Handler(argv, dir)
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// WriteFlagOutputs returns a handler that behaves like a tool writing its
// output: the argument after flag is created as a file unless it is already
// a directory.
func WriteFlagOutputs(flag string) func([]string, string) (*executor.Result, error) {
	return func(argv []string, dir string) (*executor.Result, error) {
		for i := 0; i+1 < len(argv); i++ {
			if argv[i] != flag {
				continue
			}
			path := argv[i+1]
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, []byte("generated"), 0o644); err != nil {
				return nil, err
			}
		}
		return &executor.Result{Stdout: "ok\n"}, nil
	}
}
