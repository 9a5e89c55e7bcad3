package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/toolgrid/internal/app"
	"github.com/specialistvlad/toolgrid/internal/executor"
	"github.com/spf13/cobra"
)

// Environment variables consulted when the matching flag is not set.
const (
	EnvMediaRoot = "TOOLGRID_MEDIA_ROOT"
	EnvCatalog   = "TOOLGRID_CATALOG"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) *ExitError {
	return &ExitError{Code: 2, Message: err.Error()}
}

func failure(format string, args ...any) *ExitError {
	return &ExitError{Code: 1, Message: fmt.Sprintf(format, args...)}
}

// flags holds the raw values of the persistent flags.
type flags struct {
	mediaRoot       string
	catalog         []string
	graphs          string
	addr            string
	workers         int
	logLevel        string
	logFormat       string
	healthcheckPort int
	notifyURL       string
	notifyNamespace string
}

func (f *flags) config() (*app.Config, error) {
	cfg, err := app.NewConfig(app.Config{
		MediaRoot:       f.mediaRoot,
		CatalogPaths:    f.catalog,
		GraphsPath:      f.graphs,
		ListenAddr:      f.addr,
		HealthcheckPort: f.healthcheckPort,
		LogFormat:       f.logFormat,
		LogLevel:        f.logLevel,
		WorkerCount:     f.workers,
		NotifyURL:       f.notifyURL,
		NotifyNamespace: f.notifyNamespace,
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// newApp builds the application from the parsed flags. Diagnostics go to
// the command's error stream.
func (f *flags) newApp(cmd *cobra.Command, runner executor.Runner) (*app.App, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}
	a, err := app.NewApp(cmd.Context(), cmd.ErrOrStderr(), cfg, runner)
	if err != nil {
		return nil, failure("startup failed: %v", err)
	}
	return a, nil
}

// NewRootCommand builds the command tree. A nil runner spawns real
// processes.
func NewRootCommand(runner executor.Runner) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "toolgrid",
		Short: "Run graphs of command-line tools.",
		Long: `toolgrid executes workflows: directed graphs of command-line tools where
the files one tool writes become the inputs of the next.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.mediaRoot, "media-root", os.Getenv(EnvMediaRoot), "Root directory for file storage (env "+EnvMediaRoot+").")
	pf.StringSliceVar(&f.catalog, "catalog", envList(EnvCatalog), "Tool catalog files or directories, *.hcl or tools.json (env "+EnvCatalog+").")
	pf.StringVar(&f.graphs, "graphs", "", "Directory of saved workflows. Defaults to <media-root>/workflows.")
	pf.StringVar(&f.addr, "addr", app.DefaultListenAddr, "Address the API server listens on.")
	pf.IntVar(&f.workers, "workers", 10, "Number of tools that may run concurrently.")
	pf.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&f.logFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	pf.IntVar(&f.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	pf.StringVar(&f.notifyURL, "notify-url", "", "Socket.IO server that receives run events. Empty disables notifications.")
	pf.StringVar(&f.notifyNamespace, "notify-namespace", "/", "Socket.IO namespace for run events.")

	root.AddCommand(
		newServeCommand(f, runner),
		newRunCommand(f, runner),
		newValidateCommand(f, runner),
		newToolsCommand(f, runner),
	)
	return root
}

// Execute runs the command tree with args. Every returned error is an
// *ExitError.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, runner executor.Runner) error {
	root := NewRootCommand(runner)
	root.SetArgs(args)
	root.SetOut(outW)
	root.SetErr(errW)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Anything cobra rejects before a command runs is a usage problem.
	return usageError(err)
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range filepath.SplitList(v) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
